package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// GitHubAccount is the credentials key for the token used against api.github.com.
const GitHubAccount = "github"

// ErrCredentialsExposed is returned for a credentials file other users can read.
var ErrCredentialsExposed = errors.New("credentials file is accessible by other users; run chmod 600 on it")

// StoredToken is a token saved by `copilotspend auth login`.
type StoredToken struct {
	Token   string    `json:"token"`
	Login   string    `json:"login,omitempty"` // empty when saved without verification
	SavedAt time.Time `json:"saved_at"`
}

type Credentials struct {
	Tokens map[string]StoredToken `json:"tokens"`
}

// Token returns the stored token for account, if any.
func (c Credentials) Token(account string) (StoredToken, bool) {
	tok, ok := c.Tokens[account]
	return tok, ok && tok.Token != ""
}

// credMu serializes read-modify-write cycles on the credentials file.
var credMu sync.Mutex

func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "credentials.json")
}

func emptyCredentials() Credentials {
	return Credentials{Tokens: make(map[string]StoredToken)}
}

// LoadCredentialsFrom reads the credentials file. A missing file is empty,
// not an error.
func LoadCredentialsFrom(path string) (Credentials, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyCredentials(), nil
		}
		return emptyCredentials(), fmt.Errorf("reading credentials: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return emptyCredentials(), fmt.Errorf("%s: %w", path, ErrCredentialsExposed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return emptyCredentials(), fmt.Errorf("reading credentials: %w", err)
	}
	creds := emptyCredentials()
	if err := json.Unmarshal(data, &creds); err != nil {
		return emptyCredentials(), fmt.Errorf("parsing credentials %s: %w", path, err)
	}
	if creds.Tokens == nil {
		creds.Tokens = make(map[string]StoredToken)
	}
	return creds, nil
}

// SaveTokenTo stores tok under account, keeping other accounts. An unreadable
// or corrupt file is replaced.
func SaveTokenTo(path, account string, tok StoredToken) error {
	credMu.Lock()
	defer credMu.Unlock()

	creds, err := LoadCredentialsFrom(path)
	if err != nil {
		creds = emptyCredentials()
	}
	if tok.SavedAt.IsZero() {
		tok.SavedAt = time.Now().UTC()
	}
	creds.Tokens[account] = tok
	return writeCredentials(path, creds)
}

// DeleteTokenFrom removes account and reports whether anything was stored.
func DeleteTokenFrom(path, account string) (bool, error) {
	credMu.Lock()
	defer credMu.Unlock()

	creds, err := LoadCredentialsFrom(path)
	if err != nil {
		return false, err
	}
	if _, ok := creds.Tokens[account]; !ok {
		return false, nil
	}
	delete(creds.Tokens, account)
	return true, writeCredentials(path, creds)
}

func writeCredentials(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("securing credentials: %w", err)
	}
	return nil
}
