package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
)

var (
	// ErrRefreshInProgress is returned when a refresh is triggered while another runs.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrNoCredentials wraps token resolution failures.
	ErrNoCredentials = errors.New("no usable GitHub token")
)

const (
	DefaultInterval     = 5 * time.Minute
	DefaultFetchTimeout = 60 * time.Second
)

type Fetcher interface {
	Fetch(ctx context.Context, req billing.Request) (billing.FetchResult, error)
}

// TokenSource yields the token for the next fetch and a label for where it came from.
type TokenSource interface {
	Resolve(ctx context.Context) (token, source string, err error)
}

// Settings is the per-refresh configuration read by the engine.
type Settings struct {
	Org          string
	Filter       string
	ManualBudget *float64
	Interval     time.Duration
	FetchTimeout time.Duration
}

type Engine struct {
	fetcher Fetcher
	tokens  TokenSource
	logger  *zap.Logger
	now     func() time.Time

	running atomic.Bool

	mu       sync.RWMutex
	settings Settings
	last     Snapshot
	lastGood *billing.FetchResult
	onUpdate func(Snapshot)

	schedMu sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	runCtx  context.Context
}

func NewEngine(fetcher Fetcher, tokens TokenSource, settings Settings, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fetcher:  fetcher,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
		settings: normalizeSettings(settings),
	}
}

func normalizeSettings(s Settings) Settings {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = DefaultFetchTimeout
	}
	return s
}

func (e *Engine) OnUpdate(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = fn
}

func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// SetSettings replaces the settings used by the next refresh and reschedules
// the periodic trigger if the interval changed.
func (e *Engine) SetSettings(s Settings) error {
	s = normalizeSettings(s)
	e.mu.Lock()
	changed := s.Interval != e.settings.Interval
	e.settings = s
	e.mu.Unlock()
	if changed {
		return e.SetInterval(s.Interval)
	}
	return nil
}

// Snapshot returns the most recent refresh outcome.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Refresh runs one fetch. Overlapping calls fail fast with ErrRefreshInProgress
// and leave the in-flight fetch alone. The returned error is the fetch error, if any.
func (e *Engine) Refresh(ctx context.Context) (Snapshot, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Snapshot{}, ErrRefreshInProgress
	}
	defer e.running.Store(false)

	settings := e.Settings()
	fetchCtx, cancel := context.WithTimeout(ctx, settings.FetchTimeout)
	defer cancel()

	snap := e.fetch(fetchCtx, settings)

	e.mu.Lock()
	if snap.Result != nil {
		e.lastGood = snap.Result
	} else {
		snap.Previous = e.lastGood
	}
	e.last = snap
	fn := e.onUpdate
	e.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return snap, snap.Err
}

func (e *Engine) fetch(ctx context.Context, settings Settings) Snapshot {
	token, source, err := e.tokens.Resolve(ctx)
	if err != nil {
		e.logger.Warn("token resolution failed", zap.Error(err))
		return Snapshot{Err: fmt.Errorf("core: %w: %w", ErrNoCredentials, err), Timestamp: e.now()}
	}

	req := billing.Request{
		Auth: billing.AuthContext{
			Token:      token,
			Org:        settings.Org,
			Filter:     settings.Filter,
			AuthSource: source,
		},
		ManualBudget: settings.ManualBudget,
	}
	result, err := e.fetcher.Fetch(ctx, req)
	snap := Snapshot{AuthSource: source, Timestamp: e.now()}
	if err != nil {
		snap.Err = err
		return snap
	}
	snap.Result = &result
	return snap
}

// Start schedules periodic refreshes and runs the first one in the background.
// The schedule stops when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.schedMu.Lock()
	if e.cron != nil {
		e.schedMu.Unlock()
		return errors.New("core: engine already started")
	}
	e.cron = cron.New()
	e.runCtx = ctx
	err := e.scheduleLocked(e.Settings().Interval)
	if err != nil {
		e.cron = nil
		e.schedMu.Unlock()
		return err
	}
	e.cron.Start()
	e.schedMu.Unlock()

	go e.tick()
	go func() {
		<-ctx.Done()
		e.Stop()
	}()
	return nil
}

// Stop halts the periodic trigger and waits for a running scheduled refresh.
func (e *Engine) Stop() {
	e.schedMu.Lock()
	c := e.cron
	e.cron = nil
	e.schedMu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	e.logger.Debug("refresh schedule stopped")
}

// SetInterval reschedules the periodic trigger. Before Start it only records the interval.
func (e *Engine) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("core: invalid refresh interval %s", d)
	}
	e.mu.Lock()
	e.settings.Interval = d
	e.mu.Unlock()

	e.schedMu.Lock()
	defer e.schedMu.Unlock()
	if e.cron == nil {
		return nil
	}
	e.cron.Remove(e.entry)
	return e.scheduleLocked(d)
}

// NextRun returns the next scheduled refresh, or the zero time when not started.
func (e *Engine) NextRun() time.Time {
	e.schedMu.Lock()
	defer e.schedMu.Unlock()
	if e.cron == nil {
		return time.Time{}
	}
	return e.cron.Entry(e.entry).Next
}

func (e *Engine) scheduleLocked(d time.Duration) error {
	id, err := e.cron.AddFunc("@every "+d.String(), e.tick)
	if err != nil {
		return fmt.Errorf("core: schedule refresh every %s: %w", d, err)
	}
	e.entry = id
	e.logger.Debug("refresh scheduled", zap.Duration("interval", d))
	return nil
}

func (e *Engine) tick() {
	e.schedMu.Lock()
	ctx := e.runCtx
	e.schedMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := e.Refresh(ctx); errors.Is(err, ErrRefreshInProgress) {
		e.logger.Debug("scheduled refresh skipped, previous still running")
	}
}
