package parsers

import "testing"

func TestDecode_Kinds(t *testing.T) {
	v, err := Decode([]byte(`{"a": null, "b": true, "c": 1.5, "d": "x", "e": [1, 2], "f": {"g": 1}}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !v.IsObject() {
		t.Fatalf("Kind = %s, want object", v.Kind())
	}

	want := map[string]Kind{
		"a": KindNull,
		"b": KindBool,
		"c": KindNumber,
		"d": KindString,
		"e": KindArray,
		"f": KindObject,
	}
	for key, kind := range want {
		f, ok := v.Field(key)
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if f.Kind() != kind {
			t.Errorf("field %q kind = %s, want %s", key, f.Kind(), kind)
		}
	}

	if _, ok := v.Field("missing"); ok {
		t.Error("expected missing field to be absent")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte(`{"broken":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestArrayField_FirstMatchingName(t *testing.T) {
	v, err := Decode([]byte(`{"usageItems": "nope", "usage_items": [{"x": 1}]}`))
	if err != nil {
		t.Fatal(err)
	}
	items, ok := v.ArrayField("usageItems", "usage_items")
	if !ok || len(items) != 1 {
		t.Fatalf("ArrayField = (%d items, %v), want (1, true)", len(items), ok)
	}
}

func TestJSON_SortedKeys(t *testing.T) {
	v, err := Decode([]byte(`{"b": 1, "a": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.JSON(); got != `{"a":"x","b":1}` {
		t.Errorf("JSON() = %s", got)
	}
}

func TestJSON_KeepsMarkupCharacters(t *testing.T) {
	v, err := Decode([]byte(`{"scope": "R&D <team>"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.JSON(); got != `{"scope":"R&D <team>"}` {
		t.Errorf("JSON() = %s", got)
	}
}

func TestWalk_PreOrderSortedKeys(t *testing.T) {
	v, err := Decode([]byte(`{"z": {"leaf": "z"}, "a": [{"leaf": "a0"}, {"leaf": "a1"}]}`))
	if err != nil {
		t.Fatal(err)
	}

	var leaves []string
	Walk(v, func(node Value) bool {
		if s := node.TextField("leaf"); s != "" {
			leaves = append(leaves, s)
		}
		return true
	})

	want := []string{"a0", "a1", "z"}
	if len(leaves) != len(want) {
		t.Fatalf("leaves = %v, want %v", leaves, want)
	}
	for i := range want {
		if leaves[i] != want[i] {
			t.Errorf("leaves[%d] = %q, want %q", i, leaves[i], want[i])
		}
	}
}

func TestWalk_Stops(t *testing.T) {
	v, err := Decode([]byte(`[1, 2, 3, 4]`))
	if err != nil {
		t.Fatal(err)
	}
	visited := 0
	Walk(v, func(node Value) bool {
		visited++
		n, ok := node.Number()
		return !(ok && n == 2)
	})
	// root array, 1, 2
	if visited != 3 {
		t.Errorf("visited = %d, want 3", visited)
	}
}
