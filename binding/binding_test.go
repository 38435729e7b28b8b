package binding

import "testing"

func TestInterpolateResolvesNestedPath(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": "x"}}
	if got := Interpolate("<a.b>", data); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}

func TestInterpolateMissingPathIsEmpty(t *testing.T) {
	data := map[string]any{"a": map[string]any{}}
	if got := Interpolate("<a.missing>", data); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := Interpolate("[<nope.deeper>]", nil); got != "[]" {
		t.Fatalf("nil data should yield empty placeholder, got %q", got)
	}
}

func TestInterpolatePastLeafIsEmpty(t *testing.T) {
	data := map[string]any{"name": "Fireball", "level": 3.0, "ritual": false}
	cases := map[string]string{
		"<name.first>":   "",
		"<level.x.y>":    "",
		"<ritual>":       "false",
		"<level>":        "3",
		"L<level> <name>": "L3 Fireball",
	}
	for in, want := range cases {
		if got := Interpolate(in, data); got != want {
			t.Fatalf("Interpolate(%q): got %q want %q", in, got, want)
		}
	}
}

func TestInterpolateBracketKeys(t *testing.T) {
	data := map[string]any{
		"i18n":  map[string]any{"en": map[string]any{"name": "Goblin"}},
		"items": []any{"dagger", "bow"},
	}
	if got := Interpolate("<i18n[en].name>", data); got != "Goblin" {
		t.Fatalf("bracket key: got %q", got)
	}
	if got := Interpolate("<items[1]>", data); got != "bow" {
		t.Fatalf("array index: got %q", got)
	}
	if got := Interpolate("<items>", data); got != "dagger,bow" {
		t.Fatalf("array join: got %q", got)
	}
	if got := Interpolate("<items[9]>", data); got != "" {
		t.Fatalf("out of range index: got %q", got)
	}
}

func TestInterpolateUnescapesNewlines(t *testing.T) {
	got := Interpolate(`first\nsecond\r`, nil)
	if got != "first\nsecond\r" {
		t.Fatalf("unexpected unescape result: %q", got)
	}
}

func TestInterpolateLeavesComparisonsAlone(t *testing.T) {
	got := Interpolate("1 < 2 and 3 > 2", map[string]any{})
	if got != "1 < 2 and 3 > 2" {
		t.Fatalf("text without placeholders changed: %q", got)
	}
}

func TestInterpolateDoesNotMutateData(t *testing.T) {
	inner := map[string]any{"b": "x"}
	data := map[string]any{"a": inner}
	_ = Interpolate("<a.b> <a.c> <z>", data)
	if len(data) != 1 || len(inner) != 1 {
		t.Fatalf("data mutated: %#v", data)
	}
}

func TestInterpolatorMemoizesByIdentity(t *testing.T) {
	ip := NewInterpolator(0)
	data := map[string]any{"name": "Owlbear"}
	if got := ip.Interpolate("<name>", data); got != "Owlbear" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := ip.Interpolate("<name>", data); got != "Owlbear" {
		t.Fatalf("unexpected on cached call: %q", got)
	}
	if ip.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", ip.Len())
	}

	other := map[string]any{"name": "Wyvern"}
	if got := ip.Interpolate("<name>", other); got != "Wyvern" {
		t.Fatalf("different record must not hit cache: %q", got)
	}
	if ip.Len() != 2 {
		t.Fatalf("expected 2 cached entries, got %d", ip.Len())
	}

	ip.Flush()
	if ip.Len() != 0 {
		t.Fatalf("flush should empty the cache")
	}
}

func TestInterpolatorFlushDropsStaleIdentity(t *testing.T) {
	ip := NewInterpolator(0)
	data := map[string]any{"name": "Owlbear"}
	ip.Interpolate("<name>", data)

	// 同一身份的记录被替换内容后，缓存仍返回旧结果，直到 Flush
	data["name"] = "Wyvern"
	if got := ip.Interpolate("<name>", data); got != "Owlbear" {
		t.Fatalf("expected cached result before flush, got %q", got)
	}
	ip.Flush()
	if got := ip.Interpolate("<name>", data); got != "Wyvern" {
		t.Fatalf("expected fresh result after flush, got %q", got)
	}
}
