package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zuccha/dnd-portal-sub000/layout"
	"github.com/zuccha/dnd-portal-sub000/prefs"
	canvasrenderer "github.com/zuccha/dnd-portal-sub000/renderer/canvas"
)

const testTemplate = `
layout Spell v1 {
  size 2.48in 3.48in
  bleed 0.05in visible #ffffff

  frame {
    name: "<name>"
    descriptor: "<school>"
    footer: "<source>"
  }

  box background { w: 2.48in; h: 3.48in; fill: #fdf6e3; scope: all }

  text body {
    x: 0.1in; y: 0.6in; w: 2.28in; h: 2.4in
    font-size: 9pt
    flow: true
    "<description>"
    pattern "**" { font-weight: bold }
  }
}
`

func TestRunWritesPDF(t *testing.T) {
	dir := t.TempDir()
	layoutPath := filepath.Join(dir, "spell.layout")
	if err := os.WriteFile(layoutPath, []byte(testTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("A bright streak flashes to a point you choose and blossoms into **flame**. ", 40)
	records := []map[string]any{
		{"id": "fireball", "name": "Fireball", "school": "Evocation", "source": "PHB", "description": long},
		{"id": "light", "name": "Light", "school": "Evocation", "source": "PHB", "description": "You touch one object."},
		{"id": "light", "name": "Light", "school": "Evocation", "source": "PHB", "description": "Duplicate id."},
	}
	raw, _ := json.Marshal(records)
	dataPath := filepath.Join(dir, "spells.json")
	if err := os.WriteFile(dataPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	opts := options{
		layoutPath: layoutPath,
		dataPath:   dataPath,
		outputPath: filepath.Join(dir, "out", "spells.pdf"),
		debugPath:  filepath.Join(dir, "out", "debug.json"),
		debugPages: true,
		savePrefs:  true,
		prefsPath:  filepath.Join(dir, "prefs", "preferences.json"),
		prefs:      prefs.Default(),
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: dir})
	if err := run(context.Background(), opts, r, zap.NewNop()); err != nil {
		t.Fatalf("run: %v", err)
	}

	pdfBytes, err := os.ReadFile(opts.outputPath)
	if err != nil || !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Fatalf("expected a PDF at %s: %v", opts.outputPath, err)
	}

	var cards []*layout.Card
	debug, err := os.ReadFile(opts.debugPath)
	if err != nil {
		t.Fatalf("read debug: %v", err)
	}
	if err := json.Unmarshal(debug, &cards); err != nil {
		t.Fatalf("decode debug: %v", err)
	}
	if len(cards) != 3 || cards[2].ID == cards[1].ID {
		t.Fatalf("expected three cards with unique ids: %+v", cards)
	}
	if len(cards[0].Pages) < 2 {
		t.Fatalf("long description should spill onto another page")
	}
	var joined strings.Builder
	for _, p := range cards[0].Pages {
		joined.WriteString(p.Text)
	}
	if joined.String() != long {
		t.Fatalf("pages should reproduce the description")
	}

	saved, err := prefs.Load(opts.prefsPath)
	if err != nil || saved.LayoutPath != layoutPath || saved.DataPath != dataPath {
		t.Fatalf("preferences not saved: %+v %v", saved, err)
	}
}

func TestLoadRecords(t *testing.T) {
	recs, err := loadRecords("")
	if err != nil || len(recs) != 1 || recs[0] != nil {
		t.Fatalf("no data file should give one empty record: %v %v", recs, err)
	}
	path := filepath.Join(t.TempDir(), "one.json")
	if err := os.WriteFile(path, []byte(`{"name":"Goblin"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err = loadRecords(path)
	if err != nil || len(recs) != 1 {
		t.Fatalf("a single object is one record: %v %v", recs, err)
	}
	if id := recordID(recs[0], 4); id != "card-5" {
		t.Fatalf("unexpected fallback id %q", id)
	}
}
