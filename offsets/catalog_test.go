package offsets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scmem/errs"
	"scmem/units"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(filepath.Join("testdata", "catalog.json"))
	if _, err := c.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func TestLoadDecodesDocument(t *testing.T) {
	c := loadTestCatalog(t)
	cfg, _ := c.Load()

	if cfg.Version != "1.23.10.13515" {
		t.Fatalf("version = %q", cfg.Version)
	}
	if cfg.BaseOffset != -0x100 || cfg.MapNameOffset != 0x100 || cfg.ProductionOffset != 0x1800 {
		t.Fatalf("deltas = %d %d %d", cfg.BaseOffset, cfg.MapNameOffset, cfg.ProductionOffset)
	}
	if cfg.StaticOffsets.InGame != 0x2000 || cfg.StaticOffsets.UnitArray != 0x2100 {
		t.Fatalf("static offsets = %+v", cfg.StaticOffsets)
	}
	if cfg.BufferInfo != (BufferInfo{BufferSize: 0x4000, MinOffset: 0x1000}) {
		t.Fatalf("buffer info = %+v", cfg.BufferInfo)
	}

	got, err := c.UnitTypes()
	if err != nil {
		t.Fatalf("unit types: %v", err)
	}
	want := []units.UnitType{
		units.TerranSCV, units.TerranMarine, units.TerranCommandCenter,
		units.ZergDrone, units.ZergHatchery,
		units.ProtossProbe, units.ProtossNexus,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unit types mismatch (-want +got):\n%s", diff)
	}

	e, err := c.Entry(units.ZergHatchery)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if diff := cmp.Diff(Entry{UnitType: units.ZergHatchery, Race: units.Zerg, IsBuilding: true, CompletedOffset: 0x30C0}, e); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestUnitOffset(t *testing.T) {
	c := loadTestCatalog(t)

	tests := []struct {
		name       string
		unitType   units.UnitType
		player     int
		production bool
		want       int64
	}{
		{name: "completed player 0", unitType: units.TerranSCV, player: 0, want: 0x3000},
		{name: "completed player 7", unitType: units.TerranMarine, player: 7, want: 0x3030 + 7*4},
		{name: "production player 0", unitType: units.TerranSCV, player: 0, production: true, want: 0x3000 - 0x1800},
		{name: "production player 3", unitType: units.ProtossNexus, player: 3, production: true, want: 0x3120 - 0x1800 + 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.UnitOffset(tt.unitType, tt.player, tt.production)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("UnitOffset = 0x%x, want 0x%x", got, tt.want)
			}
		})
	}

	if _, err := c.UnitOffset(units.ProtossCarrier, 0, false); !errors.Is(err, ErrUnknownUnitType) {
		t.Fatalf("uncatalogued type err = %v", err)
	}
	if _, err := c.UnitOffset(units.TerranSCV, 8, false); err == nil {
		t.Fatalf("expected player 8 to be rejected")
	}
}

func TestUnitOffsetMatchesCompletedForEveryPlayer(t *testing.T) {
	c := loadTestCatalog(t)
	types, _ := c.UnitTypes()
	for _, ut := range types {
		e, _ := c.Entry(ut)
		for p := 0; p < CountPlayers; p++ {
			completed, _ := c.UnitOffset(ut, p, false)
			production, _ := c.UnitOffset(ut, p, true)
			if completed != e.CompletedOffset+int64(p*4) {
				t.Fatalf("%s player %d completed = 0x%x", ut, p, completed)
			}
			if completed-production != 0x1800 {
				t.Fatalf("%s player %d production delta = 0x%x", ut, p, completed-production)
			}
		}
	}
}

func TestBufferRelativeOffset(t *testing.T) {
	c := loadTestCatalog(t)
	got, err := c.BufferRelativeOffset(0x3004)
	if err != nil || got != 0x2004 {
		t.Fatalf("BufferRelativeOffset = 0x%x, %v", got, err)
	}
}

func TestSupplyAndResearchOffsets(t *testing.T) {
	c := loadTestCatalog(t)

	if got, _ := c.SupplyOffset(units.Zerg, 2, true); got != 0x11C0+8 {
		t.Fatalf("zerg max supply player 2 = 0x%x", got)
	}
	if got, _ := c.SupplyOffset(units.Protoss, 1, false); got != 0x1204 {
		t.Fatalf("protoss used supply player 1 = 0x%x", got)
	}

	tests := []struct {
		kind   ResearchKind
		player int
		id     int
		want   int64
	}{
		{Upgrades, 0, 0, 0x6000},
		{Upgrades, 1, 5, 0x6000 + 46 + 5},
		{Upgrades, 2, 46, 0x6300 + 2*15},
		{Upgrades, 11, 60, 0x6300 + 11*15 + 14},
		{Techs, 3, 23, 0x6400 + 3*24 + 23},
		{Techs, 0, 24, 0x6600},
		{Techs, 5, 43, 0x6600 + 5*20 + 19},
	}
	for _, tt := range tests {
		got, err := c.ResearchOffset(tt.kind, tt.player, tt.id)
		if err != nil {
			t.Fatalf("%s player %d id %d: %v", tt.kind, tt.player, tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("%s player %d id %d = 0x%x, want 0x%x", tt.kind, tt.player, tt.id, got, tt.want)
		}
	}

	if _, err := c.ResearchOffset(Upgrades, 0, 61); err == nil {
		t.Fatalf("expected upgrade 61 to be rejected")
	}
	if _, err := c.ResearchOffset(Techs, 12, 0); err == nil {
		t.Fatalf("expected player 12 to be rejected")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "missing", path: filepath.Join(dir, "nope.json"), want: errs.ErrConfigNotFound},
		{name: "malformed", path: write("bad.json", `{"baseOffset": `), want: errs.ErrConfigParse},
		{name: "bad hex", path: write("hex.json", `{"baseOffset": "0xZZ", "bufferInfo": {"bufferSize": 16}}`), want: errs.ErrConfigParse},
		{name: "bad unit name", path: write("name.json", `{"races": {"terran": {"units": [{"unitType": "Terran_Mech"}]}}, "bufferInfo": {"bufferSize": 16}}`), want: errs.ErrConfigParse},
		{name: "empty buffer", path: write("empty.json", `{"races": {"terran": {"units": [{"unitType": 0}]}}}`), want: errs.ErrConfigParse},
		{
			name: "outside buffer",
			path: write("range.json", `{"productionOffset": 16, "races": {"terran": {"units": [{"unitType": 0, "completedOffset": 60}]}},
				"bufferInfo": {"bufferSize": 64, "minOffset": 0}}`),
			want: errs.ErrConfigParse,
		},
		{
			name: "production outside buffer",
			path: write("prod.json", `{"productionOffset": 64, "races": {"terran": {"units": [{"unitType": 0, "completedOffset": 0}]}},
				"bufferInfo": {"bufferSize": 64, "minOffset": 0}}`),
			want: errs.ErrConfigParse,
		},
		{
			name: "duplicate type",
			path: write("dup.json", `{"races": {"terran": {"units": [{"unitType": 0}, {"unitType": "Terran_Marine"}]}},
				"bufferInfo": {"bufferSize": 64}}`),
			want: errs.ErrConfigParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.path).Load()
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %s", err, errs.KindOf(tt.want))
			}
		})
	}
}

func TestClearCacheRereads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := func(version string) []byte {
		return []byte(`{"version": "` + version + `", "races": {"terran": {"units": [{"unitType": 0}]}}, "bufferInfo": {"bufferSize": 64}}`)
	}
	if err := os.WriteFile(path, doc("a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewCatalog(path)
	if cfg, err := c.Load(); err != nil || cfg.Version != "a" {
		t.Fatalf("first load = %v, %v", cfg, err)
	}

	if err := os.WriteFile(path, doc("b"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if cfg, _ := c.Load(); cfg.Version != "a" {
		t.Fatalf("cached load reread the file: %q", cfg.Version)
	}

	c.ClearCache()
	if cfg, err := c.Load(); err != nil || cfg.Version != "b" {
		t.Fatalf("load after ClearCache = %v, %v", cfg, err)
	}
}

func TestStaticCatalogIsValidated(t *testing.T) {
	c := NewStaticCatalog(&Config{})
	if _, err := c.Load(); !errors.Is(err, errs.ErrConfigParse) {
		t.Fatalf("err = %v", err)
	}
}
