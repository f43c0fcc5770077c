package config

import (
	"errors"
	"testing"

	"shaftpos/core"
)

func TestLoadJSONDefaults(t *testing.T) {
	p, err := Load([]byte(`{"deadband": 10}`), FormatJSON)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := core.DefaultParams()
	if p.Deadband != 10 {
		t.Errorf("Expected deadband 10, got %d", p.Deadband)
	}
	if p.StoppedTime != def.StoppedTime {
		t.Errorf("Expected default stopped time %d, got %d", def.StoppedTime, p.StoppedTime)
	}
	if p.SearchSweep != def.SearchSweep {
		t.Errorf("Expected default sweep %d, got %d", def.SearchSweep, p.SearchSweep)
	}
	if p.Plant != nil {
		t.Error("Expected no plant section")
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	p, err := Load([]byte("deadband: 0\ndefault_speed: 0\nplant:\n  friction: 0\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Deadband != 0 || p.DefaultSpeed != 0 {
		t.Errorf("Expected explicit zeros, got deadband %d default speed %d", p.Deadband, p.DefaultSpeed)
	}
	if p.Plant == nil || p.Plant.Friction != 0 {
		t.Fatalf("Expected a frictionless plant, got %+v", p.Plant)
	}
	if p.Plant.CountsPerRev != 4000 {
		t.Errorf("Expected default counts per rev, got %d", p.Plant.CountsPerRev)
	}

	p, err = Load([]byte(`{"deadband": 0, "plant": {"friction": 0}}`), FormatJSON)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Deadband != 0 || p.Plant.Friction != 0 || p.Plant.TicksPerUpdate != 16 {
		t.Errorf("Expected explicit zeros over defaults, got %+v %+v", p, p.Plant)
	}
}

func TestLoadRejectsExplicitZeroStopTime(t *testing.T) {
	if _, err := Load([]byte(`{"stopped_time": 0}`), FormatJSON); !errors.Is(err, core.ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams, got %v", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	p, err := LoadFile("testdata/bench.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	params := p.Params()
	want := core.Params{StoppedTime: 3000, Deadband: 20, SearchSpeed: 80, SearchSweep: 4000, DefaultSpeed: 64}
	if params != want {
		t.Errorf("Expected %+v, got %+v", want, params)
	}
	if p.QualifyBits != [2]uint8{0, 3} {
		t.Errorf("Expected qualify bits [0 3], got %v", p.QualifyBits)
	}

	if p.Plant == nil {
		t.Fatal("Expected a plant section")
	}
	if p.Plant.MaxVelocity != 0.25 || p.Plant.IndexPosition != 1500 {
		t.Errorf("Unexpected plant %+v", p.Plant)
	}
	if p.Plant.TicksPerUpdate != 16 || p.Plant.CountsPerRev != 4000 {
		t.Errorf("Expected plant defaults, got %+v", p.Plant)
	}
}

func TestLoadFileJSON(t *testing.T) {
	p, err := LoadFile("testdata/default.json")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if p.Name != "default" || p.QualifyBits != [2]uint8{1, 2} {
		t.Errorf("Unexpected profile %+v", p)
	}

	table, err := p.Table()
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if table.Len() != len(core.DefaultBrakingDistances) {
		t.Errorf("Expected the built-in table, got %d entries", table.Len())
	}
}

func TestLoadFileUnknownExtension(t *testing.T) {
	if _, err := LoadFile("profile.toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"speed out of range", `{"default_speed": 300}`, core.ErrInvalidParams},
		{"negative sweep", `{"search_sweep": -5}`, core.ErrInvalidParams},
		{"qualify bits", `{"qualify_bits": [0, 4]}`, ErrInvalidQualify},
		{"increasing table", `{"braking_table": [10, 20]}`, core.ErrBrakingTableNotMonotone},
		{"empty table", `{"braking_table": []}`, core.ErrEmptyBrakingTable},
		{"plant too fast", `{"plant": {"max_velocity": 2}}`, ErrInvalidPlant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), FormatJSON)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	if _, err := Load([]byte("deadband: [oops"), FormatYAML); err == nil {
		t.Error("Expected a parse error")
	}
	if _, err := Load([]byte("{}"), Format(7)); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestTableOverride(t *testing.T) {
	p, err := Load([]byte("braking_table: [30, 20, 10]\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	table, err := p.Table()
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if table.Len() != 3 || table.PredictedDistance(1) != 20 {
		t.Errorf("Expected the override table, got %d entries", table.Len())
	}
}

func TestDefaultProfileValid(t *testing.T) {
	p := DefaultProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("Expected default profile to be valid, got %v", err)
	}
	if p.Params() != core.DefaultParams() {
		t.Errorf("Expected default params, got %+v", p.Params())
	}
}
