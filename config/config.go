package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shaftpos/core"
)

// Format selects the profile encoding
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

var (
	ErrUnknownFormat  = errors.New("unknown profile format")
	ErrInvalidQualify = errors.New("index qualify bits must be 0..3")
	ErrInvalidPlant   = errors.New("invalid plant model")
)

// Profile is the tuning of both motor controllers, optionally with a plant
// model for simulation
type Profile struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	StoppedTime  uint16 `json:"stopped_time" yaml:"stopped_time"`   // timer ticks
	Deadband     int32  `json:"deadband" yaml:"deadband"`           // encoder counts
	SearchSpeed  int16  `json:"search_speed" yaml:"search_speed"`   // duty
	SearchSweep  int32  `json:"search_sweep" yaml:"search_sweep"`   // encoder counts
	DefaultSpeed int16  `json:"default_speed" yaml:"default_speed"` // duty

	// QualifyBits is the encoder reading at which each motor's index switch
	// is sampled
	QualifyBits [2]uint8 `json:"qualify_bits" yaml:"qualify_bits"`

	// BrakingTable replaces the built-in calibration when set
	BrakingTable []uint16 `json:"braking_table,omitempty" yaml:"braking_table,omitempty"`

	Plant *PlantProfile `json:"plant,omitempty" yaml:"plant,omitempty"`
}

// PlantProfile describes the simulated gear motor
type PlantProfile struct {
	MaxVelocity    float64 `json:"max_velocity" yaml:"max_velocity"`         // counts per tick at full duty
	TimeConstant   float64 `json:"time_constant" yaml:"time_constant"`       // ticks
	BrakeDecel     float64 `json:"brake_decel" yaml:"brake_decel"`           // counts per tick^2, instant when 0
	Friction       float64 `json:"friction" yaml:"friction"`                 // counts per tick^2 while coasting
	IndexPosition  int32   `json:"index_position" yaml:"index_position"`     // counts from power up
	CountsPerRev   int32   `json:"counts_per_rev" yaml:"counts_per_rev"`     // index repeats every revolution
	TicksPerUpdate int     `json:"ticks_per_update" yaml:"ticks_per_update"` // main loop period
}

// DefaultPlantProfile returns the simulated reference gear motor
func DefaultPlantProfile() *PlantProfile {
	return &PlantProfile{
		MaxVelocity:    0.5,
		TimeConstant:   2000,
		Friction:       0.0001,
		CountsPerRev:   4000,
		TicksPerUpdate: 16,
	}
}

type plainPlant PlantProfile

// UnmarshalJSON decodes a plant section over the reference motor
func (pp *PlantProfile) UnmarshalJSON(data []byte) error {
	v := plainPlant(*DefaultPlantProfile())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*pp = PlantProfile(v)
	return nil
}

// UnmarshalYAML decodes a plant section over the reference motor
func (pp *PlantProfile) UnmarshalYAML(node *yaml.Node) error {
	v := plainPlant(*DefaultPlantProfile())
	if err := node.Decode(&v); err != nil {
		return err
	}
	*pp = PlantProfile(v)
	return nil
}

// Load parses a profile over DefaultProfile, so fields the profile leaves out
// keep their defaults and explicit zeros are kept
func Load(data []byte, format Format) (*Profile, error) {
	p := DefaultProfile()

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, p)
	case FormatYAML:
		err = yaml.Unmarshal(data, p)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile reads a .json, .yaml or .yml profile
func LoadFile(path string) (*Profile, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Load(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks the profile against what the controllers accept
func (p *Profile) Validate() error {
	if err := p.Params().Validate(); err != nil {
		return err
	}
	for i, bits := range p.QualifyBits {
		if bits > 3 {
			return fmt.Errorf("motor %d: %w", i+1, ErrInvalidQualify)
		}
	}
	if p.BrakingTable != nil {
		if _, err := core.NewBrakingTable(p.BrakingTable); err != nil {
			return fmt.Errorf("braking table: %w", err)
		}
	}
	if plant := p.Plant; plant != nil {
		switch {
		case plant.MaxVelocity <= 0 || plant.MaxVelocity >= 1:
			return fmt.Errorf("max velocity %g: %w", plant.MaxVelocity, ErrInvalidPlant)
		case plant.TimeConstant < 0 || plant.BrakeDecel < 0 || plant.Friction < 0:
			return fmt.Errorf("negative rate: %w", ErrInvalidPlant)
		case plant.CountsPerRev <= 0:
			return fmt.Errorf("counts per rev %d: %w", plant.CountsPerRev, ErrInvalidPlant)
		case plant.TicksPerUpdate <= 0:
			return fmt.Errorf("ticks per update %d: %w", plant.TicksPerUpdate, ErrInvalidPlant)
		}
	}
	return nil
}

// Params returns the controller tuning
func (p *Profile) Params() core.Params {
	return core.Params{
		StoppedTime:  p.StoppedTime,
		Deadband:     p.Deadband,
		SearchSpeed:  p.SearchSpeed,
		SearchSweep:  p.SearchSweep,
		DefaultSpeed: p.DefaultSpeed,
	}
}

// Table returns the braking table, the built-in one unless overridden
func (p *Profile) Table() (*core.BrakingTable, error) {
	if p.BrakingTable == nil {
		return core.DefaultBrakingTable(), nil
	}
	return core.NewBrakingTable(p.BrakingTable)
}

// DefaultProfile returns the tuning of the reference gear motor
func DefaultProfile() *Profile {
	def := core.DefaultParams()
	return &Profile{
		Name:         "default",
		StoppedTime:  def.StoppedTime,
		Deadband:     def.Deadband,
		SearchSpeed:  def.SearchSpeed,
		SearchSweep:  def.SearchSweep,
		DefaultSpeed: def.DefaultSpeed,
	}
}
