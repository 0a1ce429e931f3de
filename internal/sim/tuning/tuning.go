package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Weekly reset policies understood by the playback engine.
const (
	WeeklyResetMod7 = "mod7"
	WeeklyResetDay6 = "day6"
)

type Tuning struct {
	GrowthRateKg  float64 `yaml:"growth_rate_kg" json:"growth_rate_kg"`
	WeeklyReset   string  `yaml:"weekly_reset" json:"weekly_reset"`
	MaxDays       int     `yaml:"max_days" json:"max_days"`
	MaxLogEntries int     `yaml:"max_log_entries" json:"max_log_entries"`

	FetchTimeoutMs int `yaml:"fetch_timeout_ms" json:"fetch_timeout_ms"`

	Slaughterhouse Slaughterhouse `yaml:"slaughterhouse" json:"slaughterhouse"`
}

// Slaughterhouse fills fields the dataset leaves empty.
type Slaughterhouse struct {
	Name     string  `yaml:"name" json:"name"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lng      float64 `yaml:"lng" json:"lng"`
	Capacity int     `yaml:"capacity" json:"capacity"`
}

func Defaults() Tuning {
	return Tuning{
		GrowthRateKg:   0.9,
		WeeklyReset:    WeeklyResetMod7,
		MaxLogEntries:  1000,
		FetchTimeoutMs: 30000,
		Slaughterhouse: Slaughterhouse{
			Name:     "Central Vic",
			Lat:      41.930,
			Lng:      2.254,
			Capacity: 2000,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.WeeklyReset = strings.ToLower(strings.TrimSpace(t.WeeklyReset))
	if t.WeeklyReset == "" {
		t.WeeklyReset = WeeklyResetMod7
	}
	if t.MaxDays < 0 {
		t.MaxDays = 0
	}
	if t.MaxLogEntries < 0 {
		t.MaxLogEntries = 0
	}
	if t.FetchTimeoutMs <= 0 {
		t.FetchTimeoutMs = 30000
	}
	t.Slaughterhouse.Name = strings.TrimSpace(t.Slaughterhouse.Name)
}

func (t Tuning) Validate() error {
	if t.GrowthRateKg < 0 {
		return fmt.Errorf("growth_rate_kg must be >= 0 (got %v)", t.GrowthRateKg)
	}
	switch t.WeeklyReset {
	case WeeklyResetMod7, WeeklyResetDay6:
	default:
		return fmt.Errorf("unknown weekly_reset %q (want %s or %s)", t.WeeklyReset, WeeklyResetMod7, WeeklyResetDay6)
	}
	return nil
}
