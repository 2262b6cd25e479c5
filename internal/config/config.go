package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dimreduce/internal/embed"
	"github.com/san-kum/dimreduce/internal/schedule"
)

const (
	DefaultIters                    = 100
	DefaultRate                     = 0.01
	DefaultInertia                  = 0.9
	DefaultCentralForce             = 20.0
	DefaultSameParticleForce        = 0.2
	DefaultSeed              uint64 = 1

	finalRateFactor     = 0.02
	rampupRateFactor    = 0.2
	squeezeForceFactor  = 10.0
	warmupItersFraction = 2
)

// Config is the user-facing run configuration. A nil field means "not set"
// so that presets, files and flags can be layered with Merge.
//
// central_force and squeeze_final_force are relative: they are multiplied by
// the average affinity when the schedule is resolved.
type Config struct {
	Iters             *int     `yaml:"n_iters,omitempty"`
	WarmupIters       *int     `yaml:"warmup_iters,omitempty"`
	Rate              *float64 `yaml:"rate,omitempty"`
	FinalRate         *float64 `yaml:"final_rate,omitempty"`
	InertiaMultiplier *float64 `yaml:"inertia_multiplier,omitempty"`
	CentralForce      *float64 `yaml:"central_force,omitempty"`
	SameParticleForce *float64 `yaml:"same_particle_force,omitempty"`

	Retain                  *int     `yaml:"retain,omitempty"`
	SqueezeRampupRate       *float64 `yaml:"squeeze_rampup_rate,omitempty"`
	SqueezeRampupIters      *int     `yaml:"squeeze_rampup_iters,omitempty"`
	SqueezeFinalForce       *float64 `yaml:"squeeze_final_force,omitempty"`
	SqueezeFinalInitialRate *float64 `yaml:"squeeze_final_initial_rate,omitempty"`
	SqueezeFinalIters       *int     `yaml:"squeeze_final_iters,omitempty"`

	Seed      *uint64 `yaml:"seed,omitempty"`
	Normalize *bool   `yaml:"normalize,omitempty"`
	Workers   *int    `yaml:"workers,omitempty"`
}

// RunOptions are the resolved settings outside the schedule itself.
type RunOptions struct {
	SameParticleForce float64
	Seed              uint64
	Normalize         bool
	Workers           int
}

func Int(v int) *int           { return &v }
func Float(v float64) *float64 { return &v }
func Bool(v bool) *bool        { return &v }
func Uint64(v uint64) *uint64  { return &v }

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown keys.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Merge returns a copy of c with every field set in over taking precedence.
func (c *Config) Merge(over *Config) *Config {
	out := &Config{}
	if c != nil {
		*out = *c
	}
	if over == nil {
		return out
	}
	pick(&out.Iters, over.Iters)
	pick(&out.WarmupIters, over.WarmupIters)
	pick(&out.Rate, over.Rate)
	pick(&out.FinalRate, over.FinalRate)
	pick(&out.InertiaMultiplier, over.InertiaMultiplier)
	pick(&out.CentralForce, over.CentralForce)
	pick(&out.SameParticleForce, over.SameParticleForce)
	pick(&out.Retain, over.Retain)
	pick(&out.SqueezeRampupRate, over.SqueezeRampupRate)
	pick(&out.SqueezeRampupIters, over.SqueezeRampupIters)
	pick(&out.SqueezeFinalForce, over.SqueezeFinalForce)
	pick(&out.SqueezeFinalInitialRate, over.SqueezeFinalInitialRate)
	pick(&out.SqueezeFinalIters, over.SqueezeFinalIters)
	pick(&out.Seed, over.Seed)
	pick(&out.Normalize, over.Normalize)
	pick(&out.Workers, over.Workers)
	return out
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func or[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// Options resolves the settings that do not depend on the data.
func (c *Config) Options() RunOptions {
	if c == nil {
		c = &Config{}
	}
	return RunOptions{
		SameParticleForce: or(c.SameParticleForce, DefaultSameParticleForce),
		Seed:              or(c.Seed, DefaultSeed),
		Normalize:         or(c.Normalize, false),
		Workers:           or(c.Workers, 0),
	}
}

// Resolve fills in defaults for d output coordinates and converts relative
// forces to absolute ones using avgAffinity.
func Resolve(c *Config, d int, avgAffinity float64) (schedule.Config, error) {
	if c == nil {
		c = &Config{}
	}
	if d < 1 {
		return schedule.Config{}, fmt.Errorf("%w: need at least one output coordinate, got %d", embed.ErrInvalidConfig, d)
	}

	iters := or(c.Iters, DefaultIters)
	rate := or(c.Rate, DefaultRate)
	central := or(c.CentralForce, DefaultCentralForce)
	retain := or(c.Retain, d)

	squeezeIters := 0
	if retain < d {
		squeezeIters = iters
	}
	rampupRate := or(c.SqueezeRampupRate, rampupRateFactor*rate)

	sc := schedule.Config{
		Iters:                   iters,
		WarmupIters:             or(c.WarmupIters, iters/warmupItersFraction),
		Rate:                    rate,
		FinalRate:               or(c.FinalRate, finalRateFactor*rate),
		InertiaMultiplier:       or(c.InertiaMultiplier, DefaultInertia),
		CentralForce:            central * avgAffinity,
		Retain:                  retain,
		SqueezeRampupRate:       rampupRate,
		SqueezeRampupIters:      or(c.SqueezeRampupIters, squeezeIters),
		SqueezeFinalForce:       or(c.SqueezeFinalForce, squeezeForceFactor*central) * avgAffinity,
		SqueezeFinalInitialRate: or(c.SqueezeFinalInitialRate, rampupRate),
		SqueezeFinalIters:       or(c.SqueezeFinalIters, squeezeIters),
	}
	if err := sc.Validate(d); err != nil {
		return schedule.Config{}, err
	}
	return sc, nil
}
