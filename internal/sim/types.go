package sim

import "log/slog"

// Numeric floors guarding against coincident particles and vanishing forces.
const (
	MinSquaredDistance = 1e-4
	MinMaxForce        = 1e-4
)

// Params are the per-step knobs the schedule adjusts between steps.
type Params struct {
	// Rate is the target displacement of the most-pushed coordinate.
	Rate         float64
	CentralForce float64
	// SqueezeFrom is the first coordinate index that is being squeezed.
	// Coordinates below it use CentralForce.
	SqueezeFrom int
	// SqueezeForce applies to coordinate SqueezeFrom itself.
	SqueezeForce float64
	// SqueezeFinalForce applies to every coordinate above SqueezeFrom.
	SqueezeFinalForce float64
	InertiaMultiplier float64
	Debug             bool
}

// Options select optional simulator features. The zero value is the plain
// configuration: no momentum, no smoothing of the movement scaler, one
// goroutine, no diagnostics.
type Options struct {
	Momentum bool
	Workers  int
	Logger   *slog.Logger
}

// StepStats describes one completed step.
type StepStats struct {
	// MaxForce is the largest absolute force coordinate before flooring.
	MaxForce       float64
	MovementScaler float64
	Scale          float64
}
