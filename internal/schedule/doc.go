// Package schedule drives a [sim.Simulator] through the annealing phases.
//
// A run is a fixed sequence of steps:
//
//   - warmup: the rate ramps linearly from a tenth of its base value
//   - main: base rate, or a decay toward the final rate when no squeeze
//     finalisation follows
//   - squeeze rampup: once per surplus coordinate, from the highest index
//     down, the central force on that coordinate grows exponentially to the
//     squeeze force
//   - squeeze final: squeeze force fixed, rate decays to the final rate
//
// Every iteration shares one global counter. Observers see the coordinates
// before each step; metrics see a [Record] after it.
package schedule
