// Package field provides the core data model for vector field particle simulation.
//
// The package defines the particle layout shared by every compute device and the
// policies that do not depend on a device:
//
//   - [Particle]: one simulated point (position, spawn anchor, age)
//   - [Initialize]: seeds a population inside a spawn box with randomized ages
//   - [GroupCount]: thread-group count needed to cover a population
//   - [ParallelFor]: chunked parallel loop used by CPU kernels
//
// # Example
//
//	rng := rand.New(rand.NewSource(seed))
//	particles, err := field.Initialize(1000, mgl32.Vec3{5, 5, 5}, 5, rng)
//	groups := field.GroupCount(len(particles), 256)
//
// # Errors
//
// Startup failures are reported with the sentinel errors in this package so that
// callers can test them with errors.Is regardless of which device produced them.
package field
