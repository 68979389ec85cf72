package field

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Initialize seeds count particles inside the box [-extents, extents].
//
// Every particle starts on its anchor. Ages are drawn from [0, lifetime) so the
// population does not respawn in lockstep.
func Initialize(count int, extents mgl32.Vec3, lifetime float32, rng *rand.Rand) ([]Particle, error) {
	if count <= 0 {
		return nil, &ConfigError{Field: "particle_count", Reason: "must be positive"}
	}
	if lifetime <= 0 {
		return nil, &ConfigError{Field: "particle_lifetime", Reason: "must be positive"}
	}
	for i := 0; i < 3; i++ {
		if extents[i] < 0 {
			return nil, &ConfigError{Field: "spawn_extents", Reason: "must not be negative"}
		}
	}

	particles := make([]Particle, count)
	for i := range particles {
		anchor := mgl32.Vec3{
			uniform(rng, -extents[0], extents[0]),
			uniform(rng, -extents[1], extents[1]),
			uniform(rng, -extents[2], extents[2]),
		}
		particles[i] = Particle{
			Position:        anchor,
			InitialPosition: anchor,
			Life:            ageBelow(rng, lifetime),
		}
	}
	return particles, nil
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + (hi-lo)*rng.Float32()
}

// ageBelow keeps the draw strictly below lifetime; float32 rounding of
// rng.Float32()*lifetime can land on lifetime itself.
func ageBelow(rng *rand.Rand, lifetime float32) float32 {
	age := rng.Float32() * lifetime
	if age >= lifetime {
		age = 0
	}
	return age
}
