package sim

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Pointer is the repulsion input for one frame.
type Pointer struct {
	Active   bool
	Position mgl32.Vec3
}

// RunFixed submits frames with a fixed step until frames have run, ctx is done,
// or callback returns false. A nil callback runs without a pointer. frames <= 0
// runs until ctx is done.
func (s *Simulation) RunFixed(ctx context.Context, frames int, dt float32, callback func(frame uint64) (Pointer, bool)) error {
	if dt < 0 {
		return fmt.Errorf("sim: dt must not be negative, got %f", dt)
	}
	if s.closed {
		return errShutdown
	}

	for i := 0; frames <= 0 || i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var p Pointer
		if callback != nil {
			var ok bool
			p, ok = callback(s.frame)
			if !ok {
				return nil
			}
		}
		s.Tick(dt, p.Active, p.Position)
	}
	return nil
}
