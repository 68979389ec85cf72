// Package kernel binds named compute entry points to the particle buffer.
package kernel

import (
	"fmt"

	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/field"
)

// Binding is a resolved entry point with the particle buffer bound as its storage
// argument. It is immutable after Bind.
type Binding struct {
	dev     compute.Device
	entry   string
	id      compute.EntryID
	buf     compute.Buffer
	threads int
}

// Bind resolves entry on dev and binds buf to it. A missing entry is reported as
// field.ErrEntryNotFound.
func Bind(dev compute.Device, entry string, buf compute.Buffer, threadsPerGroup int) (*Binding, error) {
	if threadsPerGroup <= 0 {
		return nil, &field.ConfigError{Field: "threads_per_group", Reason: "must be positive"}
	}
	if threadsPerGroup != dev.ThreadsPerGroup() {
		return nil, &field.ConfigError{
			Field:  "threads_per_group",
			Reason: fmt.Sprintf("%d does not match the program workgroup size %d", threadsPerGroup, dev.ThreadsPerGroup()),
		}
	}

	id, err := dev.Entry(entry)
	if err != nil {
		return nil, err
	}
	if err := dev.Bind(id, buf); err != nil {
		return nil, fmt.Errorf("kernel: bind %s: %w", entry, err)
	}

	return &Binding{dev: dev, entry: entry, id: id, buf: buf, threads: threadsPerGroup}, nil
}

func (b *Binding) Entry() string        { return b.entry }
func (b *Binding) ThreadsPerGroup() int { return b.threads }

// Groups is the group count that covers the whole bound buffer.
func (b *Binding) Groups() int {
	return field.GroupCount(b.buf.Count(), b.threads)
}

// Dispatch issues one compute invocation of groups thread groups.
func (b *Binding) Dispatch(groups int) {
	b.dev.Dispatch(b.id, groups)
}
