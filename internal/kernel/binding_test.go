package kernel

import (
	"errors"
	"testing"

	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffer(t *testing.T, dev *compute.CPUDevice, n int) compute.Buffer {
	t.Helper()
	buf, err := dev.NewBuffer(make([]field.Particle, n))
	require.NoError(t, err)
	return buf
}

func TestBind(t *testing.T) {
	dev := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256})
	buf := newBuffer(t, dev, 1000)

	b, err := Bind(dev, compute.EntrySpiral, buf, 256)
	require.NoError(t, err)
	assert.Equal(t, compute.EntrySpiral, b.Entry())
	assert.Equal(t, 256, b.ThreadsPerGroup())
	assert.Equal(t, 4, b.Groups())
}

func TestBindMissingEntry(t *testing.T) {
	dev := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256})
	buf := newBuffer(t, dev, 10)

	_, err := Bind(dev, "CSDoesNotExist", buf, 256)
	require.Error(t, err)
	assert.True(t, errors.Is(err, field.ErrEntryNotFound))
}

func TestBindThreadMismatch(t *testing.T) {
	dev := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256})
	buf := newBuffer(t, dev, 10)

	_, err := Bind(dev, compute.EntrySpiral, buf, 128)
	assert.True(t, errors.Is(err, field.ErrInvalidConfiguration))

	_, err = Bind(dev, compute.EntrySpiral, buf, 0)
	assert.True(t, errors.Is(err, field.ErrInvalidConfiguration))
}

func TestDispatchAgesEveryParticle(t *testing.T) {
	dev := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256})
	buf := newBuffer(t, dev, 257)

	b, err := Bind(dev, compute.EntryLifetime, buf, 256)
	require.NoError(t, err)
	require.Equal(t, 2, b.Groups())

	dev.SetFloat(compute.ParamParticleLifetime, 10)
	dev.SetFloat(compute.ParamDeltaTime, 0.25)
	b.Dispatch(b.Groups())

	out := make([]field.Particle, 257)
	_, err = dev.Snapshot(buf, out)
	require.NoError(t, err)
	for _, p := range out {
		assert.Equal(t, float32(0.25), p.Life)
	}
}
