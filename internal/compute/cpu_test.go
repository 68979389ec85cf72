package compute

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, threads int) *CPUDevice {
	t.Helper()
	return NewCPUDevice(Options{ThreadsPerGroup: threads})
}

func seeded(t *testing.T, n int) []field.Particle {
	t.Helper()
	particles, err := field.Initialize(n, mgl32.Vec3{4, 4, 1}, 5, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return particles
}

func snapshot(t *testing.T, dev *CPUDevice, buf Buffer) []field.Particle {
	t.Helper()
	out := make([]field.Particle, buf.Count())
	n, err := dev.Snapshot(buf, out)
	require.NoError(t, err)
	require.Equal(t, buf.Count(), n)
	return out
}

func TestCPUEntryResolution(t *testing.T) {
	dev := newTestDevice(t, 256)

	for _, name := range []string{EntryLifetime, EntryRepel, EntrySpiral, EntryEyes, EntryOpticalIllusion} {
		_, err := dev.Entry(name)
		assert.NoError(t, err, name)
	}

	_, err := dev.Entry("CSVortex")
	require.Error(t, err)
	assert.True(t, errors.Is(err, field.ErrEntryNotFound))

	var entryErr *field.EntryError
	require.True(t, errors.As(err, &entryErr))
	assert.Equal(t, "CSVortex", entryErr.Entry)
}

func TestCPUAllocationCap(t *testing.T) {
	dev := NewCPUDevice(Options{ThreadsPerGroup: 64, MaxBufferBytes: 10 * field.Stride})

	_, err := dev.NewBuffer(seeded(t, 11))
	require.Error(t, err)
	assert.True(t, errors.Is(err, field.ErrResourceAllocation))

	buf, err := dev.NewBuffer(seeded(t, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Count())
}

func TestCPUBufferReleaseIsIdempotent(t *testing.T) {
	dev := newTestDevice(t, 64)
	buf, err := dev.NewBuffer(seeded(t, 8))
	require.NoError(t, err)

	assert.False(t, buf.Released())
	buf.Release()
	buf.Release()
	assert.True(t, buf.Released())

	_, err = dev.Snapshot(buf, make([]field.Particle, 8))
	assert.Error(t, err)
}

func TestCPUUploadCopiesInput(t *testing.T) {
	dev := newTestDevice(t, 64)
	src := seeded(t, 4)
	buf, err := dev.NewBuffer(src)
	require.NoError(t, err)

	src[0].Life = 99
	assert.NotEqual(t, float32(99), snapshot(t, dev, buf)[0].Life)
}

func TestCPULifetimeZeroDeltaKeepsAges(t *testing.T) {
	dev := newTestDevice(t, 256)
	src := seeded(t, 1000)
	buf, err := dev.NewBuffer(src)
	require.NoError(t, err)

	id, err := dev.Entry(EntryLifetime)
	require.NoError(t, err)
	require.NoError(t, dev.Bind(id, buf))
	dev.SetFloat(ParamParticleLifetime, 5)
	dev.SetFloat(ParamDeltaTime, 0)

	for i := 0; i < 20; i++ {
		dev.Dispatch(id, field.GroupCount(1000, 256))
	}
	assert.Equal(t, src, snapshot(t, dev, buf))
}

func TestCPULifetimeAgesAndRespawns(t *testing.T) {
	dev := newTestDevice(t, 4)
	src := []field.Particle{
		{Position: mgl32.Vec3{9, 9, 9}, InitialPosition: mgl32.Vec3{1, 1, 1}, Life: 4.9},
		{Position: mgl32.Vec3{2, 2, 2}, InitialPosition: mgl32.Vec3{0, 0, 0}, Life: 1},
	}
	buf, err := dev.NewBuffer(src)
	require.NoError(t, err)

	id, err := dev.Entry(EntryLifetime)
	require.NoError(t, err)
	require.NoError(t, dev.Bind(id, buf))
	dev.SetFloat(ParamParticleLifetime, 5)
	dev.SetFloat(ParamDeltaTime, 0.5)
	dev.Dispatch(id, 1)

	got := snapshot(t, dev, buf)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, got[0].Position)
	assert.Zero(t, got[0].Life)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, got[1].Position)
	assert.InDelta(t, 1.5, got[1].Life, 1e-6)
}

func TestCPUDispatchCoversEveryParticleOnce(t *testing.T) {
	for _, n := range []int{1, 255, 256, 257, 1000} {
		dev := newTestDevice(t, 256)
		src := make([]field.Particle, n)
		buf, err := dev.NewBuffer(src)
		require.NoError(t, err)

		id, err := dev.Entry(EntryLifetime)
		require.NoError(t, err)
		require.NoError(t, dev.Bind(id, buf))
		dev.SetFloat(ParamParticleLifetime, 100)
		dev.SetFloat(ParamDeltaTime, 1)
		dev.Dispatch(id, field.GroupCount(n, 256))

		for i, p := range snapshot(t, dev, buf) {
			require.Equal(t, float32(1), p.Life, "n=%d index=%d", n, i)
		}
	}
}

func TestCPURepelPushesAwayInsideRadius(t *testing.T) {
	dev := newTestDevice(t, 8)
	src := []field.Particle{
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{5, 0, 0}},
	}
	buf, err := dev.NewBuffer(src)
	require.NoError(t, err)

	id, err := dev.Entry(EntryRepel)
	require.NoError(t, err)
	require.NoError(t, dev.Bind(id, buf))
	dev.SetVector(ParamRepelPosition, mgl32.Vec3{0, 0, 0})
	dev.SetFloat(ParamRepelRadius, 2)
	dev.SetFloat(ParamRepelPower, 2)
	dev.SetFloat(ParamDeltaTime, 0.1)
	dev.Dispatch(id, 1)

	got := snapshot(t, dev, buf)
	assert.Greater(t, got[0].Position.X(), float32(1))
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, got[1].Position)
}

func TestCPUBehaviorKernelsStayBounded(t *testing.T) {
	for _, entry := range []string{EntrySpiral, EntryEyes, EntryOpticalIllusion} {
		t.Run(entry, func(t *testing.T) {
			dev := newTestDevice(t, 64)
			buf, err := dev.NewBuffer(seeded(t, 500))
			require.NoError(t, err)

			id, err := dev.Entry(entry)
			require.NoError(t, err)
			require.NoError(t, dev.Bind(id, buf))
			dev.SetFloat(ParamDeltaTime, 1.0/60)
			for i := 0; i < 600; i++ {
				dev.Dispatch(id, field.GroupCount(500, 64))
			}

			for _, p := range snapshot(t, dev, buf) {
				require.Less(t, p.Position.Len(), float32(20))
			}
		})
	}
}

func TestCPUSecondKernelSeesFirstKernelWrites(t *testing.T) {
	dev := newTestDevice(t, 64)
	original := seeded(t, 300)
	buf, err := dev.NewBuffer(original)
	require.NoError(t, err)

	illusion, err := dev.Entry(EntryOpticalIllusion)
	require.NoError(t, err)
	spiral, err := dev.Entry(EntrySpiral)
	require.NoError(t, err)
	require.NoError(t, dev.Bind(illusion, buf))
	require.NoError(t, dev.Bind(spiral, buf))

	dev.SetFloat(ParamDeltaTime, 0.1)
	groups := field.GroupCount(len(original), 64)
	dev.Dispatch(illusion, groups)
	dev.Dispatch(spiral, groups)
	got := snapshot(t, dev, buf)

	prm := Params{DeltaTime: 0.1}
	differs := 0
	for i, p := range original {
		composed := p
		opticalIllusionKernel(&composed, &prm)
		spiralKernel(&composed, &prm)

		spiralOnly := p
		spiralKernel(&spiralOnly, &prm)

		for k := 0; k < 3; k++ {
			require.InDelta(t, composed.Position[k], got[i].Position[k], 1e-5)
		}
		if !got[i].Position.ApproxEqualThreshold(spiralOnly.Position, 1e-4) {
			differs++
		}
	}
	assert.Positive(t, differs, "the spiral must run on the illusion's output, not the original positions")
}

func TestCPUUnboundDispatchPanics(t *testing.T) {
	dev := newTestDevice(t, 64)
	id, err := dev.Entry(EntrySpiral)
	require.NoError(t, err)
	assert.Panics(t, func() { dev.Dispatch(id, 1) })
}

func TestOpen(t *testing.T) {
	dev, err := Open("cpu", Options{ThreadsPerGroup: 128})
	require.NoError(t, err)
	assert.Equal(t, "cpu", dev.Name())
	assert.Equal(t, 128, dev.ThreadsPerGroup())

	_, err = Open("quantum", Options{ThreadsPerGroup: 128})
	assert.True(t, errors.Is(err, field.ErrInvalidConfiguration))

	_, err = Open("cpu", Options{})
	assert.True(t, errors.Is(err, field.ErrInvalidConfiguration))

	auto, err := Open("auto", Options{ThreadsPerGroup: 256})
	require.NoError(t, err)
	assert.True(t, auto.Available())
	auto.Cleanup()
}

func TestNeedsContext(t *testing.T) {
	assert.True(t, NeedsContext("gl"))
	for _, name := range []string{"", "auto", "cpu", "wgpu"} {
		assert.False(t, NeedsContext(name), name)
	}
}

func TestParamsBytesLayout(t *testing.T) {
	p := Params{DeltaTime: 1, RepelRadius: 2, RepelPower: 3, ParticleLifetime: 4, RepelPosition: mgl32.Vec3{5, 6, 7}, ParticleCount: 8}
	b := p.bytes()
	require.Len(t, b, 32)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, b[0:4])
	assert.Equal(t, []byte{8, 0, 0, 0}, b[28:32])
}

func TestRecorderTracksOrderAndParams(t *testing.T) {
	rec := NewRecorder(newTestDevice(t, 64))
	buf, err := rec.NewBuffer(seeded(t, 100))
	require.NoError(t, err)

	life, err := rec.Entry(EntryLifetime)
	require.NoError(t, err)
	repel, err := rec.Entry(EntryRepel)
	require.NoError(t, err)
	require.NoError(t, rec.Bind(life, buf))
	require.NoError(t, rec.Bind(repel, buf))

	rec.SetFloat(ParamDeltaTime, 0.5)
	rec.SetVector(ParamRepelPosition, mgl32.Vec3{1, 2, 3})
	rec.Dispatch(repel, 2)
	rec.SetFloat(ParamDeltaTime, 0.25)
	rec.Dispatch(life, 2)

	calls := rec.Drain()
	require.Len(t, calls, 2)
	assert.Equal(t, EntryRepel, calls[0].Entry)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, calls[0].Params.RepelPosition)
	assert.Equal(t, float32(0.5), calls[0].Params.DeltaTime)
	assert.Equal(t, EntryLifetime, calls[1].Entry)
	assert.Equal(t, float32(0.25), calls[1].Params.DeltaTime)
	assert.Empty(t, rec.Calls())

	out := make([]field.Particle, 100)
	n, err := rec.Snapshot(buf, out)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}
