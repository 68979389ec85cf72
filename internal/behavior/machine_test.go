package behavior_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/behavior"
	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/field"
)

type transition struct {
	from, to string
	at       float64
}

type transitionLog struct {
	seen []transition
}

func (l *transitionLog) OnTransition(from, to *behavior.State, at float64) {
	l.seen = append(l.seen, transition{from: from.Name(), to: to.Name(), at: at})
}

func entries(calls []compute.Call) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Entry
	}
	return names
}

var _ = Describe("State", func() {
	var (
		rec *compute.Recorder
		buf compute.Buffer
	)

	BeforeEach(func() {
		rec = compute.NewRecorder(compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256}))
		var err error
		buf, err = rec.NewBuffer(make([]field.Particle, 1000))
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a state without kernels", func() {
		_, err := behavior.NewState("empty", rec, buf, 256)
		Expect(err).To(HaveOccurred())
	})

	It("fails with ErrEntryNotFound for an unknown entry", func() {
		_, err := behavior.NewState("bogus", rec, buf, 256, compute.EntrySpiral, "CSNope")
		Expect(errors.Is(err, field.ErrEntryNotFound)).To(BeTrue())
	})

	It("dispatches a single kernel over the whole population", func() {
		s, err := behavior.NewState("spiral", rec, buf, 256, compute.EntrySpiral)
		Expect(err).NotTo(HaveOccurred())

		s.Advance()
		Expect(rec.Drain()).To(Equal([]compute.Call{{Entry: compute.EntrySpiral, Groups: 4}}))
	})

	It("dispatches both kernels of the combination, in configured order, every time", func() {
		s, err := behavior.NewState("combination", rec, buf, 256, compute.EntryOpticalIllusion, compute.EntrySpiral)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Entries()).To(Equal([]string{compute.EntryOpticalIllusion, compute.EntrySpiral}))

		for i := 0; i < 3; i++ {
			s.Advance()
			Expect(entries(rec.Drain())).To(Equal([]string{compute.EntryOpticalIllusion, compute.EntrySpiral}))
		}
	})
})

var _ = Describe("State on the CPU device", func() {
	const dt = 0.1

	var original []field.Particle

	BeforeEach(func() {
		var err error
		original, err = field.Initialize(500, mgl32.Vec3{4, 4, 1}, 5, rand.New(rand.NewSource(11)))
		Expect(err).NotTo(HaveOccurred())
	})

	// run uploads particles to a fresh device, advances one state built from
	// entries once, and returns the buffer contents.
	run := func(particles []field.Particle, entries ...string) []field.Particle {
		dev := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 64})
		buf, err := dev.NewBuffer(particles)
		Expect(err).NotTo(HaveOccurred())
		defer buf.Release()

		s, err := behavior.NewState("under_test", dev, buf, 64, entries...)
		Expect(err).NotTo(HaveOccurred())
		dev.SetFloat(compute.ParamDeltaTime, dt)
		s.Advance()

		out := make([]field.Particle, len(particles))
		_, err = dev.Snapshot(buf, out)
		Expect(err).NotTo(HaveOccurred())
		return out
	}

	It("runs the combination's spiral on the optical illusion's output within one frame", func() {
		combined := run(original, compute.EntryOpticalIllusion, compute.EntrySpiral)
		illusionOnly := run(original, compute.EntryOpticalIllusion)
		chained := run(illusionOnly, compute.EntrySpiral)
		spiralOnly := run(original, compute.EntrySpiral)

		differs := 0
		for i := range original {
			for k := 0; k < 3; k++ {
				Expect(combined[i].Position[k]).To(BeNumerically("~", chained[i].Position[k], 1e-5))
			}
			if !combined[i].Position.ApproxEqualThreshold(spiralOnly[i].Position, 1e-4) {
				differs++
			}
		}
		Expect(differs).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Machine", func() {
	var (
		rec    *compute.Recorder
		states []*behavior.State
		m      *behavior.Machine
		log    *transitionLog
	)

	BeforeEach(func() {
		rec = compute.NewRecorder(compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 256}))
		buf, err := rec.NewBuffer(make([]field.Particle, 300))
		Expect(err).NotTo(HaveOccurred())

		states, err = behavior.BuildRing(rec, buf, 256, behavior.ReferenceRing)
		Expect(err).NotTo(HaveOccurred())
		m, err = behavior.NewMachine(30, states...)
		Expect(err).NotTo(HaveOccurred())
		log = &transitionLog{}
		m.AddObserver(log)
	})

	It("rejects an empty ring and a non-positive dwell", func() {
		_, err := behavior.NewMachine(30)
		Expect(err).To(HaveOccurred())
		_, err = behavior.NewMachine(0, states...)
		Expect(err).To(HaveOccurred())
	})

	It("starts on the first configured state", func() {
		Expect(m.Active().Name()).To(Equal("spiral"))
		Expect(m.ActiveIndex()).To(Equal(0))
	})

	It("follows spiral, eyes, optical illusion, combination", func() {
		var order []string
		for i := 0; i < 4; i++ {
			order = append(order, m.Active().Name())
			Expect(m.Update(31)).To(BeTrue())
		}
		Expect(order).To(Equal([]string{"spiral", "eyes", "optical_illusion", "combination"}))
		Expect(m.Active().Name()).To(Equal("spiral"))
	})

	DescribeTable("is periodic with period 4 for any tick rate",
		func(dt float64) {
			start := m.ActiveIndex()
			transitions := 0
			seen := map[int]bool{start: true}
			for transitions < 4 {
				if m.Update(dt) {
					transitions++
					if transitions < 4 {
						Expect(m.ActiveIndex()).NotTo(Equal(start))
						seen[m.ActiveIndex()] = true
					}
				}
			}
			Expect(m.ActiveIndex()).To(Equal(start))
			Expect(seen).To(HaveLen(4))
		},
		Entry("60 Hz", 1.0/60),
		Entry("1 Hz", 1.0),
		Entry("one tick per dwell", 30.5),
		Entry("stalled host", 500.0),
	)

	It("does not transition at exactly the dwell", func() {
		Expect(m.Update(30)).To(BeFalse())
		Expect(m.Active().Name()).To(Equal("spiral"))
		Expect(m.Update(0.001)).To(BeTrue())
		Expect(m.Active().Name()).To(Equal("eyes"))
	})

	It("resets the dwell timer to the tick's timestamp", func() {
		for i := 0; i < 6; i++ {
			Expect(m.Update(5)).To(BeFalse())
		}
		Expect(m.Update(5)).To(BeTrue()) // clock 35
		Expect(m.LastTransition()).To(Equal(35.0))
		Expect(m.Clock()).To(Equal(35.0))

		Expect(m.Update(30)).To(BeFalse()) // exactly one dwell since 35
		Expect(m.Update(1)).To(BeTrue())
		Expect(m.LastTransition()).To(Equal(66.0))
	})

	It("advances exactly one step even when many dwells elapsed", func() {
		Expect(m.Update(1000)).To(BeTrue())
		Expect(m.Active().Name()).To(Equal("eyes"))
		Expect(m.Update(0)).To(BeFalse())
		Expect(m.Active().Name()).To(Equal("eyes"))
	})

	It("notifies observers with the from and to states", func() {
		m.Update(31)
		m.Update(31)
		Expect(log.seen).To(Equal([]transition{
			{from: "spiral", to: "eyes", at: 31},
			{from: "eyes", to: "optical_illusion", at: 62},
		}))
	})

	It("exposes the ring through Successor", func() {
		for i := 0; i < m.Len(); i++ {
			Expect(m.Successor(i)).To(Equal((i + 1) % 4))
		}
		Expect(m.States()).To(HaveLen(4))
	})
})
