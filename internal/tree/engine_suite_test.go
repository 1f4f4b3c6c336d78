package tree_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/san-kum/mbtree/internal/tree"
)

var _ = Describe("Engine", func() {
	var (
		tr  *tree.Tree
		st  *state.State
		eng *tree.Engine
		ctx context.Context
	)

	// A chain of n links, each a unit point mass one unit below its pin.
	chain := func(n int) *tree.Tree {
		t := tree.New()
		parent := tree.Ground
		for i := 0; i < n; i++ {
			xPJb := spatial.IdentityTransform()
			if i > 0 {
				xPJb = spatial.Translation(spatial.Vec3{Y: -1})
			}
			id, err := t.AddBody(parent, tree.Body{
				Joint: joint.Pin,
				Mass:  spatial.PointMass(1, spatial.Vec3{Y: -1}),
				XPJb:  xPJb,
				XBJ:   spatial.IdentityTransform(),
			})
			Expect(err).NotTo(HaveOccurred())
			parent = id
		}
		Expect(t.Finish()).To(Succeed())
		return t
	}

	BeforeEach(func() {
		ctx = context.Background()
		tr = chain(5)
		var err error
		st, err = tr.NewState()
		Expect(err).NotTo(HaveOccurred())
		eng, err = tree.NewEngine(tr, tree.NewParallel(2))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("building", func() {
		It("assigns one level per link", func() {
			Expect(tr.Levels()).To(HaveLen(6))
			for l, level := range tr.Levels() {
				Expect(level).To(ConsistOf(l))
			}
		})

		It("starts every node at the empty stage", func() {
			Expect(st.Stage()).To(Equal(stage.Empty))
		})
	})

	Describe("realizing", func() {
		It("keeps a hanging chain at rest", func() {
			Expect(eng.Realize(ctx, st, stage.Configuration)).To(Succeed())
			g, err := tr.GravityForces(st, spatial.Vec3{Y: -9.81})
			Expect(err).NotTo(HaveOccurred())
			copy(st.UpdAppliedBodyForces(), g)

			Expect(eng.Realize(ctx, st, stage.Reaction)).To(Succeed())
			for _, a := range st.Reaction.UDot {
				Expect(a).To(BeNumerically("~", 0, 1e-12))
			}
		})

		It("places the tip at the end of the chain", func() {
			Expect(eng.Realize(ctx, st, stage.Configuration)).To(Succeed())
			tip := st.Configuration.COMG[5]
			Expect(tip.Y).To(BeNumerically("~", -5, 1e-12))
		})

		It("conserves total energy", func() {
			q := st.UpdQ()
			for i := range q {
				q[i] = 0.2 * float64(i+1)
			}
			st.UpdU()[2] = 1.5

			energy := func(s *state.State) float64 {
				ke, err := tr.KineticEnergy(s)
				Expect(err).NotTo(HaveOccurred())
				pe, err := tr.PotentialEnergy(s, spatial.Vec3{Y: -9.81})
				Expect(err).NotTo(HaveOccurred())
				return ke + pe
			}

			Expect(eng.Realize(ctx, st, stage.Configuration)).To(Succeed())
			g, err := tr.GravityForces(st, spatial.Vec3{Y: -9.81})
			Expect(err).NotTo(HaveOccurred())
			copy(st.UpdAppliedBodyForces(), g)
			Expect(eng.Realize(ctx, st, stage.Reaction)).To(Succeed())

			const h = 1e-6
			step := func(sign float64) *state.State {
				next := st.Clone()
				nq := next.UpdQ()
				for i := range nq {
					nq[i] += sign * h * st.Motion.QDot[i]
				}
				nu := next.UpdU()
				for i := range nu {
					nu[i] += sign * h * st.Reaction.UDot[i]
				}
				Expect(eng.Realize(ctx, next, stage.Motion)).To(Succeed())
				return next
			}

			rate := (energy(step(1)) - energy(step(-1))) / (2 * h)
			Expect(math.Abs(rate)).To(BeNumerically("<", 1e-5))
		})

		It("reports a stage order violation when stages are skipped", func() {
			err := eng.RealizeStage(ctx, st, stage.Dynamics)
			Expect(err).To(MatchError(stage.ErrStageOrderViolation))
		})

		It("recomputes only what a speed change invalidates", func() {
			Expect(eng.Realize(ctx, st, stage.Reaction)).To(Succeed())
			xgb := st.Configuration.XGB[3]

			st.UpdNodeU(3)[0] = 2
			Expect(st.NodeStage(3)).To(Equal(stage.Configuration))
			Expect(st.NodeStage(1)).To(Equal(stage.Motion))
			Expect(st.Configuration.XGB[3]).To(Equal(xgb))

			Expect(eng.Realize(ctx, st, stage.Reaction)).To(Succeed())
			Expect(st.Motion.VGB[3].Angular().Z).To(BeNumerically("~", 2, 1e-12))
			Expect(st.Motion.VGB[5].Angular().Z).To(BeNumerically("~", 2, 1e-12))
			Expect(st.Motion.VGB[2].Angular().Z).To(BeNumerically("~", 0, 1e-12))
		})
	})
})
