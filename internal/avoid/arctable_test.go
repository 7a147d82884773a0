package avoid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArcTableCircumferenceConvergesOnCircle(t *testing.T) {
	const r = 7.0
	want := 2 * math.Pi * r

	coarse := BuildArcTable(r, r, 8)
	fine := BuildArcTable(r, r, 64)

	assert.InEpsilon(t, want, fine.Circumference(), 1e-3)
	assert.Less(t,
		math.Abs(fine.Circumference()-want),
		math.Abs(coarse.Circumference()-want),
		"more samples must approximate better")
}

func TestArcTableStepFullLapReturnsToStart(t *testing.T) {
	table := BuildArcTable(8, 5.5, 24)
	lap := table.Circumference()
	delta := (math.Pi / 2) / 24

	for _, start := range []float64{0, delta * 3, math.Pi, delta * 90} {
		end := table.Step(start, lap, false)
		diff := math.Abs(math.Mod(end-start+3*math.Pi, 2*math.Pi) - math.Pi)
		assert.InDeltaf(t, 0, diff, delta, "start %.3f", start)
	}
}

func TestArcTableStepHalfLapOnCircle(t *testing.T) {
	table := BuildArcTable(5, 5, 32)
	half := table.Circumference() / 2

	end := table.Step(0, half, false)
	assert.InDelta(t, math.Pi, end, 0.05)

	end = table.Step(0, half, true)
	assert.InDelta(t, math.Pi, end, 0.05)
}

func TestArcTableStepClockwiseWrapsZero(t *testing.T) {
	table := BuildArcTable(5, 5, 32)
	quarter := table.Circumference() / 4

	end := table.Step(0, quarter, true)
	assert.InDelta(t, 3*math.Pi/2, end, 0.05)
	assert.GreaterOrEqual(t, end, 0.0)
	assert.Less(t, end, 2*math.Pi)
}

func TestArcTableStepMatchesIntegratedArcLength(t *testing.T) {
	const a, b = 8.0, 5.5
	table := BuildArcTable(a, b, 24)

	for _, distance := range []float64{0.5, 2.0, 6.0, 11.0} {
		end := table.Step(0, distance, false)
		got := integrateArc(a, b, 0, end)
		assert.InEpsilonf(t, distance, got, 0.02, "distance %.1f", distance)
	}
}

// integrateArc numerically measures boundary length between two parametric
// angles, for checking the table against ground truth.
func integrateArc(a, b, from, to float64) float64 {
	const steps = 20000
	sum := 0.0
	h := (to - from) / steps
	for i := 0; i < steps; i++ {
		angle := from + (float64(i)+0.5)*h
		sin, cos := math.Sincos(angle)
		sum += math.Hypot(a*sin, b*cos) * h
	}
	return sum
}

func TestArcTableStepRoundTrip(t *testing.T) {
	table := BuildArcTable(8, 5.5, 48)
	delta := (math.Pi / 2) / 48

	for _, start := range []float64{0.3, math.Pi / 2, 2.4, 5.9} {
		for _, distance := range []float64{0.5, 3.0, 9.0} {
			mid := table.Step(start, distance, false)
			back := table.Step(mid, distance, true)
			diff := math.Abs(math.Mod(back-start+3*math.Pi, 2*math.Pi) - math.Pi)
			assert.InDeltaf(t, 0, diff, 2*delta, "start %.2f distance %.1f", start, distance)
		}
	}
}

func TestArcTableIndexClampStaysInRange(t *testing.T) {
	table := BuildArcTable(8, 5.5, 24)
	total := 4 * table.Samples()

	for i := -5 * total; i <= 5*total; i++ {
		idx := table.clampIndex(i)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, total)
	}
}

func TestArcTableStepHostileInputs(t *testing.T) {
	table := BuildArcTable(8, 5.5, 24)

	for _, start := range []float64{-37.3, 12345.6, -math.Pi / 7} {
		for _, distance := range []float64{0, 0.1, 1e6} {
			for _, cw := range []bool{false, true} {
				end := table.Step(start, distance, cw)
				assert.GreaterOrEqual(t, end, 0.0)
				assert.Less(t, end, 2*math.Pi+1e-9)
			}
		}
	}
}

func TestArcTableDegenerate(t *testing.T) {
	table := BuildArcTable(0, 0, 24)
	assert.Equal(t, 0.0, table.Circumference())

	// A zero-chord table must terminate and stay in range.
	end := table.Step(1.0, 5.0, false)
	assert.GreaterOrEqual(t, end, 0.0)
	assert.Less(t, end, 2*math.Pi)

	var nilTable *ArcTable
	assert.Equal(t, 1.5, nilTable.Step(1.5, 3, false))
	assert.Equal(t, 0.0, nilTable.Circumference())
}

func TestArcTableMirroredQuadrants(t *testing.T) {
	table := BuildArcTable(8, 5.5, 16)

	// The chord just past the quarter boundary mirrors the one just before
	// it, and the third quadrant repeats the first.
	assert.InDelta(t, table.chord(15), table.chord(16), 1e-12)
	assert.InDelta(t, table.chord(0), table.chord(31), 1e-12)
	assert.InDelta(t, table.chord(3), table.chord(32+3), 1e-12)
}
