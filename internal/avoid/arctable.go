package avoid

import "math"

// ArcTable approximates arc length along an ellipse boundary. One quadrant
// is discretized into equal parametric-angle segments and the chord length
// of each is stored; symmetry serves the other three quadrants. Stepping a
// distance along the boundary walks segments, accumulating chords, and
// interpolates inside the final one.
//
// A table is immutable once built. Zones republish a freshly built table by
// pointer swap whenever the ring size changes, so readers never see a
// half-written one.
type ArcTable struct {
	chords  []float64
	samples int
	delta   float64 // parametric angle per segment
}

// BuildArcTable samples the canonical ellipse with semi-axes a and b.
// A collapsed ellipse yields a table of zero-length chords.
func BuildArcTable(a, b float64, samples int) *ArcTable {
	if samples < 1 {
		samples = 1
	}
	t := &ArcTable{
		chords:  make([]float64, samples),
		samples: samples,
		delta:   (math.Pi / 2) / float64(samples),
	}
	if a <= 0 || b <= 0 {
		return t
	}
	prevSin, prevCos := 0.0, 1.0
	for i := 0; i < samples; i++ {
		sin, cos := math.Sincos(float64(i+1) * t.delta)
		dx := a * (cos - prevCos)
		dy := b * (sin - prevSin)
		t.chords[i] = math.Hypot(dx, dy)
		prevSin, prevCos = sin, cos
	}
	return t
}

// Samples reports the per-quadrant sample count.
func (t *ArcTable) Samples() int {
	if t == nil {
		return 0
	}
	return t.samples
}

// Circumference is the chord-sum approximation of the full boundary.
func (t *ArcTable) Circumference() float64 {
	if t == nil {
		return 0
	}
	sum := 0.0
	for _, c := range t.chords {
		sum += c
	}
	return 4 * sum
}

// clampIndex maps any segment index into [0, 4*samples) with a floored
// modulo. Negative indices from clockwise walks land correctly.
func (t *ArcTable) clampIndex(i int) int {
	total := 4 * t.samples
	i %= total
	if i < 0 {
		i += total
	}
	return i
}

// chord returns the mirrored chord length for any segment index.
func (t *ArcTable) chord(i int) float64 {
	idx := t.clampIndex(i)
	j := idx % t.samples
	if (idx/t.samples)%2 == 1 {
		j = t.samples - 1 - j
	}
	return t.chords[j]
}

// Step walks the boundary from the start angle, covering the given arc
// distance, and returns the ending parametric angle in [0, 2*pi). The start
// is snapped to the nearest segment boundary in the travel direction; the
// end interpolates linearly inside its segment. A distance longer than one
// full lap returns to the snapped start.
func (t *ArcTable) Step(start, distance float64, clockwise bool) float64 {
	if t == nil || t.samples == 0 {
		return start
	}
	total := 4 * t.samples
	ratio := start / t.delta
	var boundary int
	if clockwise {
		boundary = t.clampIndex(int(math.Ceil(ratio)))
	} else {
		boundary = t.clampIndex(int(math.Floor(ratio)))
	}
	if distance <= 0 {
		return float64(boundary) * t.delta
	}
	accum := 0.0
	for steps := 0; steps < total; steps++ {
		var seg int
		if clockwise {
			seg = t.clampIndex(boundary - 1)
		} else {
			seg = boundary
		}
		chord := t.chord(seg)
		if accum+chord >= distance {
			frac := 1.0
			if chord > 1e-12 {
				frac = (distance - accum) / chord
			}
			var angle float64
			if clockwise {
				angle = (float64(seg) + 1 - frac) * t.delta
			} else {
				angle = (float64(seg) + frac) * t.delta
			}
			return wrapAngle(angle)
		}
		accum += chord
		if clockwise {
			boundary = seg
		} else {
			boundary = t.clampIndex(boundary + 1)
		}
	}
	return wrapAngle(float64(boundary) * t.delta)
}

func wrapAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}
