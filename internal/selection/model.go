// Package selection maps a hybrid index to an expected offspring count.
package selection

import "math"

// Model is selection against hybrids: w(h) = 1 - Pressure * (4h(1-h))^Beta.
// Pure individuals (h = 0 or 1) have fitness 1; the hybrid at h = 0.5 has
// 1 - Pressure. Beta sharpens (>1) or flattens (<1) the curve.
type Model struct {
	Pressure float64
	Beta     float64
}

// New returns a model configured with the given pressure and beta.
func New(pressure, beta float64) Model {
	return Model{Pressure: pressure, Beta: beta}
}

// Fitness returns the non-negative expected offspring count at hybrid index h.
// h is clamped to [0, 1].
func (m Model) Fitness(h float64) float64 {
	if h < 0 || math.IsNaN(h) {
		h = 0
	}
	if h > 1 {
		h = 1
	}
	if m.Pressure == 0 {
		return 1
	}
	w := 1 - m.Pressure*math.Pow(4*h*(1-h), m.Beta)
	if w < 0 {
		return 0
	}
	return w
}
