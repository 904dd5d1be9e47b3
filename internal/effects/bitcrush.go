package effects

import "math"

// BitCrusher quantizes amplitude to a fixed bit depth.
type BitCrusher struct {
	steps float32
}

func NewBitCrusher(bits int) *BitCrusher {
	if bits < 1 {
		bits = 1
	}
	if bits > 16 {
		bits = 16
	}
	return &BitCrusher{steps: float32(math.Pow(2, float64(bits-1)))}
}

func (b *BitCrusher) Process(x float32) float32 {
	return float32(math.Round(float64(x*b.steps))) / b.steps
}

func (b *BitCrusher) Reset() {}
