package effects

import "math"

// Compressor implements feed-forward dynamic range compression.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	makeup    float32
	env       float32
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs, releaseMs: envelope follower times
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     ratio,
		attack:    float32(1.0 - math.Exp(-1.0/(float64(attackMs)*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
		makeup:    dbToGain(makeupDB),
	}
}

// NewLimiter is a brickwall-style compressor: very high ratio, fast attack,
// with a hard clip at the threshold for peaks the follower misses.
func NewLimiter(sampleRate int, thresholdDB float32) *Limiter {
	return &Limiter{
		Compressor: NewCompressor(sampleRate, thresholdDB, 100, 0.5, 80, 0),
		ceiling:    dbToGain(thresholdDB),
	}
}

type Limiter struct {
	*Compressor
	ceiling float32
}

func (l *Limiter) Process(x float32) float32 {
	return clamp(l.Compressor.Process(x), -l.ceiling, l.ceiling)
}

func (c *Compressor) Process(x float32) float32 {
	abs := float32(math.Abs(float64(x)))
	if abs > c.env {
		c.env += c.attack * (abs - c.env)
	} else {
		c.env += c.release * (abs - c.env)
	}
	return x * c.computeGain(c.env) * c.makeup
}

func (c *Compressor) computeGain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.env = 0
}

func dbToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}
