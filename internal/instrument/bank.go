package instrument

import (
	"container/heap"
	"math"
	"sync/atomic"

	"github.com/cbegin/groovebox-go/internal/effects"
	"github.com/cbegin/groovebox-go/internal/lfo"
	"github.com/cbegin/groovebox-go/internal/track"
)

// Handle identifies an instrument created on a Layer.
type Handle int

// Layer is the sound-producing side of the sequencer. Times are seconds on
// the layer's own clock; volumes are linear gains in [0,1].
type Layer interface {
	Initialized() bool
	// Create builds an instrument. Unknown kinds fall back to white noise.
	Create(kind track.Instrument) Handle
	// Trigger plays note for dur seconds at time at. The volume applies to
	// the instrument only until a short revert window has passed, after
	// which it returns to the configured volume.
	Trigger(h Handle, note track.Note, dur, at, volume float64)
	SetVolume(h Handle, volume float64)
	Dispose(h Handle)
	// Cancel drops every pending trigger and volume revert.
	Cancel()
}

const (
	// RevertWindow is how long a per-note volume override lasts.
	RevertWindow = 0.05

	voicesPerChannel = 4
	voiceLevel       = 0.5
	limiterDB        = -6
)

type Option func(*Bank)

// WithMasterGain sets the initial output gain.
func WithMasterGain(g float64) Option {
	return func(b *Bank) { b.SetMasterGain(g) }
}

// WithVoices sets per-instrument polyphony.
func WithVoices(n int) Option {
	return func(b *Bank) {
		if n > 0 {
			b.voices = n
		}
	}
}

// Bank is a synth Layer rendering mono float32 audio. It is not safe for
// concurrent use; the owner serializes Render with the Layer calls.
type Bank struct {
	sampleRate float64
	clock      int64
	ready      bool
	voices     int
	channels   []*channel
	queue      eventQueue
	seq        uint64
	limiter    *effects.Limiter
	masterGain atomic.Uint64
}

type channel struct {
	kind    track.Instrument
	preset  Preset
	volume  float64 // configured
	gain    float64 // applied, may be a per-note override
	voices  []voice
	noise   noise
	filter  *effects.Filter
	fx      *effects.Chain
	pwm     lfo.LFO
	index   lfo.LFO
	cutoff  lfo.LFO
	pending int // reverts in flight
}

func New(sampleRate int, opts ...Option) *Bank {
	b := &Bank{
		sampleRate: float64(sampleRate),
		voices:     voicesPerChannel,
		limiter:    effects.NewLimiter(sampleRate, limiterDB),
	}
	b.masterGain.Store(math.Float64bits(1))
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init marks the bank ready to play. A live owner calls it once the audio
// device is open.
func (b *Bank) Init() { b.ready = true }

func (b *Bank) Initialized() bool { return b.ready }

// Now is the bank clock in seconds: the time of the next rendered sample.
func (b *Bank) Now() float64 { return float64(b.clock) / b.sampleRate }

func (b *Bank) SampleRate() int { return int(b.sampleRate) }

func (b *Bank) SetMasterGain(g float64) {
	if g < 0 {
		g = 0
	}
	b.masterGain.Store(math.Float64bits(g))
}

func (b *Bank) MasterGain() float64 {
	return math.Float64frombits(b.masterGain.Load())
}

func (b *Bank) Create(kind track.Instrument) Handle {
	p, _ := Lookup(kind)
	sr := int(b.sampleRate)
	ch := &channel{
		kind:   kind,
		preset: p,
		volume: 1,
		gain:   1,
		voices: make([]voice, b.voices),
		noise:  noise{lfsr: uint16(0xACE1 + len(b.channels)*97)},
		fx:     effects.NewChain(),
	}
	if ch.noise.lfsr == 0 {
		ch.noise.lfsr = 0xACE1
	}
	if p.PWM != nil {
		ch.pwm.SetRange(p.PWM.RateHz, p.PWM.Lo, p.PWM.Hi, lfo.Sine)
	}
	if p.FM != nil && p.FM.IndexSweep != nil {
		s := p.FM.IndexSweep
		ch.index.SetRange(s.RateHz, s.Lo, s.Hi, lfo.Sine)
	}
	if f := p.Filter; f != nil {
		ch.filter = effects.NewFilter(sr, f.Mode, f.Cutoff, f.Q, f.Poles)
		if f.Sweep != nil {
			ch.cutoff.SetRange(f.Sweep.RateHz, f.Sweep.Lo, f.Sweep.Hi, lfo.Sine)
		}
		ch.fx.Add(ch.filter)
	}
	if p.Chorus {
		ch.fx.Add(effects.NewChorus(sr, effects.DefaultChorus))
	}
	if p.CrushBits > 0 {
		ch.fx.Add(effects.NewBitCrusher(p.CrushBits))
	}
	if p.ReverbSec > 0 {
		ch.fx.Add(effects.NewReverb(sr, float32(p.ReverbSec), 0.5))
	}
	for i, c := range b.channels {
		if c == nil {
			b.channels[i] = ch
			return Handle(i)
		}
	}
	b.channels = append(b.channels, ch)
	return Handle(len(b.channels) - 1)
}

func (b *Bank) channel(h Handle) *channel {
	if h < 0 || int(h) >= len(b.channels) {
		return nil
	}
	return b.channels[h]
}

// Kind reports the instrument tag h was created with.
func (b *Bank) Kind(h Handle) (track.Instrument, bool) {
	ch := b.channel(h)
	if ch == nil {
		return "", false
	}
	return ch.kind, true
}

// Volume returns the configured volume of h.
func (b *Bank) Volume(h Handle) float64 {
	if ch := b.channel(h); ch != nil {
		return ch.volume
	}
	return 0
}

// Gain returns the volume currently applied to h, including any per-note
// override.
func (b *Bank) Gain(h Handle) float64 {
	if ch := b.channel(h); ch != nil {
		return ch.gain
	}
	return 0
}

// SetVolume sets the configured volume and cancels reverts in flight.
func (b *Bank) SetVolume(h Handle, volume float64) {
	ch := b.channel(h)
	if ch == nil {
		return
	}
	ch.volume = clamp(volume, 0, 1)
	ch.gain = ch.volume
	if ch.pending > 0 {
		b.queue.drop(func(ev *event) bool { return ev.kind == evRevert && ev.handle == h })
		ch.pending = 0
	}
}

func (b *Bank) Dispose(h Handle) {
	if b.channel(h) == nil {
		return
	}
	b.channels[h] = nil
	b.queue.drop(func(ev *event) bool { return ev.handle == h })
}

// Trigger schedules a note. Rests sound only on percussive instruments;
// pitched instruments treat them, and unparseable notes, as silence.
func (b *Bank) Trigger(h Handle, note track.Note, dur, at, volume float64) {
	ch := b.channel(h)
	if ch == nil || note.IsEmpty() {
		return
	}
	freq := 0.0
	if !ch.preset.Percussive() {
		if freq = note.Freq(); freq == 0 {
			return
		}
	}
	b.push(&event{
		at:     b.toSample(at),
		kind:   evNoteOn,
		handle: h,
		freq:   freq,
		length: int64(math.Max(dur, 0) * b.sampleRate),
		volume: clamp(volume, 0, 1),
	})
}

func (b *Bank) Cancel() {
	b.queue = b.queue[:0]
	for _, ch := range b.channels {
		if ch == nil {
			continue
		}
		ch.gain = ch.volume
		ch.pending = 0
		for i := range ch.voices {
			if ch.voices[i].active {
				ch.voices[i].noteOff(&ch.preset, b.sampleRate)
			}
		}
	}
}

// Pending reports how many scheduled triggers and reverts have not fired.
func (b *Bank) Pending() int { return len(b.queue) }

func (b *Bank) toSample(at float64) int64 {
	s := int64(math.Round(at * b.sampleRate))
	if s < b.clock {
		return b.clock
	}
	return s
}

func (b *Bank) push(ev *event) {
	ev.seq = b.seq
	b.seq++
	heap.Push(&b.queue, ev)
}

func (b *Bank) fire(ev *event) {
	ch := b.channel(ev.handle)
	if ch == nil {
		return
	}
	switch ev.kind {
	case evNoteOn:
		ch.gain = ev.volume
		v := &ch.voices[stealVoice(ch.voices)]
		v.noteOn(ev.freq, b.clock+ev.length)
		ch.pending++
		b.push(&event{at: b.clock + int64(RevertWindow*b.sampleRate), kind: evRevert, handle: ev.handle})
	case evRevert:
		// read the configured volume now, not when the note fired
		ch.gain = ch.volume
		if ch.pending > 0 {
			ch.pending--
		}
	}
}

// Render fills dst with mono samples and advances the clock.
func (b *Bank) Render(dst []float32) {
	master := b.MasterGain()
	for i := range dst {
		for len(b.queue) > 0 && b.queue[0].at <= b.clock {
			b.fire(heap.Pop(&b.queue).(*event))
		}
		var mix float32
		for _, ch := range b.channels {
			if ch != nil {
				mix += b.renderChannel(ch)
			}
		}
		dst[i] = b.limiter.Process(mix) * float32(master)
		b.clock++
	}
}

func (b *Bank) renderChannel(ch *channel) float32 {
	p := &ch.preset
	width := p.Width
	if p.PWM != nil {
		width = ch.pwm.Sample(b.sampleRate)
	}
	index := 0.0
	if p.FM != nil {
		index = p.FM.Index
		if p.FM.IndexSweep != nil {
			index = ch.index.Sample(b.sampleRate)
		}
	}
	if ch.filter != nil && p.Filter.Sweep != nil {
		ch.filter.SetCutoff(ch.cutoff.Sample(b.sampleRate))
	}
	var sum float64
	for i := range ch.voices {
		v := &ch.voices[i]
		if !v.active {
			continue
		}
		if b.clock >= v.releaseAt {
			v.noteOff(p, b.sampleRate)
		}
		sum += v.render(p, &ch.noise, b.sampleRate, width, index)
	}
	out := float32(sum * voiceLevel * ch.gain)
	if ch.fx.Len() > 0 {
		out = ch.fx.Process(out)
	}
	return out
}

// ActiveVoices counts sounding voices across all instruments.
func (b *Bank) ActiveVoices() int {
	n := 0
	for _, ch := range b.channels {
		if ch == nil {
			continue
		}
		for i := range ch.voices {
			if ch.voices[i].active {
				n++
			}
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
