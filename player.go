package groovebox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/groovebox-go/internal/audio"
	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/effects"
	"github.com/cbegin/groovebox-go/internal/encode"
	"github.com/cbegin/groovebox-go/internal/song"
)

var ErrBusy = errors.New("groovebox: recording already in progress")

type EventKind int

const (
	// EventStep fires for every step played; Step is the sequencer step.
	EventStep EventKind = iota
	// EventPatternChanged fires when the chain activates a pattern.
	EventPatternChanged
	// EventPlaybackEnded fires when a non-looping chain runs out or Stop
	// is called.
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventPatternChanged:
		return "pattern"
	case EventPlaybackEnded:
		return "ended"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// PlaybackEvent carries events from Watch().
type PlaybackEvent struct {
	Kind    EventKind
	Step    int
	Pattern int
	Name    string
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	logger    *slog.Logger
	backend   intaudio.Backend
	lookahead time.Duration
	loop      bool
	sampleTap func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		logger:    slog.Default(),
		backend:   intaudio.Ebiten{},
		lookahead: 100 * time.Millisecond,
		loop:      true,
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithBackend replaces the ebiten audio output.
func WithBackend(b intaudio.Backend) PlayerOption {
	return func(cfg *playerConfig) {
		if b != nil {
			cfg.backend = b
		}
	}
}

// WithPlayerLookahead sets how far ahead of the audio clock steps are
// scheduled.
func WithPlayerLookahead(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) { cfg.lookahead = d }
}

// WithLoopPlayback sets whether the pattern chain wraps around.
func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) { cfg.loop = enabled }
}

// WithSampleTap installs a callback invoked with each generated mono buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) { cfg.sampleTap = tap }
}

// Player plays a Session live. The audio callback and every method
// serialize on one mutex, so edits made through Edit are safe while
// playing.
type Player struct {
	mu         sync.Mutex
	sess       *Session
	sampleRate int
	backend    intaudio.Backend
	audio      intaudio.Output
	logger     *slog.Logger
	volume     float64
	masterEQ   *effects.EQ5Band
	sampleTap  func([]float32)
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
	recording  atomic.Bool
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Player{
		sess:       NewSession(sampleRate, WithLookahead(cfg.lookahead)),
		sampleRate: sampleRate,
		backend:    cfg.backend,
		logger:     cfg.logger,
		volume:     1,
		masterEQ:   effects.NewEQ5Band(sampleRate),
		sampleTap:  cfg.sampleTap,
	}
	p.sess.Chain().Loop = cfg.loop
	p.sess.Sequencer().OnStep(func(step int) {
		p.sendEvent(PlaybackEvent{Kind: EventStep, Step: step})
	})
	p.sess.Chain().OnChange(func(c chain.Change) {
		p.logger.Debug("pattern changed", "index", c.Index, "name", c.Pattern.Name)
		p.sendEvent(PlaybackEvent{Kind: EventPatternChanged, Pattern: c.Index, Name: c.Pattern.Name})
	})
	return p, nil
}

// source adapts the player to the audio stream.
type source struct{ p *Player }

func (s source) Render(dst []float32) {
	p := s.p
	p.mu.Lock()
	p.sess.Render(dst)
	var done chan struct{}
	if p.sess.Ended() && p.done != nil {
		done = p.done
		p.done = nil
	}
	p.mu.Unlock()

	for i := range dst {
		dst[i] = p.masterEQ.Process(dst[i])
	}
	if p.sampleTap != nil {
		p.sampleTap(dst)
	}
	if done != nil {
		p.logger.Info("playback ended")
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
		close(done)
	}
}

// Play starts the transport, opening the audio output on first use.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.audio == nil {
		out, err := p.backend.Open(p.sampleRate, source{p})
		if err != nil {
			p.logger.Warn("audio output unavailable", "err", err)
			return fmt.Errorf("groovebox: open audio: %w", err)
		}
		p.audio = out
		p.sess.Bank().Init()
	}
	if err := p.sess.Start(); err != nil {
		return err
	}
	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})
	p.audio.Play()
	p.logger.Info("playback started",
		"tempo", p.sess.Sequencer().Tempo(),
		"resolution", p.sess.Transport().Resolution(),
		"pattern", p.sess.Chain().CurrentIndex())
	return nil
}

// Playing reports whether the transport is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess.Transport().Running()
}

// Toggle starts a stopped player and stops a running one.
func (p *Player) Toggle() error {
	if p.Playing() {
		p.Stop()
		return nil
	}
	return p.Play()
}

// Stop halts the transport and cancels everything scheduled. The audio
// output stays open.
func (p *Player) Stop() {
	p.mu.Lock()
	wasRunning := p.sess.Transport().Running()
	p.sess.Stop()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if wasRunning {
		p.logger.Info("playback stopped")
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	}
	if done != nil {
		close(done)
	}
}

// Close stops playback and releases the audio output.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full or closed; drop event
		}
	}
}

// Wait blocks until the current playback ends. When the chain loops, Wait
// blocks until Stop is called.
// Wait returns immediately if no playback is active.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 64); events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// Edit runs fn with exclusive access to the session.
func (p *Player) Edit(fn func(s *Session)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.sess)
}

func (p *Player) SampleRate() int { return p.sampleRate }

// Song captures the current session as a document.
func (p *Player) Song() song.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return song.Capture(p.sess.Sequencer(), p.sess.Chain())
}

// LoadSong stops playback and replaces the session's content. Nothing
// changes when doc is invalid.
func (p *Player) LoadSong(doc song.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	return song.Apply(doc, p.sess.Sequencer(), p.sess.Chain())
}

// Record renders one pass of the active pattern offline and encodes it.
// Live playback is not interrupted. Only one recording may run at a time.
func (p *Player) Record(ctx context.Context, enc encode.Encoder) ([]byte, error) {
	if !p.recording.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.recording.Store(false)
	p.mu.Lock()
	snap := p.sess.Sequencer().Export()
	p.mu.Unlock()
	p.logger.Info("recording", "tempo", snap.Tempo, "resolution", snap.StepResolution)
	out, err := Record(ctx, snap, p.sampleRate, enc)
	if err != nil {
		p.logger.Warn("recording failed", "err", err)
		return nil, err
	}
	return out, nil
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.sess.Bank().SetMasterGain(volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, gain float32) {
	p.masterEQ.SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float32 {
	return p.masterEQ.Gain(band)
}

// PlaybackPosition returns the current output position of the audio driver
// in samples. Returns 0 before the output is opened.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}
