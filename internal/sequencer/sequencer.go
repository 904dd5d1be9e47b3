package sequencer

import (
	"errors"

	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/instrument"
	"github.com/cbegin/groovebox-go/internal/notify"
	"github.com/cbegin/groovebox-go/internal/timing"
	"github.com/cbegin/groovebox-go/internal/track"
)

var (
	ErrNotInitialized = errors.New("sequencer: instrument layer not initialized")
	ErrRunning        = errors.New("sequencer: transport already running")
	ErrMalformed      = errors.New("sequencer: malformed snapshot")
)

const (
	DefaultTempo = 120
	MinTempo     = 20
	MaxTempo     = 300

	// NoteDuration is the fixed length of every triggered note.
	NoteDuration = timing.Res8n
)

// DefaultTracks is the starting lineup of a new project.
func DefaultTracks() []*track.Track {
	return []*track.Track{
		track.New("Lead", track.Square, 0.7),
		track.New("Bass", track.FMBass, 0.8),
		track.New("Arp", track.Pulse25, 0.6),
		track.New("Perc", track.WhiteSnare, 0.5),
		track.New("Pad", track.PadWash, 0.4),
		track.New("FX", track.FMBell, 0.3),
	}
}

type Option func(*Sequencer)

func WithGroove(g *groove.Engine) Option {
	return func(s *Sequencer) {
		if g != nil {
			s.groove = g
		}
	}
}

// WithTracks replaces the default lineup. The sequencer takes ownership.
func WithTracks(tracks ...*track.Track) Option {
	return func(s *Sequencer) { s.tracks = tracks }
}

func WithTempo(bpm int) Option {
	return func(s *Sequencer) { s.tempo = clampTempo(bpm) }
}

func WithResolution(res timing.Resolution) Option {
	return func(s *Sequencer) {
		if res.StepValid() {
			s.resolution = res
		}
	}
}

// Sequencer owns a set of tracks and a groove engine and turns each tick
// into instrument triggers. It is not safe for concurrent use.
type Sequencer struct {
	layer      instrument.Layer
	tracks     []*track.Track
	handles    []instrument.Handle
	groove     *groove.Engine
	tempo      int
	resolution timing.Resolution
	active     timing.Resolution // latched by Transport.Start
	step       int
	steps      notify.Subject[int]
}

func New(layer instrument.Layer, opts ...Option) *Sequencer {
	s := &Sequencer{
		layer:      layer,
		groove:     groove.New(),
		tempo:      DefaultTempo,
		resolution: timing.Res16n,
	}
	s.tracks = DefaultTracks()
	for _, opt := range opts {
		opt(s)
	}
	s.active = s.resolution
	s.handles = make([]instrument.Handle, len(s.tracks))
	for i, tr := range s.tracks {
		s.handles[i] = s.createInstrument(tr)
	}
	return s
}

func (s *Sequencer) createInstrument(tr *track.Track) instrument.Handle {
	h := s.layer.Create(tr.Instrument)
	s.layer.SetVolume(h, tr.Volume())
	return h
}

// PlayStep triggers every unmuted, non-empty cell of the current step at
// time at (plus groove offset), notifies step observers with the step just
// played, then advances the step counter.
func (s *Sequencer) PlayStep(at float64) {
	step := s.step
	offset := s.groove.TimingOffset(step, s.active)
	accent := s.groove.AccentMultiplier(step)
	dur := NoteDuration.Seconds(s.tempo)
	for i, tr := range s.tracks {
		if tr.Muted {
			continue
		}
		note := tr.Note(step)
		if note.IsEmpty() {
			continue
		}
		s.layer.Trigger(s.handles[i], note, dur, at+offset, tr.Volume()*accent)
	}
	s.steps.Publish(step)
	s.step = (step + 1) % track.Length
}

func (s *Sequencer) CurrentStep() int { return s.step }

// ResetStep rewinds to step 0 and notifies observers.
func (s *Sequencer) ResetStep() {
	s.step = 0
	s.steps.Publish(0)
}

// OnStep subscribes to step notifications.
func (s *Sequencer) OnStep(fn func(step int)) (unsubscribe func()) {
	return s.steps.Subscribe(fn)
}

func (s *Sequencer) Tempo() int { return s.tempo }

// SetTempo takes effect on the next tick, including while running.
func (s *Sequencer) SetTempo(bpm int) { s.tempo = clampTempo(bpm) }

func (s *Sequencer) Resolution() timing.Resolution { return s.resolution }

// SetStepResolution applies from the next transport start. Unknown
// resolutions are rejected.
func (s *Sequencer) SetStepResolution(res timing.Resolution) bool {
	if !res.StepValid() {
		return false
	}
	s.resolution = res
	return true
}

// StepSeconds is the tick interval at the configured tempo and resolution.
func (s *Sequencer) StepSeconds() float64 {
	return s.resolution.Seconds(s.tempo)
}

func (s *Sequencer) Groove() *groove.Engine { return s.groove }

// SetGroove applies a named groove template. Unknown names return false.
func (s *Sequencer) SetGroove(name string) bool { return s.groove.ApplyTemplate(name) }

func (s *Sequencer) SetSwingAmount(v float64)       { s.groove.SetSwingAmount(v) }
func (s *Sequencer) SetHumanizeAmount(v float64)    { s.groove.SetHumanizeAmount(v) }
func (s *Sequencer) SetVelocityVariation(v float64) { s.groove.SetVelocityVariation(v) }
func (s *Sequencer) SetAccentPattern(p []float64)   { s.groove.SetAccentPattern(p) }

// GrooveInfo summarizes the groove for display.
func (s *Sequencer) GrooveInfo() groove.Info { return s.groove.Info() }

func (s *Sequencer) Layer() instrument.Layer { return s.layer }

func (s *Sequencer) TrackCount() int { return len(s.tracks) }

// Track returns a copy of track i.
func (s *Sequencer) Track(i int) (*track.Track, bool) {
	if i < 0 || i >= len(s.tracks) {
		return nil, false
	}
	return s.tracks[i].Clone(), true
}

func (s *Sequencer) track(i int) *track.Track {
	if i < 0 || i >= len(s.tracks) {
		return nil
	}
	return s.tracks[i]
}

func (s *Sequencer) SetNote(trackIdx, step int, note track.Note) bool {
	tr := s.track(trackIdx)
	return tr != nil && tr.SetNote(step, note)
}

func (s *Sequencer) RemoveNote(trackIdx, step int) bool {
	tr := s.track(trackIdx)
	return tr != nil && tr.RemoveNote(step)
}

func (s *Sequencer) ClearTrack(i int) bool {
	tr := s.track(i)
	if tr == nil {
		return false
	}
	tr.Clear()
	return true
}

func (s *Sequencer) ClearAllTracks() {
	for _, tr := range s.tracks {
		tr.Clear()
	}
}

// ToggleMute flips the mute flag and returns the new value.
func (s *Sequencer) ToggleMute(i int) bool {
	tr := s.track(i)
	if tr == nil {
		return false
	}
	tr.Muted = !tr.Muted
	return tr.Muted
}

// UpdateTrackVolume sets the configured volume; any in-flight per-note
// override is cancelled by the layer.
func (s *Sequencer) UpdateTrackVolume(i int, volume float64) bool {
	tr := s.track(i)
	if tr == nil {
		return false
	}
	tr.SetVolume(volume)
	s.layer.SetVolume(s.handles[i], tr.Volume())
	return true
}

// UpdateTrackSynth swaps the instrument behind track i.
func (s *Sequencer) UpdateTrackSynth(i int, kind track.Instrument) bool {
	tr := s.track(i)
	if tr == nil {
		return false
	}
	tr.Instrument = kind
	s.layer.Dispose(s.handles[i])
	s.handles[i] = s.createInstrument(tr)
	return true
}

func (s *Sequencer) RenameTrack(i int, name string) bool {
	tr := s.track(i)
	if tr == nil {
		return false
	}
	tr.Name = name
	return true
}

// AddTrack appends a track and returns its index.
func (s *Sequencer) AddTrack(tr *track.Track) int {
	s.tracks = append(s.tracks, tr)
	s.handles = append(s.handles, s.createInstrument(tr))
	return len(s.tracks) - 1
}

func (s *Sequencer) RemoveTrack(i int) bool {
	if s.track(i) == nil {
		return false
	}
	s.layer.Dispose(s.handles[i])
	s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
	s.handles = append(s.handles[:i], s.handles[i+1:]...)
	return true
}

// HasNotes reports whether any track has a non-empty cell.
func (s *Sequencer) HasNotes() bool {
	for _, tr := range s.tracks {
		if tr.HasNotes() {
			return true
		}
	}
	return false
}

// Close disposes every instrument.
func (s *Sequencer) Close() {
	for _, h := range s.handles {
		s.layer.Dispose(h)
	}
	s.handles = s.handles[:0]
	s.tracks = s.tracks[:0]
}

func clampTempo(bpm int) int {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}
