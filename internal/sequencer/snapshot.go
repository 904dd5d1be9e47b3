package sequencer

import (
	"fmt"

	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/instrument"
	"github.com/cbegin/groovebox-go/internal/timing"
	"github.com/cbegin/groovebox-go/internal/track"
)

// Snapshot is the serialized sequencer state stored in songs and patterns.
type Snapshot struct {
	Tracks         []track.Data      `json:"tracks" yaml:"tracks"`
	Tempo          int               `json:"tempo" yaml:"tempo"`
	StepResolution timing.Resolution `json:"stepResolution" yaml:"stepResolution"`
	Swing          groove.State      `json:"swing" yaml:"swing"`
}

func (s Snapshot) Clone() Snapshot {
	tracks := make([]track.Data, len(s.Tracks))
	for i, t := range s.Tracks {
		tracks[i] = t.Clone()
	}
	s.Tracks = tracks
	s.Swing = s.Swing.Clone()
	return s
}

func (s Snapshot) Validate() error {
	if s.Tracks == nil {
		return fmt.Errorf("%w: missing tracks", ErrMalformed)
	}
	if s.Tempo < MinTempo || s.Tempo > MaxTempo {
		return fmt.Errorf("%w: tempo %d out of [%d,%d]", ErrMalformed, s.Tempo, MinTempo, MaxTempo)
	}
	if !s.StepResolution.StepValid() {
		return fmt.Errorf("%w: step resolution %q", ErrMalformed, s.StepResolution)
	}
	for i, t := range s.Tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: track %d: %v", ErrMalformed, i, err)
		}
	}
	if err := s.Swing.Validate(); err != nil {
		return fmt.Errorf("%w: swing: %v", ErrMalformed, err)
	}
	return nil
}

// HasNotes reports whether any track holds a non-empty cell.
func (s Snapshot) HasNotes() bool {
	for _, t := range s.Tracks {
		for _, n := range t.Sequence {
			if !n.IsEmpty() {
				return true
			}
		}
	}
	return false
}

// Export captures a deep copy of the current state.
func (s *Sequencer) Export() Snapshot {
	tracks := make([]track.Data, len(s.tracks))
	for i, tr := range s.tracks {
		tracks[i] = tr.Export()
	}
	return Snapshot{
		Tracks:         tracks,
		Tempo:          s.tempo,
		StepResolution: s.resolution,
		Swing:          s.groove.Export(),
	}
}

// Import replaces tracks, tempo, resolution and groove. A snapshot that
// fails validation leaves the sequencer untouched. The step counter is
// not changed.
func (s *Sequencer) Import(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	tracks := make([]*track.Track, len(snap.Tracks))
	for i, d := range snap.Tracks {
		tr, err := track.FromData(d)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		tracks[i] = tr
	}
	if err := s.groove.Import(snap.Swing); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// Handles whose instrument is unchanged are kept so ringing notes are
	// not cut off at pattern switches.
	handles := make([]instrument.Handle, len(tracks))
	for i, tr := range tracks {
		if i < len(s.handles) && s.tracks[i].Instrument == tr.Instrument {
			handles[i] = s.handles[i]
			s.layer.SetVolume(handles[i], tr.Volume())
			continue
		}
		if i < len(s.handles) {
			s.layer.Dispose(s.handles[i])
		}
		handles[i] = s.createInstrument(tr)
	}
	for _, h := range s.handles[min(len(s.handles), len(tracks)):] {
		s.layer.Dispose(h)
	}
	s.tracks = tracks
	s.handles = handles
	s.tempo = snap.Tempo
	s.resolution = snap.StepResolution
	return nil
}
