package track

import (
	"errors"
	"fmt"
)

// Length is the fixed number of steps in every track.
const Length = 32

var ErrInvalid = errors.New("track: invalid data")

// Track is one instrument lane of the step grid.
type Track struct {
	Name       string
	Instrument Instrument
	Muted      bool
	volume     float64
	sequence   [Length]Note
}

func New(name string, inst Instrument, volume float64) *Track {
	t := &Track{Name: name, Instrument: inst}
	t.SetVolume(volume)
	return t
}

func (t *Track) Volume() float64 { return t.volume }

// SetVolume clamps to [0, 1].
func (t *Track) SetVolume(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	t.volume = v
}

// SetNote stores n at step. Out-of-range steps and malformed notes are
// ignored and report false.
func (t *Track) SetNote(step int, n Note) bool {
	if step < 0 || step >= Length {
		return false
	}
	if _, err := ParseNote(string(n)); err != nil {
		return false
	}
	t.sequence[step] = n
	return true
}

func (t *Track) RemoveNote(step int) bool {
	return t.SetNote(step, Empty)
}

// Note returns the cell at step, or Empty when out of range.
func (t *Track) Note(step int) Note {
	if step < 0 || step >= Length {
		return Empty
	}
	return t.sequence[step]
}

func (t *Track) Clear() {
	t.sequence = [Length]Note{}
}

func (t *Track) Clone() *Track {
	c := *t
	return &c
}

// HasNotes reports whether any cell is non-empty. Rests count.
func (t *Track) HasNotes() bool {
	for _, n := range t.sequence {
		if n != Empty {
			return true
		}
	}
	return false
}

// Sequence returns a copy of all cells.
func (t *Track) Sequence() []Note {
	out := make([]Note, Length)
	copy(out, t.sequence[:])
	return out
}

// Data is the serialized form of a track.
type Data struct {
	Name     string     `json:"name" yaml:"name"`
	Type     Instrument `json:"type" yaml:"type"`
	Volume   float64    `json:"volume" yaml:"volume"`
	Muted    bool       `json:"muted" yaml:"muted"`
	Sequence []Note     `json:"sequence" yaml:"sequence"`
}

func (d Data) Clone() Data {
	d.Sequence = append([]Note(nil), d.Sequence...)
	return d
}

// Validate checks the fixed sequence length and value ranges. Instrument
// tags are not checked here: unknown tags fall back to a default sound.
func (d Data) Validate() error {
	if len(d.Sequence) != Length {
		return fmt.Errorf("%w: %q has %d steps, want %d", ErrInvalid, d.Name, len(d.Sequence), Length)
	}
	if d.Volume < 0 || d.Volume > 1 {
		return fmt.Errorf("%w: %q volume %v out of [0,1]", ErrInvalid, d.Name, d.Volume)
	}
	for i, n := range d.Sequence {
		if _, err := ParseNote(string(n)); err != nil {
			return fmt.Errorf("%w: %q step %d: %v", ErrInvalid, d.Name, i, err)
		}
	}
	return nil
}

func (t *Track) Export() Data {
	return Data{
		Name:     t.Name,
		Type:     t.Instrument,
		Volume:   t.volume,
		Muted:    t.Muted,
		Sequence: t.Sequence(),
	}
}

// FromData builds a track from validated data.
func FromData(d Data) (*Track, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	t := &Track{Name: d.Name, Instrument: d.Type, Muted: d.Muted, volume: d.Volume}
	copy(t.sequence[:], d.Sequence)
	return t, nil
}
