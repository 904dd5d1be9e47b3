package track

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Note is one sequence cell: empty (no event), Rest (a silent event) or a
// sharp-spelled pitch such as "C4" or "F#3".
type Note string

const (
	Empty Note = ""
	Rest  Note = "REST"
)

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// NoteNames lists the twelve pitch classes in sharp spelling.
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseNote validates s. The empty string parses to Empty.
func ParseNote(s string) (Note, error) {
	n := Note(s)
	if n == Empty || n == Rest {
		return n, nil
	}
	if _, ok := n.MIDI(); !ok {
		return Empty, fmt.Errorf("invalid note %q", s)
	}
	return n, nil
}

func (n Note) IsEmpty() bool { return n == Empty }
func (n Note) IsRest() bool  { return n == Rest }

// MIDI returns the MIDI key number (C4 = 60). ok is false for Empty, Rest
// and malformed notes.
func (n Note) MIDI() (key int, ok bool) {
	s := string(n)
	if len(s) < 2 {
		return 0, false
	}
	semi, found := semitones[s[0]]
	if !found {
		return 0, false
	}
	rest := s[1:]
	if rest[0] == '#' {
		if s[0] == 'E' || s[0] == 'B' {
			return 0, false
		}
		semi++
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < 0 || octave > 8 || len(rest) != 1 {
		return 0, false
	}
	return (octave+1)*12 + semi, true
}

// Freq returns the equal-tempered frequency in Hz, or 0 if n has no pitch.
func (n Note) Freq() float64 {
	key, ok := n.MIDI()
	if !ok {
		return 0
	}
	return 440 * math.Pow(2, float64(key-69)/12)
}

// FromMIDI spells a MIDI key with sharps. Keys outside octaves 0-8 return Empty.
func FromMIDI(key int) Note {
	octave := key/12 - 1
	if key < 0 || octave < 0 || octave > 8 {
		return Empty
	}
	return Note(NoteNames[key%12] + strconv.Itoa(octave))
}

// Transpose shifts a pitched note by semitones. Empty, Rest and out of range
// results return n unchanged.
func (n Note) Transpose(semis int) Note {
	key, ok := n.MIDI()
	if !ok {
		return n
	}
	if out := FromMIDI(key + semis); out != Empty {
		return out
	}
	return n
}

// MarshalJSON encodes Empty as null.
func (n Note) MarshalJSON() ([]byte, error) {
	if n == Empty {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

func (n *Note) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Empty
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNote(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MarshalYAML encodes Empty as null.
func (n Note) MarshalYAML() (any, error) {
	if n == Empty {
		return nil, nil
	}
	return string(n), nil
}

func (n *Note) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!null" {
		*n = Empty
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseNote(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
