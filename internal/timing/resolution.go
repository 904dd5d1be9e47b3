package timing

import "fmt"

// Resolution is a musical subdivision in note-value notation ("16n", "8t", ...).
type Resolution string

const (
	Res32n Resolution = "32n"
	Res16n Resolution = "16n"
	Res8n  Resolution = "8n"
	Res16t Resolution = "16t"
	Res8t  Resolution = "8t"
	Res4n  Resolution = "4n"
)

// beats is the length of each subdivision in quarter notes.
var beats = map[Resolution]float64{
	Res32n: 1.0 / 8,
	Res16n: 1.0 / 4,
	Res8n:  1.0 / 2,
	Res16t: 1.0 / 6,
	Res8t:  1.0 / 3,
	Res4n:  1,
}

// StepResolutions lists the subdivisions a sequencer can tick at, finest first.
var StepResolutions = []Resolution{Res32n, Res16n, Res8n, Res16t, Res8t}

func (r Resolution) Valid() bool {
	_, ok := beats[r]
	return ok
}

// StepValid reports whether r is one of the sequencer tick resolutions.
func (r Resolution) StepValid() bool {
	for _, s := range StepResolutions {
		if s == r {
			return true
		}
	}
	return false
}

// Beats returns the length of r in quarter notes, or 0 when r is unknown.
func (r Resolution) Beats() float64 {
	return beats[r]
}

// Seconds returns the duration of one r at the given tempo.
func (r Resolution) Seconds(bpm int) float64 {
	if bpm <= 0 {
		return 0
	}
	return r.Beats() * 60 / float64(bpm)
}

func (r Resolution) String() string { return string(r) }

// ParseResolution accepts only the step resolutions.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if !r.StepValid() {
		return "", fmt.Errorf("unknown step resolution %q", s)
	}
	return r, nil
}

// Next cycles through StepResolutions.
func (r Resolution) Next() Resolution {
	for i, s := range StepResolutions {
		if s == r {
			return StepResolutions[(i+1)%len(StepResolutions)]
		}
	}
	return Res16n
}
