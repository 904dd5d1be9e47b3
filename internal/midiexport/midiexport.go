// Package midiexport writes a pattern chain as a standard MIDI file.
//
// Each sequencer track becomes one MIDI track. Pitched instruments play on
// their own channel; noise instruments play General MIDI drum keys on
// channel 10. Swing and accents are applied; humanize and velocity
// variation are left out so the file is reproducible.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/instrument"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/track"
)

var ErrEmpty = errors.New("midiexport: no enabled patterns")

const (
	TicksPerQuarter = 960
	DrumChannel     = 9
)

// drumKeys maps noise instruments to General MIDI percussion.
var drumKeys = map[track.Instrument]uint8{
	track.BrownKick:  36,
	track.WhiteSnare: 38,
	track.HiHat:      42,
	track.PinkTom:    45,
}

const defaultDrumKey = 39 // hand clap

type note struct {
	start, end   uint32
	ch, key, vel uint8
}

type event struct {
	at  uint32
	off bool
	msg midi.Message
}

// Build renders passes runs through the enabled patterns of d.
func Build(d chain.Data, passes int) (*smf.SMF, error) {
	if passes < 1 {
		passes = 1
	}
	var order []chain.Pattern
	for _, p := range d.Patterns {
		if p.Enabled {
			order = append(order, p)
		}
	}
	if len(order) == 0 {
		return nil, ErrEmpty
	}

	ntracks := 0
	names := map[int]string{}
	for _, p := range order {
		for i, t := range p.Data.Tracks {
			if _, ok := names[i]; !ok {
				names[i] = t.Name
			}
		}
		ntracks = max(ntracks, len(p.Data.Tracks))
	}

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	notes := make([][]note, ntracks)
	var pos, lastMeta uint32
	lastTempo := 0
	for pass := 0; pass < passes; pass++ {
		for _, p := range order {
			if p.Data.Tempo != lastTempo {
				conductor.Add(pos-lastMeta, smf.MetaTempo(float64(p.Data.Tempo)))
				lastMeta, lastTempo = pos, p.Data.Tempo
			}
			conductor.Add(pos-lastMeta, smf.MetaMarker(p.Name))
			lastMeta = pos
			next, err := renderPattern(p, pos, notes)
			if err != nil {
				return nil, err
			}
			pos = next
		}
	}
	conductor.Close(pos - lastMeta)

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := sm.Add(conductor); err != nil {
		return nil, fmt.Errorf("midiexport: conductor track: %w", err)
	}
	for i := 0; i < ntracks; i++ {
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(names[i]))
		var last uint32
		for _, ev := range events(notes[i]) {
			tr.Add(ev.at-last, ev.msg)
			last = ev.at
		}
		tr.Close(max(pos, last) - last)
		if err := sm.Add(tr); err != nil {
			return nil, fmt.Errorf("midiexport: track %d: %w", i, err)
		}
	}
	return sm, nil
}

// renderPattern appends the pattern's notes starting at tick pos and
// returns the tick after its last step.
func renderPattern(p chain.Pattern, pos uint32, notes [][]note) (uint32, error) {
	snap := p.Data
	res := snap.StepResolution
	stepTicks := ticks(res.Beats())
	dur := ticks(sequencer.NoteDuration.Beats())
	g := groove.New(groove.WithRand(func() float64 { return 0.5 }))
	if err := g.Import(snap.Swing); err != nil {
		return pos, fmt.Errorf("midiexport: pattern %q: %w", p.Name, err)
	}
	secToTicks := float64(snap.Tempo) / 60 * TicksPerQuarter

	for s := 0; s < p.Length; s++ {
		step := s % track.Length
		at := pos + uint32(s)*stepTicks
		if off := g.TimingOffset(step, res); off > 0 {
			at += uint32(off*secToTicks + 0.5)
		}
		accent := g.AccentMultiplier(step)
		for i, t := range snap.Tracks {
			if t.Muted {
				continue
			}
			key, ok := keyFor(t.Type, t.Sequence[step])
			if !ok {
				continue
			}
			ch := channelFor(i)
			if Drum(t.Type) {
				ch = DrumChannel
			}
			notes[i] = append(notes[i], note{
				start: at,
				end:   at + dur,
				ch:    ch,
				key:   key,
				vel:   velocity(t.Volume * accent),
			})
		}
	}
	return pos + uint32(p.Length)*stepTicks, nil
}

func keyFor(kind track.Instrument, n track.Note) (uint8, bool) {
	if n.IsEmpty() {
		return 0, false
	}
	if Drum(kind) {
		if k, ok := drumKeys[kind]; ok {
			return k, true
		}
		return defaultDrumKey, true
	}
	k, ok := n.MIDI()
	if !ok || k < 0 || k > 127 {
		return 0, false
	}
	return uint8(k), true
}

// events turns notes into ordered note on/off messages. A note is cut short
// when the same key starts again on its channel before it ends.
func events(notes []note) []event {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].start < notes[j].start })
	open := map[[2]uint8]int{}
	for i, n := range notes {
		k := [2]uint8{n.ch, n.key}
		if j, ok := open[k]; ok && notes[j].end > n.start {
			notes[j].end = n.start
		}
		open[k] = i
	}
	evs := make([]event, 0, len(notes)*2)
	for _, n := range notes {
		evs = append(evs,
			event{at: n.start, msg: midi.NoteOn(n.ch, n.key, n.vel)},
			event{at: n.end, off: true, msg: midi.NoteOff(n.ch, n.key)},
		)
	}
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].at != evs[j].at {
			return evs[i].at < evs[j].at
		}
		return evs[i].off && !evs[j].off
	})
	return evs
}

func channelFor(trackIdx int) uint8 {
	// channel 10 is reserved for drums; pitched tracks skip it
	ch := trackIdx % 15
	if ch >= DrumChannel {
		ch++
	}
	return uint8(ch)
}

func ticks(beats float64) uint32 {
	return uint32(beats*TicksPerQuarter + 0.5)
}

func velocity(v float64) uint8 {
	n := int(v*127 + 0.5)
	return uint8(min(max(n, 1), 127))
}

func Write(w io.Writer, d chain.Data, passes int) error {
	sm, err := Build(d, passes)
	if err != nil {
		return err
	}
	_, err = sm.WriteTo(w)
	return err
}

func WriteFile(path string, d chain.Data, passes int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, d, passes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Drum reports whether tracks of this instrument are written to the drum
// channel.
func Drum(kind track.Instrument) bool {
	p, ok := instrument.Lookup(kind)
	return !ok || p.Percussive()
}
