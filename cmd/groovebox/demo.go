package main

import (
	"github.com/cbegin/groovebox-go"
	"github.com/cbegin/groovebox-go/internal/song"
	"github.com/cbegin/groovebox-go/internal/track"
)

var (
	demoBass = []track.Note{"C2", "", "", "C2", "", "", "G1", "", "A#1", "", "", "A#1", "", "", "F1", "G1"}
	demoLead = []track.Note{"G4", "", "A#4", "", "C5", "", "", "D#5", "", "D5", "C5", "", "A#4", "", "G4", ""}
)

// demoSong is a two pattern groove played when no song file is given.
func demoSong() (song.Document, error) {
	s := groovebox.NewSession(48000)
	seq, c := s.Sequencer(), s.Chain()
	c.Rename(c.Current().ID, "Verse")

	seq.UpdateTrackSynth(5, track.HiHat)
	seq.RenameTrack(5, "Hats")
	for step := 0; step < track.Length; step++ {
		if step%4 == 2 {
			seq.SetNote(5, step, track.Rest)
		}
		if step%8 == 4 {
			seq.SetNote(3, step, track.Rest)
		}
	}
	for step, n := range demoBass {
		seq.SetNote(1, step, n)
		seq.SetNote(1, step+16, n)
	}

	if _, err := c.AddPattern("Chorus", nil); err != nil {
		return song.Document{}, err
	}
	c.Next()
	for step, n := range demoLead {
		seq.SetNote(0, step, n)
		seq.SetNote(0, step+16, n.Transpose(12))
	}
	seq.SetNote(4, 0, "C4")
	seq.SetNote(4, 16, "G#3")
	c.Next()
	return song.Capture(seq, c), nil
}
