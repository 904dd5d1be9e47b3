package main

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

func Is(msg tea.KeyMsg, k ...key.Binding) bool {
	return key.Matches(msg, k...)
}

type keyMap struct {
	Up, Down, Left, Right key.Binding

	Rest, Clear, Mute, Instrument key.Binding
	OctaveDown, OctaveUp          key.Binding
	VolumeDown, VolumeUp          key.Binding

	Play, Groove, TempoDown, TempoUp, Resolution key.Binding

	SwingDown, SwingUp       key.Binding
	HumanizeDown, HumanizeUp key.Binding
	VelocityDown, VelocityUp key.Binding
	RandomAccents, Preview   key.Binding

	AddPattern, NextPattern, PrevPattern, TogglePattern key.Binding
	DuplicatePattern, DeletePattern                     key.Binding
	LengthDown, LengthUp                                key.Binding

	ClearAll, Save, Record, Help, Quit key.Binding
}

var keys = keyMap{
	Up:    Key("track up", "up"),
	Down:  Key("track down", "down"),
	Left:  Key("step left", "left"),
	Right: Key("step right", "right"),

	Rest:       Key("rest", "r"),
	Clear:      Key("clear cell", "x", "backspace", "delete"),
	Mute:       Key("mute track", "m"),
	Instrument: Key("next instrument", "i"),
	OctaveDown: Key("octave down", "["),
	OctaveUp:   Key("octave up", "]"),
	VolumeDown: Key("track volume down", "{"),
	VolumeUp:   Key("track volume up", "}"),

	Play:       Key("play/stop", "space", " "),
	Groove:     Key("next groove", "G"),
	TempoDown:  Key("tempo -1", "-"),
	TempoUp:    Key("tempo +1", "+", "="),
	Resolution: Key("step resolution", "R"),

	SwingDown:     Key("swing -5", "1"),
	SwingUp:       Key("swing +5", "2"),
	HumanizeDown:  Key("humanize -5", "3"),
	HumanizeUp:    Key("humanize +5", "4"),
	VelocityDown:  Key("velocity variation -5", "5"),
	VelocityUp:    Key("velocity variation +5", "6"),
	RandomAccents: Key("random accents", "A"),
	Preview:       Key("preview next groove", "P"),

	AddPattern:    Key("add pattern", "N"),
	NextPattern:   Key("next pattern", ">", "."),
	PrevPattern:   Key("previous pattern", "<", ","),
	TogglePattern: Key("enable/disable pattern", "E"),
	LengthDown:    Key("pattern length -1", "("),
	LengthUp:      Key("pattern length +1", ")"),

	DuplicatePattern: Key("duplicate pattern", "D"),
	DeletePattern:    Key("delete pattern", "X"),

	ClearAll: Key("clear all tracks", "C"),
	Save:     Key("save song", "ctrl+s"),
	Record:   Key("record pattern to wav", "W"),
	Help:     Key("help", "?"),
	Quit:     Key("quit", "q", "ctrl+c"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Rest, k.Clear, k.NextPattern, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Rest, k.Clear, k.Mute, k.Instrument, k.OctaveDown, k.OctaveUp, k.VolumeDown, k.VolumeUp},
		{k.Play, k.Groove, k.TempoDown, k.TempoUp, k.Resolution},
		{k.SwingDown, k.SwingUp, k.HumanizeDown, k.HumanizeUp, k.VelocityDown, k.VelocityUp, k.RandomAccents, k.Preview},
		{k.AddPattern, k.DuplicatePattern, k.DeletePattern, k.NextPattern, k.PrevPattern, k.TogglePattern, k.LengthDown, k.LengthUp},
		{k.ClearAll, k.Save, k.Record, k.Help, k.Quit},
	}
}

// pianoKeys lays a keyboard over the home row, in semitones above C.
var pianoKeys = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6,
	"g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}
