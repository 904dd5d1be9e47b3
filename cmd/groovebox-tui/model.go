package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/groovebox-go"
	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/encode"
	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/song"
	"github.com/cbegin/groovebox-go/internal/timing"
	"github.com/cbegin/groovebox-go/internal/track"
)

const (
	volumeStep = 0.05
	grooveStep = 5
)

// view is a copy of the session taken after every update, so View never
// touches the player.
type view struct {
	tracks     []track.Data
	tempo      int
	resolution timing.Resolution
	groove     groove.Info
	patterns   []chain.Summary
	current    int
	length     int
}

type model struct {
	player   *groovebox.Player
	events   <-chan groovebox.PlaybackEvent
	logger   *slog.Logger
	saver    func(song.Document) (string, error)
	recorder func(wav []byte) (string, error)
	help     help.Model
	octave   int
	cursorT  int
	cursorS  int
	playing  bool
	step     int
	restore  func() // set while a groove preview is active
	status   string
	err      error
	view     view
}

type eventMsg groovebox.PlaybackEvent

// savedMsg reports a finished save or recording.
type savedMsg struct {
	what string
	path string
	err  error
}

func newModel(pl *groovebox.Player, logger *slog.Logger, saver func(song.Document) (string, error), recorder func([]byte) (string, error)) model {
	m := model{
		player:   pl,
		events:   pl.Watch(),
		logger:   logger,
		saver:    saver,
		recorder: recorder,
		help:     help.New(),
		octave:   4,
		step:     -1,
	}
	m.refresh()
	return m
}

func waitForEvent(ch <-chan groovebox.PlaybackEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case eventMsg:
		switch msg.Kind {
		case groovebox.EventStep:
			m.step = msg.Step
		case groovebox.EventPatternChanged:
			m.status = fmt.Sprintf("pattern %d: %s", msg.Pattern+1, msg.Name)
		case groovebox.EventPlaybackEnded:
			m.playing = false
			m.step = -1
		}
		cmd = waitForEvent(m.events)
	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.logger.Warn(msg.what+" failed", "err", msg.err)
		} else {
			m.err = nil
			m.status = msg.what + " " + msg.path
			m.logger.Info(msg.what, "path", msg.path)
		}
	case tea.KeyMsg:
		if Is(msg, keys.Quit) {
			m.player.Stop()
			return m, tea.Quit
		}
		cmd = m.handleKey(msg)
	}
	m.refresh()
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.err = nil
	if semis, ok := pianoKeys[msg.String()]; ok {
		n := track.FromMIDI((m.octave+1)*12 + semis)
		if n != track.Empty {
			m.setCell(n)
		}
		return nil
	}
	switch {
	case Is(msg, keys.Up):
		m.cursorT = max(m.cursorT-1, 0)
	case Is(msg, keys.Down):
		m.cursorT = min(m.cursorT+1, len(m.view.tracks)-1)
	case Is(msg, keys.Left):
		m.cursorS = (m.cursorS + track.Length - 1) % track.Length
	case Is(msg, keys.Right):
		m.cursorS = (m.cursorS + 1) % track.Length
	case Is(msg, keys.Rest):
		m.setCell(track.Rest)
	case Is(msg, keys.Clear):
		m.setCell(track.Empty)
	case Is(msg, keys.OctaveDown):
		m.octave = max(m.octave-1, 0)
	case Is(msg, keys.OctaveUp):
		m.octave = min(m.octave+1, 8)
	case Is(msg, keys.Mute):
		m.edit(func(s *groovebox.Session) { s.Sequencer().ToggleMute(m.cursorT) })
	case Is(msg, keys.Instrument):
		m.edit(func(s *groovebox.Session) {
			if tr, ok := s.Sequencer().Track(m.cursorT); ok {
				s.Sequencer().UpdateTrackSynth(m.cursorT, tr.Instrument.Next())
			}
		})
	case Is(msg, keys.VolumeDown, keys.VolumeUp):
		delta := volumeStep
		if Is(msg, keys.VolumeDown) {
			delta = -delta
		}
		m.edit(func(s *groovebox.Session) {
			if tr, ok := s.Sequencer().Track(m.cursorT); ok {
				s.Sequencer().UpdateTrackVolume(m.cursorT, tr.Volume()+delta)
			}
		})
	case Is(msg, keys.Play):
		if err := m.player.Toggle(); err != nil {
			m.err = err
		}
		m.playing = m.player.Playing()
		if !m.playing {
			m.step = -1
		}
	case Is(msg, keys.TempoDown, keys.TempoUp):
		delta := 1
		if Is(msg, keys.TempoDown) {
			delta = -1
		}
		m.edit(func(s *groovebox.Session) { s.Sequencer().SetTempo(s.Sequencer().Tempo() + delta) })
	case Is(msg, keys.Resolution):
		m.edit(func(s *groovebox.Session) {
			s.Sequencer().SetStepResolution(s.Sequencer().Resolution().Next())
		})
		if m.playing {
			m.status = "resolution applies on next start"
		}
	case Is(msg, keys.Groove):
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			seq := s.Sequencer()
			name := nextTemplate(seq.Groove().Templates(), string(seq.GrooveInfo().Type))
			seq.SetGroove(name)
			m.status = "groove: " + name
		})
	case Is(msg, keys.SwingDown, keys.SwingUp):
		delta := grooveDelta(msg, keys.SwingDown)
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			seq := s.Sequencer()
			seq.SetSwingAmount(seq.GrooveInfo().SwingAmount + delta)
		})
	case Is(msg, keys.HumanizeDown, keys.HumanizeUp):
		delta := grooveDelta(msg, keys.HumanizeDown)
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			seq := s.Sequencer()
			seq.SetHumanizeAmount(seq.GrooveInfo().HumanizeAmount + delta)
		})
	case Is(msg, keys.VelocityDown, keys.VelocityUp):
		delta := grooveDelta(msg, keys.VelocityDown)
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			seq := s.Sequencer()
			seq.SetVelocityVariation(seq.GrooveInfo().VelocityVariation + delta)
		})
	case Is(msg, keys.RandomAccents):
		m.restore = nil
		m.edit(func(s *groovebox.Session) { s.Sequencer().Groove().RandomAccentPattern(8, 0.4) })
		m.status = "random accents"
	case Is(msg, keys.Preview):
		m.togglePreview()
	case Is(msg, keys.AddPattern):
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			p, err := s.Chain().AddPattern("", nil)
			if err != nil {
				m.err = err
				return
			}
			m.status = "added " + p.Name
		})
	case Is(msg, keys.DuplicatePattern):
		m.edit(func(s *groovebox.Session) {
			c := s.Chain()
			if p, ok := c.Duplicate(c.Current().ID); ok {
				m.status = "added " + p.Name
			}
		})
	case Is(msg, keys.DeletePattern):
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			c := s.Chain()
			cur := c.Current()
			if !c.Remove(cur.ID) {
				m.status = "cannot delete the last pattern"
				return
			}
			m.status = "deleted " + cur.Name
		})
	case Is(msg, keys.NextPattern):
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			if !s.Chain().Next() {
				m.status = "no other enabled pattern"
			}
		})
	case Is(msg, keys.PrevPattern):
		m.restore = nil
		m.edit(func(s *groovebox.Session) {
			if !s.Chain().Previous() {
				m.status = "no other enabled pattern"
			}
		})
	case Is(msg, keys.TogglePattern):
		m.edit(func(s *groovebox.Session) {
			c := s.Chain()
			on, _ := c.ToggleEnabled(c.Current().ID)
			m.status = fmt.Sprintf("%s enabled: %v", c.Current().Name, on)
		})
	case Is(msg, keys.LengthDown, keys.LengthUp):
		delta := 1
		if Is(msg, keys.LengthDown) {
			delta = -1
		}
		m.edit(func(s *groovebox.Session) {
			c := s.Chain()
			c.SetLength(c.Current().ID, c.Current().Length+delta)
		})
	case Is(msg, keys.ClearAll):
		m.edit(func(s *groovebox.Session) { s.Sequencer().ClearAllTracks() })
		m.status = "cleared all tracks"
	case Is(msg, keys.Save):
		doc := m.player.Song()
		saver := m.saver
		return func() tea.Msg {
			path, err := saver(doc)
			return savedMsg{what: "saved", path: path, err: err}
		}
	case Is(msg, keys.Record):
		m.status = "recording..."
		pl, recorder := m.player, m.recorder
		return func() tea.Msg {
			wav, err := pl.Record(context.Background(), encode.NewWAV(pl.SampleRate()))
			if err != nil {
				return savedMsg{what: "recorded", err: err}
			}
			path, err := recorder(wav)
			return savedMsg{what: "recorded", path: path, err: err}
		}
	case Is(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

func grooveDelta(msg tea.KeyMsg, down key.Binding) float64 {
	if Is(msg, down) {
		return -grooveStep
	}
	return grooveStep
}

// togglePreview auditions the template after the current one, or puts the
// previous settings back when a preview is already running.
func (m *model) togglePreview() {
	if m.restore != nil {
		restore := m.restore
		m.restore = nil
		m.edit(func(*groovebox.Session) { restore() })
		m.status = "preview ended"
		return
	}
	m.edit(func(s *groovebox.Session) {
		g := s.Sequencer().Groove()
		name := nextTemplate(g.Templates(), string(g.Info().Type))
		if restore, ok := g.Preview(name); ok {
			m.restore = restore
			m.status = "previewing " + name
		}
	})
}

func (m *model) edit(fn func(s *groovebox.Session)) {
	m.player.Edit(fn)
}

func (m *model) setCell(n track.Note) {
	t, step := m.cursorT, m.cursorS
	m.edit(func(s *groovebox.Session) { s.Sequencer().SetNote(t, step, n) })
	m.cursorS = (m.cursorS + 1) % track.Length
}

// refresh copies the session into m.view.
func (m *model) refresh() {
	m.player.Edit(func(s *groovebox.Session) {
		seq, c := s.Sequencer(), s.Chain()
		snap := seq.Export()
		m.view = view{
			tracks:     snap.Tracks,
			tempo:      snap.Tempo,
			resolution: snap.StepResolution,
			groove:     seq.Groove().Info(),
			patterns:   c.Summary(),
			current:    c.CurrentIndex(),
			length:     c.Current().Length,
		}
	})
	if len(m.view.tracks) > 0 {
		m.cursorT = min(m.cursorT, len(m.view.tracks)-1)
	}
}

func nextTemplate(templates []groove.TemplateInfo, current string) string {
	for i, t := range templates {
		if t.Name == current {
			return templates[(i+1)%len(templates)].Name
		}
	}
	return templates[0].Name
}
