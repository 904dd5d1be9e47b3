package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/groovebox-go/internal/track"
)

const (
	nameWidth = 8
	cellWidth = 3
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	playStyle     = lipgloss.NewStyle().Background(lipgloss.Color("58"))
	beatStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	offbeatStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle    = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	disabledStyle = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m model) View() string {
	var buf strings.Builder
	buf.WriteString(m.headerView())
	buf.WriteString("\n\n")
	buf.WriteString(m.patternsView())
	buf.WriteString("\n\n")
	buf.WriteString(m.rulerView())
	buf.WriteString("\n")
	for i, tr := range m.view.tracks {
		buf.WriteString(m.trackView(i, tr))
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	switch {
	case m.err != nil:
		buf.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		buf.WriteString(labelStyle.Render(m.status))
	}
	buf.WriteString("\n")
	buf.WriteString(m.help.View(keys))
	return buf.String()
}

func (m model) headerView() string {
	state := "■ stopped"
	if m.playing {
		state = "▶ playing"
	}
	parts := []string{
		titleStyle.Render("groovebox"),
		state,
		labelStyle.Render("tempo ") + numberStyle.Render(fmt.Sprint(m.view.tempo)),
		labelStyle.Render("step ") + numberStyle.Render(m.view.resolution.String()),
		labelStyle.Render("groove ") + numberStyle.Render(string(m.view.groove.Type)),
		labelStyle.Render("swing/human/vel ") + numberStyle.Render(fmt.Sprintf("%.0f/%.0f/%.0f",
			m.view.groove.SwingAmount, m.view.groove.HumanizeAmount, m.view.groove.VelocityVariation)),
		labelStyle.Render("octave ") + numberStyle.Render(fmt.Sprint(m.octave)),
	}
	return strings.Join(parts, "   ")
}

func (m model) patternsView() string {
	var out []string
	for i, p := range m.view.patterns {
		label := fmt.Sprintf("%d:%s(%d)", i+1, p.Name, p.Length)
		switch {
		case i == m.view.current:
			label = activeStyle.Render("[" + label + "]")
		case !p.Enabled:
			label = disabledStyle.Render(" " + label + " ")
		default:
			label = " " + label + " "
		}
		out = append(out, label)
	}
	return labelStyle.Render("chain ") + strings.Join(out, " ")
}

func (m model) rulerView() string {
	var buf strings.Builder
	buf.WriteString(strings.Repeat(" ", nameWidth+1))
	for step := 0; step < track.Length; step++ {
		cell := "   "
		if step%4 == 0 {
			cell = fmt.Sprintf("%-*d", cellWidth, step+1)
		}
		if step >= m.view.length {
			cell = disabledStyle.Render(cell)
		}
		buf.WriteString(cell)
	}
	return buf.String()
}

func (m model) trackView(i int, tr track.Data) string {
	var buf strings.Builder
	name := fmt.Sprintf("%-*.*s", nameWidth, nameWidth, tr.Name)
	if tr.Muted {
		name = mutedStyle.Render(name)
	} else if i == m.cursorT {
		name = activeStyle.Render(name)
	}
	buf.WriteString(name)
	buf.WriteString(" ")
	for step, n := range tr.Sequence {
		text := cellText(n)
		style := offbeatStyle
		if step%4 == 0 {
			style = beatStyle
		}
		switch {
		case i == m.cursorT && step == m.cursorS:
			style = cursorStyle
		case step == m.step && m.playing:
			style = playStyle
		case step >= m.view.length:
			style = disabledStyle
		}
		buf.WriteString(style.Render(text))
	}
	buf.WriteString(labelStyle.Render(fmt.Sprintf(" %s %3.0f%%", tr.Type, tr.Volume*100)))
	return buf.String()
}

func cellText(n track.Note) string {
	switch {
	case n.IsEmpty():
		return fmt.Sprintf("%-*s", cellWidth, "·")
	case n.IsRest():
		return fmt.Sprintf("%-*s", cellWidth, "x")
	}
	return fmt.Sprintf("%-*s", cellWidth, string(n))
}
