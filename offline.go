package groovebox

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbegin/groovebox-go/internal/encode"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/song"
	"github.com/cbegin/groovebox-go/internal/track"
)

var ErrNoPatterns = errors.New("groovebox: chain has no enabled patterns")

const (
	// MaxTail bounds how long rendering continues after the last step to
	// let notes and reverb ring out.
	MaxTail = 2.0

	silenceFloor = 1e-4
)

// RenderSong renders passes runs through the enabled patterns of doc,
// starting from the first enabled pattern, followed by the release tail.
func RenderSong(doc song.Document, sampleRate, passes int) ([]float32, error) {
	if passes < 1 {
		passes = 1
	}
	s := NewSession(sampleRate, WithLookahead(0))
	s.Bank().Init()
	if err := song.Apply(doc, s.Sequencer(), s.Chain()); err != nil {
		return nil, err
	}
	first := ""
	for _, p := range s.Chain().Summary() {
		if p.Enabled {
			first = p.ID
			break
		}
	}
	if first == "" {
		return nil, ErrNoPatterns
	}
	s.Chain().SwitchTo(first)
	s.Chain().Loop = true
	if err := s.StartBounded(s.Chain().TotalLength() * passes); err != nil {
		return nil, err
	}
	return renderRun(s), nil
}

// RenderPattern renders one pass of the pattern grid (track.Length steps)
// of snap without chain advance, followed by the release tail.
func RenderPattern(snap sequencer.Snapshot, sampleRate int) ([]float32, error) {
	s := NewSession(sampleRate, WithLookahead(0), WithChainAdvance(false))
	s.Bank().Init()
	if err := s.Sequencer().Import(snap); err != nil {
		return nil, err
	}
	if err := s.StartBounded(track.Length); err != nil {
		return nil, err
	}
	return renderRun(s), nil
}

func renderRun(s *Session) []float32 {
	sr := s.Bank().SampleRate()
	var out []float32
	buf := make([]float32, renderBlock)
	for s.Transport().Running() {
		s.Render(buf)
		out = append(out, buf...)
	}
	maxTail := int(MaxTail * float64(sr))
	for tail := 0; tail < maxTail; tail += len(buf) {
		s.Render(buf)
		out = append(out, buf...)
		if s.Silent() && peak(buf) < silenceFloor {
			break
		}
	}
	return out
}

// Record renders one pass of snap and encodes it. A failing encoder returns
// its error; nothing else is affected.
func Record(ctx context.Context, snap sequencer.Snapshot, sampleRate int, enc encode.Encoder) ([]byte, error) {
	samples, err := RenderPattern(snap, sampleRate)
	if err != nil {
		return nil, err
	}
	out, err := encode.All(ctx, enc, samples)
	if err != nil {
		return nil, fmt.Errorf("groovebox: record: %w", err)
	}
	return out, nil
}

func peak(buf []float32) float32 {
	var m float32
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		m = max(m, v)
	}
	return m
}
