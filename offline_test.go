package groovebox

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-audio/wav"

	"github.com/cbegin/groovebox-go/internal/encode"
	"github.com/cbegin/groovebox-go/internal/song"
	"github.com/cbegin/groovebox-go/internal/track"
)

const testRate = 48000

// 16n at 120 bpm
const stepSamples = testRate / 8

func beatSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(testRate, WithLookahead(0))
	s.Bank().Init()
	seq := s.Sequencer()
	for step := 0; step < track.Length; step += 4 {
		seq.SetNote(0, step, "C2")
	}
	seq.SetNote(3, 4, "REST")
	seq.SetNote(3, 12, "REST")
	return s
}

func TestRenderPatternLengthAndTail(t *testing.T) {
	s := beatSession(t)
	out, err := RenderPattern(s.Sequencer().Export(), testRate)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lastTick := (track.Length - 1) * stepSamples
	if len(out) < lastTick {
		t.Fatalf("rendered %d samples, want at least %d", len(out), lastTick)
	}
	if limit := track.Length*stepSamples + int(MaxTail*testRate) + renderBlock; len(out) > limit {
		t.Fatalf("rendered %d samples, tail not bounded by %d", len(out), limit)
	}
	if peak(out) == 0 {
		t.Fatal("rendered pattern is silent")
	}
	if peak(out[:stepSamples/2]) == 0 {
		t.Fatal("downbeat did not sound")
	}
}

func TestRenderPatternEmptyIsShortAndSilent(t *testing.T) {
	s := NewSession(testRate)
	out, err := RenderPattern(s.Sequencer().Export(), testRate)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if peak(out) != 0 {
		t.Fatalf("empty pattern peak = %v, want 0", peak(out))
	}
	if limit := track.Length*stepSamples + renderBlock; len(out) > limit {
		t.Fatalf("silent render ran %d samples into the tail", len(out)-limit)
	}
}

func TestRenderSongPlaysEveryPass(t *testing.T) {
	s := beatSession(t)
	c := s.Chain()
	c.SetLength(c.Current().ID, 4)
	b, err := c.AddPattern("B", nil)
	if err != nil {
		t.Fatal(err)
	}
	c.SetLength(b.ID, 4)
	doc := song.Capture(s.Sequencer(), c)

	one, err := RenderSong(doc, testRate, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	two, err := RenderSong(doc, testRate, 2)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(one) < 7*stepSamples || len(two) < 15*stepSamples {
		t.Fatalf("pass lengths = %d, %d samples", len(one), len(two))
	}
	if len(two) <= len(one) {
		t.Fatalf("second pass did not extend the render: %d <= %d", len(two), len(one))
	}
	// the downbeat of the second pass sounds like the first
	at := 8 * stepSamples
	if peak(two[at:at+stepSamples/2]) == 0 {
		t.Fatal("second pass is silent")
	}
}

func TestRenderSongNoPatterns(t *testing.T) {
	s := beatSession(t)
	c := s.Chain()
	c.ToggleEnabled(c.Current().ID)
	doc := song.Capture(s.Sequencer(), c)
	if _, err := RenderSong(doc, testRate, 1); !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("err = %v, want ErrNoPatterns", err)
	}
}

func TestRenderSongRejectsInvalid(t *testing.T) {
	doc := song.Capture(NewSession(testRate).Sequencer(), NewSession(testRate).Chain())
	doc.Sequencer.Tempo = 0
	if _, err := RenderSong(doc, testRate, 1); err == nil {
		t.Fatal("invalid document rendered")
	}
}

func TestRecordWAV(t *testing.T) {
	s := beatSession(t)
	s.Sequencer().SetTempo(240)
	data, err := Record(context.Background(), s.Sequencer().Export(), testRate, encode.NewWAV(testRate))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != testRate || len(buf.Data) < (track.Length-1)*stepSamples/2 {
		t.Fatalf("decoded %d samples at %d Hz", len(buf.Data), dec.SampleRate)
	}
}

func TestRecordCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := beatSession(t)
	if _, err := Record(ctx, s.Sequencer().Export(), testRate, encode.Raw{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
