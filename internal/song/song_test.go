package song

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/instrument"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/track"
)

type nopLayer struct{ next instrument.Handle }

func (l *nopLayer) Initialized() bool { return true }
func (l *nopLayer) Create(track.Instrument) instrument.Handle {
	l.next++
	return l.next
}
func (l *nopLayer) Trigger(instrument.Handle, track.Note, float64, float64, float64) {}
func (l *nopLayer) SetVolume(instrument.Handle, float64)                            {}
func (l *nopLayer) Dispose(instrument.Handle)                                       {}
func (l *nopLayer) Cancel()                                                         {}

func fixture() (*sequencer.Sequencer, *chain.Chain) {
	seq := sequencer.New(&nopLayer{})
	c := chain.New(seq)
	seq.SetNote(0, 0, "C4")
	seq.SetNote(0, 2, track.Rest)
	seq.SetNote(1, 16, "D#2")
	seq.Groove().ApplyTemplate("latin")
	c.AddPattern("B", nil)
	c.Next()
	seq.SetNote(2, 5, "G5")
	seq.SetTempo(98)
	return seq, c
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			seq, c := fixture()
			doc := Capture(seq, c)
			data, err := Marshal(doc, f)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := Unmarshal(data, f)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Fatalf("round trip differs:\n got %+v\nwant %+v", got, doc)
			}

			seq2 := sequencer.New(&nopLayer{})
			c2 := chain.New(seq2)
			if err := Apply(got, seq2, c2); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if again := Capture(seq2, c2); !reflect.DeepEqual(again, doc) {
				t.Fatal("apply then capture differs from the original document")
			}
		})
	}
}

func TestJSONShape(t *testing.T) {
	seq, c := fixture()
	data, err := Marshal(Capture(seq, c), JSON)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"tracks", "tempo", "stepResolution", "swing"} {
		if _, ok := m["sequencer"][key]; !ok {
			t.Fatalf("sequencer.%s missing", key)
		}
	}
	for _, key := range []string{"patterns", "currentPatternIndex", "loop"} {
		if _, ok := m["patternChain"][key]; !ok {
			t.Fatalf("patternChain.%s missing", key)
		}
	}
	seqs := m["sequencer"]["tracks"].([]any)[0].(map[string]any)["sequence"].([]any)
	if len(seqs) != track.Length || seqs[0] != "C4" || seqs[1] != nil || seqs[2] != "REST" {
		t.Fatalf("sequence encoding = %v", seqs[:3])
	}
}

func TestApplyRejectsInvalidAtomically(t *testing.T) {
	seq, c := fixture()
	doc := Capture(seq, c)
	doc.PatternChain.Patterns[0].Length = 0

	seq2 := sequencer.New(&nopLayer{})
	c2 := chain.New(seq2)
	before := Capture(seq2, c2)
	if err := Apply(doc, seq2, c2); !errors.Is(err, chain.ErrMalformed) {
		t.Fatalf("err = %v, want chain.ErrMalformed", err)
	}
	if !reflect.DeepEqual(Capture(seq2, c2), before) {
		t.Fatal("state changed after rejected document")
	}

	doc = Capture(seq, c)
	doc.Sequencer.Tempo = 5
	if err := Apply(doc, seq2, c2); !errors.Is(err, sequencer.ErrMalformed) {
		t.Fatalf("err = %v, want sequencer.ErrMalformed", err)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal([]byte("{"), JSON); err == nil {
		t.Fatal("truncated JSON accepted")
	}
	if _, err := Unmarshal([]byte("{}"), JSON); err == nil {
		t.Fatal("empty document accepted")
	}
	if _, err := Unmarshal(nil, "toml"); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestSaveLoadByExtension(t *testing.T) {
	seq, c := fixture()
	doc := Capture(seq, c)
	dir := t.TempDir()
	for _, name := range []string{"song.json", "song.yaml", "nested/song.yml"} {
		path := filepath.Join(dir, name)
		if err := Save(path, doc); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if !reflect.DeepEqual(got, doc) {
			t.Fatalf("%s round trip differs", name)
		}
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "song.yaml"))
	if raw[0] == '{' {
		t.Fatal("yaml file written as JSON")
	}
}

func TestStoreSavesNewestFirst(t *testing.T) {
	seq, c := fixture()
	doc := Capture(seq, c)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Store{Dir: t.TempDir(), Now: func() time.Time { return now }}

	if saves, err := s.Saves("demo"); err != nil || len(saves) != 0 {
		t.Fatalf("empty store saves = %v, %v", saves, err)
	}
	if _, err := s.Save("demo", "", doc); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)
	seq.SetTempo(150)
	if _, err := s.Save("demo", "faster", Capture(seq, c)); err != nil {
		t.Fatal(err)
	}

	saves, err := s.Saves("demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(saves) != 2 || saves[0].Name != "faster" || saves[1].Name != "" {
		t.Fatalf("saves = %+v", saves)
	}
	latest, err := s.Latest("demo")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Sequencer.Tempo != 150 {
		t.Fatalf("latest tempo = %d, want 150", latest.Sequencer.Tempo)
	}
	projects, _ := s.Projects()
	if !reflect.DeepEqual(projects, []string{"demo"}) {
		t.Fatalf("projects = %v", projects)
	}
	if _, err := s.Latest("none"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing project err = %v", err)
	}
}
