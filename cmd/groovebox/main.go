package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cbegin/groovebox-go"
	"github.com/cbegin/groovebox-go/internal/config"
	"github.com/cbegin/groovebox-go/internal/encode"
	"github.com/cbegin/groovebox-go/internal/groove"
	"github.com/cbegin/groovebox-go/internal/midiexport"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/song"
	"github.com/cbegin/groovebox-go/internal/timing"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file (default ~/.config/groovebox/config.yaml)")
		songPath    = flag.String("song", "", "song file to load (.json or .yaml); default is a built-in demo")
		play        = flag.Bool("play", false, "play through the audio device")
		wavPath     = flag.String("wav", "", "render the chain to a WAV file")
		midiPath    = flag.String("midi", "", "export the chain as a standard MIDI file")
		dumpPath    = flag.String("dump", "", "write the song document (.json or .yaml)")
		grooveName  = flag.String("groove", "", "groove template: "+strings.Join(templateNames(), "|"))
		tempo       = flag.Int("tempo", 0, "tempo in BPM")
		resolution  = flag.String("resolution", "", "step resolution: 32n|16n|8n|16t|8t")
		loops       = flag.Int("loops", 1, "passes through the chain (0 = loop forever when playing)")
		writeConfig = flag.Bool("write-config", false, "save the effective settings to the config file")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			fatal(slog.Default(), "locate config", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	level, _ := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["tempo"] {
		cfg.Tempo = *tempo
	}
	if explicit["resolution"] {
		cfg.Resolution = timing.Resolution(*resolution)
	}
	if explicit["groove"] {
		cfg.Groove = *grooveName
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid settings", err)
	}
	if *writeConfig {
		if err := cfg.Save(path); err != nil {
			fatal(logger, "save config", err)
		}
		logger.Info("config saved", "path", path)
	}

	var doc song.Document
	if *songPath != "" {
		doc, err = song.Load(*songPath)
		if err != nil {
			fatal(logger, "load song", err)
		}
		logger.Info("song loaded", "path", *songPath, "patterns", len(doc.PatternChain.Patterns))
		// A song file keeps its own settings unless overridden on the command line.
		err = override(&doc, cfg, explicit["tempo"], explicit["resolution"], explicit["groove"])
	} else {
		doc, err = demoSong()
		if err != nil {
			fatal(logger, "build demo", err)
		}
		err = override(&doc, cfg, true, true, true)
	}
	if err != nil {
		fatal(logger, "apply settings", err)
	}

	passes := max(*loops, 1)
	if *dumpPath != "" {
		if err := song.Save(*dumpPath, doc); err != nil {
			fatal(logger, "dump song", err)
		}
		logger.Info("song written", "path", *dumpPath)
	}
	if *midiPath != "" {
		if err := midiexport.WriteFile(*midiPath, doc.PatternChain, passes); err != nil {
			fatal(logger, "export midi", err)
		}
		logger.Info("midi written", "path", *midiPath, "passes", passes)
	}
	if *wavPath != "" {
		if err := renderWAV(*wavPath, doc, cfg.SampleRate, passes); err != nil {
			fatal(logger, "render wav", err)
		}
		logger.Info("wav written", "path", *wavPath, "passes", passes)
	}
	if *play || (*wavPath == "" && *midiPath == "" && *dumpPath == "") {
		if !explicit["loops"] && cfg.Looping() {
			*loops = 0
		}
		if err := playSong(logger, cfg, doc, *loops); err != nil {
			fatal(logger, "play", err)
		}
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

func templateNames() []string {
	var names []string
	for _, t := range groove.New().Templates() {
		names = append(names, t.Name)
	}
	return names
}

// override applies settings to the song's live sequencer state and to every
// stored pattern, since switching patterns restores their own tempo and
// groove.
func override(doc *song.Document, cfg *config.Config, tempo, res, grv bool) error {
	apply := func(s *sequencer.Snapshot) error {
		if tempo {
			s.Tempo = cfg.Tempo
		}
		if res {
			s.StepResolution = cfg.Resolution
		}
		if grv {
			g := groove.New()
			if !g.ApplyTemplate(cfg.Groove) {
				return fmt.Errorf("unknown groove %q", cfg.Groove)
			}
			s.Swing = g.Export()
		}
		return nil
	}
	if err := apply(&doc.Sequencer); err != nil {
		return err
	}
	for i := range doc.PatternChain.Patterns {
		if err := apply(&doc.PatternChain.Patterns[i].Data); err != nil {
			return err
		}
	}
	return doc.Validate()
}

func renderWAV(path string, doc song.Document, sampleRate, passes int) error {
	samples, err := groovebox.RenderSong(doc, sampleRate, passes)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode.WriteWAV(f, sampleRate, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func playSong(logger *slog.Logger, cfg *config.Config, doc song.Document, loops int) error {
	pl, err := groovebox.NewPlayer(cfg.SampleRate,
		groovebox.WithLogger(logger),
		groovebox.WithPlayerLookahead(time.Duration(cfg.LookaheadMs)*time.Millisecond),
		groovebox.WithLoopPlayback(loops != 1),
	)
	if err != nil {
		return err
	}
	defer pl.Close()
	if err := pl.LoadSong(doc); err != nil {
		return err
	}
	pl.SetMasterVolume(cfg.MasterVolume)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// the song document carries its own loop flag
	first := -1
	pl.Edit(func(s *groovebox.Session) {
		s.Chain().Loop = loops != 1
		first = s.Chain().CurrentIndex()
	})
	events := pl.Watch()
	if err := pl.Play(); err != nil {
		return err
	}
	passes := 0
	for {
		select {
		case <-ctx.Done():
			pl.Stop()
			return nil
		case ev := <-events:
			switch ev.Kind {
			case groovebox.EventPatternChanged:
				logger.Debug("pattern", "index", ev.Pattern, "name", ev.Name)
				if ev.Pattern != first {
					continue
				}
				passes++
				fmt.Printf("pass %d completed\n", passes)
				if loops > 0 && passes >= loops {
					pl.Stop()
				}
			case groovebox.EventPlaybackEnded:
				fmt.Println("playback completed")
				return nil
			}
		}
	}
}
