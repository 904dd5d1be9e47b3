package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/groovebox-go"
	"github.com/cbegin/groovebox-go/internal/config"
	"github.com/cbegin/groovebox-go/internal/song"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/groovebox/config.yaml)")
		songPath   = flag.String("song", "", "song file to edit; saves go back to it")
		project    = flag.String("project", "untitled", "project name for timestamped saves when no -song is given")
	)
	flag.Parse()

	if err := run(*configPath, *songPath, *project); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, songPath, project string) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = filepath.Join(dir, "config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()

	// The terminal belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "groovebox-tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))

	pl, err := groovebox.NewPlayer(cfg.SampleRate,
		groovebox.WithLogger(logger),
		groovebox.WithPlayerLookahead(time.Duration(cfg.LookaheadMs)*time.Millisecond),
		groovebox.WithLoopPlayback(cfg.Looping()),
	)
	if err != nil {
		return err
	}
	defer pl.Close()
	pl.SetMasterVolume(cfg.MasterVolume)

	store := &song.Store{Dir: cfg.SongDir}
	if store.Dir == "" {
		if store.Dir, err = song.DefaultDir(); err != nil {
			return err
		}
	}
	loaded, err := loadInitial(pl, logger, store, songPath, project)
	if err != nil {
		return err
	}
	if !loaded {
		pl.Edit(func(s *groovebox.Session) {
			s.Sequencer().SetTempo(cfg.Tempo)
			s.Sequencer().SetStepResolution(cfg.Resolution)
			s.Sequencer().SetGroove(cfg.Groove)
		})
	}

	saver := func(doc song.Document) (string, error) {
		if songPath != "" {
			return songPath, song.Save(songPath, doc)
		}
		return store.Save(project, "", doc)
	}
	recorder := func(wav []byte) (string, error) {
		path := wavPath(store.Dir, songPath, project, time.Now())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, os.WriteFile(path, wav, 0o644)
	}
	_, err = tea.NewProgram(newModel(pl, logger, saver, recorder), tea.WithAltScreen()).Run()
	return err
}

// wavPath puts recordings next to the song file, or in the project folder
// with a timestamp when there is none.
func wavPath(dir, songPath, project string, now time.Time) string {
	if songPath != "" {
		return strings.TrimSuffix(songPath, filepath.Ext(songPath)) + ".wav"
	}
	return filepath.Join(dir, project, now.Format("2006-01-02_15-04-05")+".wav")
}

// loadInitial opens songPath when it exists, otherwise the newest save of
// project. Neither existing leaves the default session.
func loadInitial(pl *groovebox.Player, logger *slog.Logger, store *song.Store, songPath, project string) (bool, error) {
	var (
		doc song.Document
		err error
	)
	if songPath != "" {
		doc, err = song.Load(songPath)
	} else {
		doc, err = store.Latest(project)
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("new song", "path", songPath, "project", project)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.Info("song loaded", "path", songPath, "project", project)
	return true, pl.LoadSong(doc)
}
