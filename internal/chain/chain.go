package chain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/cbegin/groovebox-go/internal/notify"
	"github.com/cbegin/groovebox-go/internal/sequencer"
	"github.com/cbegin/groovebox-go/internal/track"
)

var ErrMalformed = errors.New("chain: malformed data")

const (
	DefaultLength = track.Length
	MinLength     = 1
	MaxLength     = 64
)

// Snapshotter is the part of the sequencer a chain depends on.
type Snapshotter interface {
	Export() sequencer.Snapshot
	Import(sequencer.Snapshot) error
	ResetStep()
}

type Pattern struct {
	ID      string             `json:"id" yaml:"id"`
	Name    string             `json:"name" yaml:"name"`
	Data    sequencer.Snapshot `json:"data" yaml:"data"`
	Length  int                `json:"length" yaml:"length"`
	Enabled bool               `json:"enabled" yaml:"enabled"`
}

func (p Pattern) Clone() Pattern {
	p.Data = p.Data.Clone()
	return p
}

func (p Pattern) HasNotes() bool { return p.Data.HasNotes() }

// Change is published after the active pattern changes.
type Change struct {
	Pattern Pattern
	Index   int
}

// Summary is a display row for one pattern.
type Summary struct {
	ID        string
	Name      string
	Length    int
	Enabled   bool
	IsCurrent bool
	HasNotes  bool
}

type Option func(*Chain)

// WithIDs replaces the pattern id generator.
func WithIDs(fn func() string) Option {
	return func(c *Chain) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func WithLoop(loop bool) Option {
	return func(c *Chain) { c.Loop = loop }
}

// Chain is an ordered list of patterns with a cursor. It always holds at
// least one pattern and the cursor always points at one of them. The
// pattern under the cursor is the one live in the sequencer.
type Chain struct {
	Loop bool

	seq      Snapshotter
	patterns []Pattern
	current  int
	step     int
	newID    func() string
	changes  notify.Subject[Change]
}

// New creates a chain seeded with "Pattern 1" taken from the sequencer.
func New(seq Snapshotter, opts ...Option) *Chain {
	c := &Chain{
		Loop:  true,
		seq:   seq,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.patterns = append(c.patterns, c.newPattern("Pattern 1", seq.Export()))
	return c
}

func (c *Chain) newPattern(name string, data sequencer.Snapshot) Pattern {
	return Pattern{
		ID:      c.newID(),
		Name:    name,
		Data:    data,
		Length:  DefaultLength,
		Enabled: true,
	}
}

// AddPattern appends a pattern. An empty name becomes "Pattern N"; nil data
// captures the sequencer's current state.
func (c *Chain) AddPattern(name string, data *sequencer.Snapshot) (Pattern, error) {
	if name == "" {
		name = fmt.Sprintf("Pattern %d", len(c.patterns)+1)
	}
	var snap sequencer.Snapshot
	if data == nil {
		snap = c.seq.Export()
	} else {
		if err := data.Validate(); err != nil {
			return Pattern{}, err
		}
		snap = data.Clone()
	}
	p := c.newPattern(name, snap)
	c.patterns = append(c.patterns, p)
	return p.Clone(), nil
}

// Duplicate appends a deep copy of pattern id named "<name> Copy".
func (c *Chain) Duplicate(id string) (Pattern, bool) {
	i := c.index(id)
	if i < 0 {
		return Pattern{}, false
	}
	if i == c.current {
		c.Save()
	}
	src := c.patterns[i]
	p := Pattern{
		ID:      c.newID(),
		Name:    src.Name + " Copy",
		Data:    src.Data.Clone(),
		Length:  src.Length,
		Enabled: src.Enabled,
	}
	c.patterns = append(c.patterns, p)
	return p.Clone(), true
}

// Remove deletes pattern id. The last remaining pattern cannot be removed.
// Removing the active pattern loads whichever pattern the cursor lands on.
func (c *Chain) Remove(id string) bool {
	i := c.index(id)
	if i < 0 || len(c.patterns) <= 1 {
		return false
	}
	old, cur := slices.Clone(c.patterns), c.current
	c.patterns = slices.Delete(c.patterns, i, i+1)
	switch {
	case i < c.current:
		c.current--
	case i == c.current:
		if err := c.load(min(i, len(c.patterns)-1)); err != nil {
			c.patterns, c.current = old, cur
			return false
		}
	}
	return true
}

// SwitchTo saves the live state into the active pattern and makes id active.
func (c *Chain) SwitchTo(id string) bool {
	return c.moveTo(c.index(id))
}

// Next moves to the next enabled pattern, wrapping to the start when Loop
// is set. It returns false and leaves the cursor alone when there is none.
// A looping chain with a single enabled pattern moves onto that same
// pattern and reloads it, so playback keeps repeating it instead of ending.
func (c *Chain) Next() bool {
	i := c.scan(c.current+1, 1)
	if i < 0 && c.Loop {
		i = c.scan(0, 1)
	}
	return c.moveTo(i)
}

// Previous is Next in the other direction.
func (c *Chain) Previous() bool {
	i := c.scan(c.current-1, -1)
	if i < 0 && c.Loop {
		i = c.scan(len(c.patterns)-1, -1)
	}
	return c.moveTo(i)
}

func (c *Chain) scan(from, dir int) int {
	for i := from; i >= 0 && i < len(c.patterns); i += dir {
		if c.patterns[i].Enabled {
			return i
		}
	}
	return -1
}

// moveTo saves the live state and loads pattern i. The cursor stays put
// when the load fails.
func (c *Chain) moveTo(i int) bool {
	if i < 0 {
		return false
	}
	c.Save()
	return c.load(i) == nil
}

// load imports pattern i into the sequencer, makes it active and rewinds
// both step counters. Nothing changes when the import fails.
func (c *Chain) load(i int) error {
	p := c.patterns[i]
	if err := c.seq.Import(p.Data.Clone()); err != nil {
		return fmt.Errorf("chain: load %q: %w", p.Name, err)
	}
	c.current = i
	c.seq.ResetStep()
	c.step = 0
	c.changes.Publish(Change{Pattern: p.Clone(), Index: i})
	return nil
}

// Save writes the sequencer's live state into the active pattern.
func (c *Chain) Save() {
	c.patterns[c.current].Data = c.seq.Export()
}

// PlayStep advances the position within the active pattern. It returns
// false, after rewinding to 0, when the pattern's length is used up.
func (c *Chain) PlayStep() bool {
	c.step++
	if c.step >= c.patterns[c.current].Length {
		c.step = 0
		return false
	}
	return true
}

// Step is the position within the active pattern.
func (c *Chain) Step() int { return c.step }

// ResetStep rewinds the position within the active pattern without
// touching the sequencer.
func (c *Chain) ResetStep() { c.step = 0 }

// ToggleEnabled flips the enabled flag and returns the new value.
func (c *Chain) ToggleEnabled(id string) (enabled, ok bool) {
	i := c.index(id)
	if i < 0 {
		return false, false
	}
	c.patterns[i].Enabled = !c.patterns[i].Enabled
	return c.patterns[i].Enabled, true
}

// SetLength clamps n to [MinLength, MaxLength] and returns the stored value.
func (c *Chain) SetLength(id string, n int) (int, bool) {
	i := c.index(id)
	if i < 0 {
		return 0, false
	}
	c.patterns[i].Length = clampLength(n)
	return c.patterns[i].Length, true
}

func (c *Chain) Rename(id, name string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.patterns[i].Name = name
	return true
}

func (c *Chain) Len() int          { return len(c.patterns) }
func (c *Chain) CurrentIndex() int { return c.current }

// Current returns a copy of the active pattern as last saved.
func (c *Chain) Current() Pattern { return c.patterns[c.current].Clone() }

// Patterns returns copies of every pattern in chain order.
func (c *Chain) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	for i, p := range c.patterns {
		out[i] = p.Clone()
	}
	return out
}

func (c *Chain) Summary() []Summary {
	out := make([]Summary, len(c.patterns))
	for i, p := range c.patterns {
		out[i] = Summary{
			ID:        p.ID,
			Name:      p.Name,
			Length:    p.Length,
			Enabled:   p.Enabled,
			IsCurrent: i == c.current,
			HasNotes:  p.HasNotes(),
		}
	}
	return out
}

// TotalLength is the sum of enabled pattern lengths in steps.
func (c *Chain) TotalLength() int {
	n := 0
	for _, p := range c.patterns {
		if p.Enabled {
			n += p.Length
		}
	}
	return n
}

// OnChange subscribes to active-pattern changes.
func (c *Chain) OnChange(fn func(Change)) (unsubscribe func()) {
	return c.changes.Subscribe(fn)
}

func (c *Chain) index(id string) int {
	for i, p := range c.patterns {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func clampLength(n int) int {
	if n < MinLength {
		return MinLength
	}
	if n > MaxLength {
		return MaxLength
	}
	return n
}
