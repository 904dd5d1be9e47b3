package chain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Data is the serialized chain. A document without a loop field loads as
// looping.
type Data struct {
	Patterns            []Pattern `json:"patterns" yaml:"patterns"`
	CurrentPatternIndex int       `json:"currentPatternIndex" yaml:"currentPatternIndex"`
	Loop                bool      `json:"loop" yaml:"loop"`
}

type rawData struct {
	Patterns            []Pattern `json:"patterns" yaml:"patterns"`
	CurrentPatternIndex int       `json:"currentPatternIndex" yaml:"currentPatternIndex"`
	Loop                *bool     `json:"loop" yaml:"loop"`
}

func (r rawData) data() Data {
	d := Data{Patterns: r.Patterns, CurrentPatternIndex: r.CurrentPatternIndex, Loop: true}
	if r.Loop != nil {
		d.Loop = *r.Loop
	}
	return d
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var r rawData
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*d = r.data()
	return nil
}

func (d *Data) UnmarshalYAML(value *yaml.Node) error {
	var r rawData
	if err := value.Decode(&r); err != nil {
		return err
	}
	*d = r.data()
	return nil
}

func (d Data) Clone() Data {
	ps := make([]Pattern, len(d.Patterns))
	for i, p := range d.Patterns {
		ps[i] = p.Clone()
	}
	d.Patterns = ps
	return d
}

func (d Data) Validate() error {
	if len(d.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrMalformed)
	}
	seen := make(map[string]bool, len(d.Patterns))
	for i, p := range d.Patterns {
		if p.ID == "" {
			return fmt.Errorf("%w: pattern %d has no id", ErrMalformed, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate pattern id %q", ErrMalformed, p.ID)
		}
		seen[p.ID] = true
		if p.Length < MinLength || p.Length > MaxLength {
			return fmt.Errorf("%w: pattern %q length %d", ErrMalformed, p.ID, p.Length)
		}
		if err := p.Data.Validate(); err != nil {
			return fmt.Errorf("%w: pattern %q: %v", ErrMalformed, p.ID, err)
		}
	}
	return nil
}

// Export saves the live state into the active pattern and returns a deep
// copy of the chain.
func (c *Chain) Export() Data {
	c.Save()
	return Data{
		Patterns:            c.Patterns(),
		CurrentPatternIndex: c.current,
		Loop:                c.Loop,
	}
}

// Import replaces the chain and loads the active pattern into the
// sequencer. Nothing changes when d fails validation. A cursor outside the
// pattern list becomes 0.
func (c *Chain) Import(d Data) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d = d.Clone()
	cur := d.CurrentPatternIndex
	if cur < 0 || cur >= len(d.Patterns) {
		cur = 0
	}
	old := c.patterns
	c.patterns = d.Patterns
	if err := c.load(cur); err != nil {
		c.patterns = old
		return err
	}
	c.Loop = d.Loop
	return nil
}
