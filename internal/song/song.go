package song

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/sequencer"
)

var ErrFormat = errors.New("song: unknown format")

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the format from a file extension. Anything that is not
// .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Document is a whole song: the live sequencer state and the chain.
type Document struct {
	Sequencer    sequencer.Snapshot `json:"sequencer" yaml:"sequencer"`
	PatternChain chain.Data         `json:"patternChain" yaml:"patternChain"`
}

func (d Document) Validate() error {
	if err := d.Sequencer.Validate(); err != nil {
		return err
	}
	return d.PatternChain.Validate()
}

// Capture exports seq and c. The chain export saves the live state into the
// active pattern first.
func Capture(seq *sequencer.Sequencer, c *chain.Chain) Document {
	data := c.Export()
	return Document{Sequencer: seq.Export(), PatternChain: data}
}

// Apply loads d into c and then seq. Both halves are validated before either
// is touched.
func Apply(d Document, seq *sequencer.Sequencer, c *chain.Chain) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := c.Import(d.PatternChain); err != nil {
		return err
	}
	return seq.Import(d.Sequencer)
}

func Marshal(d Document, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(d, "", "  ")
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, f)
}

// Unmarshal decodes and validates a document.
func Unmarshal(data []byte, f Format) (Document, error) {
	var d Document
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &d)
	case YAML:
		err = yaml.Unmarshal(data, &d)
	default:
		return d, fmt.Errorf("%w: %q", ErrFormat, f)
	}
	if err != nil {
		return Document{}, fmt.Errorf("song: decode %s: %w", f, err)
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

func Save(path string, d Document) error {
	data, err := Marshal(d, FormatFor(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	d, err := Unmarshal(data, FormatFor(path))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
