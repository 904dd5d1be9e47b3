package groove

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/cbegin/groovebox-go/internal/timing"
)

// Type tags the origin of the current groove settings.
type Type string

const (
	None    Type = "none"
	Swing   Type = "swing"
	Shuffle Type = "shuffle"
	Latin   Type = "latin"
	Funk    Type = "funk"
	Trap    Type = "trap"
	Dilla   Type = "dilla"
	Custom  Type = "custom"
)

// ErrInvalidState is returned by Import for out-of-range settings.
var ErrInvalidState = errors.New("groove: invalid state")

// Template is a named bundle of swing, humanize and accent presets.
type Template struct {
	SwingAmount    float64
	HumanizeAmount float64
	AccentPattern  []float64
	Description    string
}

// TemplateInfo is one entry of Templates.
type TemplateInfo struct {
	Name        string
	Description string
}

// State is the exportable groove configuration.
type State struct {
	GrooveType        Type      `json:"grooveType" yaml:"grooveType"`
	SwingAmount       float64   `json:"swingAmount" yaml:"swingAmount"`
	HumanizeAmount    float64   `json:"humanizeAmount" yaml:"humanizeAmount"`
	VelocityVariation float64   `json:"velocityVariation" yaml:"velocityVariation"`
	AccentPattern     []float64 `json:"accentPattern" yaml:"accentPattern"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.AccentPattern = append([]float64{}, s.AccentPattern...)
	return s
}

// Validate checks that s could have been produced by an Engine.
func (s State) Validate() error {
	if s.GrooveType == "" {
		return fmt.Errorf("%w: missing grooveType", ErrInvalidState)
	}
	for name, v := range map[string]float64{
		"swingAmount":       s.SwingAmount,
		"humanizeAmount":    s.HumanizeAmount,
		"velocityVariation": s.VelocityVariation,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s %v out of [0,100]", ErrInvalidState, name, v)
		}
	}
	for i, v := range s.AccentPattern {
		if v < minAccent || v > maxAccent {
			return fmt.Errorf("%w: accent %d = %v out of [%v,%v]", ErrInvalidState, i, v, minAccent, maxAccent)
		}
	}
	return nil
}

const (
	minAccent = 0.1
	maxAccent = 1.0
)

var builtinOrder = []string{"none", "swing", "shuffle", "latin", "funk", "trap", "dilla"}

func builtinTemplates() map[string]Template {
	return map[string]Template{
		"none":    {0, 0, nil, "Straight timing"},
		"swing":   {35, 5, []float64{1.0, 0.7, 0.9, 0.7}, "Classic jazz swing"},
		"shuffle": {50, 8, []float64{1.0, 0.6, 0.8, 0.6}, "Heavy shuffle feel"},
		"latin":   {15, 3, []float64{1.0, 0.7, 0.8, 0.9, 0.7, 0.6, 0.8, 0.7}, "Latin groove"},
		"funk":    {20, 10, []float64{1.0, 0.6, 0.8, 0.9, 0.7, 0.5, 0.8, 0.6}, "Funk pocket"},
		"trap":    {8, 15, []float64{1.0, 0.5, 0.6, 0.8, 0.7, 0.5, 0.9, 0.6}, "Modern trap feel"},
		"dilla":   {25, 20, []float64{1.0, 0.6, 0.7, 0.8, 0.6, 0.5, 0.8, 0.7}, "J Dilla-style laid back"},
	}
}

var maxSwingOffsets = map[timing.Resolution]float64{
	timing.Res32n: 0.02,
	timing.Res16n: 0.04,
	timing.Res8n:  0.08,
	timing.Res16t: 0.03,
	timing.Res8t:  0.06,
}

var maxHumanizeOffsets = map[timing.Resolution]float64{
	timing.Res32n: 0.005,
	timing.Res16n: 0.01,
	timing.Res8n:  0.02,
	timing.Res16t: 0.008,
	timing.Res8t:  0.015,
}

// MaxSwingOffset is the off-beat delay in seconds at 100% swing.
func MaxSwingOffset(res timing.Resolution) float64 {
	if v, ok := maxSwingOffsets[res]; ok {
		return v
	}
	return maxSwingOffsets[timing.Res16n]
}

// MaxHumanizeOffset is the jitter bound in seconds at 100% humanize.
func MaxHumanizeOffset(res timing.Resolution) float64 {
	if v, ok := maxHumanizeOffsets[res]; ok {
		return v
	}
	return maxHumanizeOffsets[timing.Res16n]
}

type Option func(*Engine)

// WithRand replaces the uniform [0,1) source used for humanize, velocity
// variation and random accents.
func WithRand(rnd func() float64) Option {
	return func(e *Engine) {
		if rnd != nil {
			e.rand = rnd
		}
	}
}

// Engine computes per-step timing offsets and accent multipliers.
// It is not safe for concurrent use.
type Engine struct {
	state     State
	templates map[string]Template
	rand      func() float64
}

func New(opts ...Option) *Engine {
	e := &Engine{
		state:     State{GrooveType: None},
		templates: builtinTemplates(),
		rand:      rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// uniform returns a value in [lo, hi).
func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*e.rand()
}

// ApplyTemplate overwrites swing, humanize and accents from the named
// template. Velocity variation is left alone. Unknown names return false.
func (e *Engine) ApplyTemplate(name string) bool {
	t, ok := e.templates[name]
	if !ok {
		return false
	}
	e.state.GrooveType = Type(name)
	e.state.SwingAmount = t.SwingAmount
	e.state.HumanizeAmount = t.HumanizeAmount
	e.state.AccentPattern = append([]float64{}, t.AccentPattern...)
	return true
}

// TimingOffset returns the seconds to add to a step's nominal time.
// The result is not clamped and may be negative.
func (e *Engine) TimingOffset(step int, res timing.Resolution) float64 {
	offset := 0.0
	if e.state.SwingAmount > 0 && step%2 == 1 {
		offset += (e.state.SwingAmount / 100) * MaxSwingOffset(res)
	}
	if e.state.HumanizeAmount > 0 {
		offset += e.uniform(-1, 1) * MaxHumanizeOffset(res) * (e.state.HumanizeAmount / 100)
	}
	return offset
}

// AccentMultiplier returns the velocity factor for a step.
func (e *Engine) AccentMultiplier(step int) float64 {
	m := 1.0
	if n := len(e.state.AccentPattern); n > 0 {
		m *= e.state.AccentPattern[step%n]
	}
	if e.state.VelocityVariation > 0 {
		m += e.uniform(-1, 1) * (e.state.VelocityVariation / 100) * 0.3
		m = clamp(m, minAccent, maxAccent)
	}
	return m
}

func (e *Engine) SetSwingAmount(v float64) {
	e.state.SwingAmount = clamp(v, 0, 100)
	if e.state.SwingAmount == 0 {
		e.state.GrooveType = None
	} else {
		e.state.GrooveType = Custom
	}
}

func (e *Engine) SetHumanizeAmount(v float64) {
	e.state.HumanizeAmount = clamp(v, 0, 100)
}

func (e *Engine) SetVelocityVariation(v float64) {
	e.state.VelocityVariation = clamp(v, 0, 100)
}

// SetAccentPattern copies pattern, clamping each value to [0.1, 1].
func (e *Engine) SetAccentPattern(pattern []float64) {
	out := make([]float64, len(pattern))
	for i, v := range pattern {
		out[i] = clamp(v, minAccent, maxAccent)
	}
	e.state.AccentPattern = out
}

// RandomAccentPattern replaces the accent pattern with a random one where
// every fourth step leans loud, and returns a copy of it.
func (e *Engine) RandomAccentPattern(length int, intensity float64) []float64 {
	if length < 0 {
		length = 0
	}
	pattern := make([]float64, length)
	for i := range pattern {
		base := 0.6
		if i%4 == 0 {
			base = 1.0
		}
		pattern[i] = clamp(base+e.uniform(-0.5, 0.5)*intensity, 0.3, 1.0)
	}
	e.SetAccentPattern(pattern)
	return append([]float64{}, pattern...)
}

// CreateCustomGroove registers (or replaces) a template without applying it.
// Amounts are clamped to [0, 100] and accents to [0.1, 1]. An empty name is
// rejected.
func (e *Engine) CreateCustomGroove(name string, t Template) bool {
	if name == "" {
		return false
	}
	if t.Description == "" {
		t.Description = "Custom groove"
	}
	t.SwingAmount = clamp(t.SwingAmount, 0, 100)
	t.HumanizeAmount = clamp(t.HumanizeAmount, 0, 100)
	accents := make([]float64, len(t.AccentPattern))
	for i, v := range t.AccentPattern {
		accents[i] = clamp(v, minAccent, maxAccent)
	}
	t.AccentPattern = accents
	e.templates[name] = t
	return true
}

// Templates lists built-in templates in their fixed order followed by
// custom ones sorted by name.
func (e *Engine) Templates() []TemplateInfo {
	out := make([]TemplateInfo, 0, len(e.templates))
	seen := make(map[string]bool, len(builtinOrder))
	for _, name := range builtinOrder {
		seen[name] = true
		out = append(out, TemplateInfo{Name: name, Description: e.templates[name].Description})
	}
	var custom []string
	for name := range e.templates {
		if !seen[name] {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	for _, name := range custom {
		out = append(out, TemplateInfo{Name: name, Description: e.templates[name].Description})
	}
	return out
}

// Reset returns to straight timing.
func (e *Engine) Reset() {
	e.ApplyTemplate(string(None))
}

// Preview applies a template and returns a func that restores the previous
// settings. ok is false, and nothing changes, for unknown names.
func (e *Engine) Preview(name string) (restore func(), ok bool) {
	prev := e.Export()
	if !e.ApplyTemplate(name) {
		return func() {}, false
	}
	return func() { e.state = prev }, true
}

func (e *Engine) Export() State {
	return e.state.Clone()
}

// Import replaces the whole state. Invalid states are rejected untouched.
func (e *Engine) Import(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.state = s.Clone()
	return nil
}

// Info summarizes the current groove for display.
type Info struct {
	Type              Type
	SwingAmount       float64
	HumanizeAmount    float64
	VelocityVariation float64
	HasAccentPattern  bool
}

func (e *Engine) Info() Info {
	return Info{
		Type:              e.state.GrooveType,
		SwingAmount:       e.state.SwingAmount,
		HumanizeAmount:    e.state.HumanizeAmount,
		VelocityVariation: e.state.VelocityVariation,
		HasAccentPattern:  len(e.state.AccentPattern) > 0,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
