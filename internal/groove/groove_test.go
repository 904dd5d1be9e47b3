package groove

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cbegin/groovebox-go/internal/timing"
)

// fixedRand always returns v.
func fixedRand(v float64) Option {
	return WithRand(func() float64 { return v })
}

func TestApplyTemplateSwingExport(t *testing.T) {
	e := New()
	e.SetVelocityVariation(42)
	if !e.ApplyTemplate("swing") {
		t.Fatal("ApplyTemplate(swing) = false")
	}
	want := State{
		GrooveType:        Swing,
		SwingAmount:       35,
		HumanizeAmount:    5,
		VelocityVariation: 42,
		AccentPattern:     []float64{1.0, 0.7, 0.9, 0.7},
	}
	if got := e.Export(); !reflect.DeepEqual(got, want) {
		t.Fatalf("export = %+v, want %+v", got, want)
	}
}

func TestApplyUnknownTemplateLeavesState(t *testing.T) {
	e := New()
	e.ApplyTemplate("funk")
	before := e.Export()
	if e.ApplyTemplate("polka") {
		t.Fatal("unknown template should fail")
	}
	if got := e.Export(); !reflect.DeepEqual(got, before) {
		t.Fatalf("state changed after failed apply: %+v", got)
	}
}

func TestTimingOffsetSwingOnly(t *testing.T) {
	for _, res := range timing.StepResolutions {
		t.Run(string(res), func(t *testing.T) {
			e := New()
			e.SetSwingAmount(60)
			odd := e.TimingOffset(3, res)
			want := 0.6 * MaxSwingOffset(res)
			if math.Abs(odd-want) > 1e-12 {
				t.Fatalf("odd step offset = %v, want %v", odd, want)
			}
			if even := e.TimingOffset(4, res); even != 0 {
				t.Fatalf("even step offset = %v, want 0", even)
			}
		})
	}
}

func TestOffsetTablesDefaultTo16n(t *testing.T) {
	if got := MaxSwingOffset("4n"); got != 0.04 {
		t.Fatalf("MaxSwingOffset(4n) = %v, want 0.04", got)
	}
	if got := MaxHumanizeOffset("bogus"); got != 0.01 {
		t.Fatalf("MaxHumanizeOffset(bogus) = %v, want 0.01", got)
	}
}

func TestTimingOffsetHumanizeBounds(t *testing.T) {
	e := New()
	e.SetHumanizeAmount(50)
	bound := MaxHumanizeOffset(timing.Res8n) * 0.5
	var neg, pos bool
	for i := 0; i < 2000; i++ {
		off := e.TimingOffset(i, timing.Res8n)
		if math.Abs(off) > bound+1e-12 {
			t.Fatalf("offset %v exceeds bound %v", off, bound)
		}
		neg = neg || off < 0
		pos = pos || off > 0
	}
	if !neg || !pos {
		t.Fatalf("humanize should jitter both ways (neg=%v pos=%v)", neg, pos)
	}
}

func TestTimingOffsetHumanizeExtremes(t *testing.T) {
	e := New(fixedRand(0))
	e.SetHumanizeAmount(100)
	if got := e.TimingOffset(0, timing.Res16n); math.Abs(got+0.01) > 1e-12 {
		t.Fatalf("offset with rand 0 = %v, want -0.01", got)
	}
}

func TestAccentMultiplierExactWithoutVariation(t *testing.T) {
	e := New()
	e.ApplyTemplate("latin")
	pattern := e.Export().AccentPattern
	for i := 0; i < 64; i++ {
		if got, want := e.AccentMultiplier(i), pattern[i%len(pattern)]; got != want {
			t.Fatalf("step %d accent = %v, want %v", i, got, want)
		}
	}
	e.Reset()
	if got := e.AccentMultiplier(5); got != 1 {
		t.Fatalf("empty pattern accent = %v, want 1", got)
	}
}

func TestAccentMultiplierBoundedWithVariation(t *testing.T) {
	e := New()
	e.ApplyTemplate("trap")
	e.SetVelocityVariation(100)
	for i := 0; i < 2000; i++ {
		m := e.AccentMultiplier(i)
		if m < 0.1 || m > 1.0 {
			t.Fatalf("step %d accent %v out of [0.1,1]", i, m)
		}
	}
}

func TestAccentMultiplierClampsHigh(t *testing.T) {
	e := New(fixedRand(0.999999))
	e.SetVelocityVariation(100)
	if got := e.AccentMultiplier(0); got != 1 {
		t.Fatalf("accent = %v, want clamp to 1", got)
	}
}

func TestSetSwingAmountGrooveType(t *testing.T) {
	e := New()
	e.ApplyTemplate("dilla")
	e.SetSwingAmount(12)
	if got := e.Export().GrooveType; got != Custom {
		t.Fatalf("grooveType = %q, want custom", got)
	}
	e.SetSwingAmount(0)
	if got := e.Export().GrooveType; got != None {
		t.Fatalf("grooveType = %q, want none", got)
	}
	e.SetSwingAmount(250)
	if got := e.Export().SwingAmount; got != 100 {
		t.Fatalf("swing = %v, want clamp to 100", got)
	}
}

func TestSettersClamp(t *testing.T) {
	e := New()
	e.SetHumanizeAmount(-5)
	e.SetVelocityVariation(101)
	e.SetAccentPattern([]float64{0, 0.5, 3})
	s := e.Export()
	if s.HumanizeAmount != 0 || s.VelocityVariation != 100 {
		t.Fatalf("humanize=%v variation=%v, want 0 and 100", s.HumanizeAmount, s.VelocityVariation)
	}
	if want := []float64{0.1, 0.5, 1}; !reflect.DeepEqual(s.AccentPattern, want) {
		t.Fatalf("accent = %v, want %v", s.AccentPattern, want)
	}
}

func TestRandomAccentPattern(t *testing.T) {
	e := New()
	p := e.RandomAccentPattern(16, 1)
	if len(p) != 16 {
		t.Fatalf("len = %d, want 16", len(p))
	}
	for i, v := range p {
		if v < 0.3 || v > 1 {
			t.Fatalf("accent[%d] = %v out of [0.3,1]", i, v)
		}
	}
	if !reflect.DeepEqual(e.Export().AccentPattern, p) {
		t.Fatal("random pattern should replace the accent pattern")
	}

	// Midpoint randomness adds nothing: downbeats 1.0, others 0.6.
	e = New(fixedRand(0.5))
	p = e.RandomAccentPattern(8, 1)
	want := []float64{1, 0.6, 0.6, 0.6, 1, 0.6, 0.6, 0.6}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("pattern = %v, want %v", p, want)
	}
}

func TestCustomGrooveRegisterAndApply(t *testing.T) {
	e := New()
	e.CreateCustomGroove("lazy", Template{SwingAmount: 40, AccentPattern: []float64{1, 0.5}})
	if got := e.Export().GrooveType; got != None {
		t.Fatalf("registering should not apply, grooveType = %q", got)
	}
	list := e.Templates()
	last := list[len(list)-1]
	if last.Name != "lazy" || last.Description != "Custom groove" {
		t.Fatalf("last template = %+v", last)
	}
	if list[0].Name != "none" || list[0].Description != "Straight timing" {
		t.Fatalf("first template = %+v", list[0])
	}
	if !e.ApplyTemplate("lazy") {
		t.Fatal("apply custom failed")
	}
	s := e.Export()
	if s.GrooveType != "lazy" || s.SwingAmount != 40 || s.HumanizeAmount != 0 {
		t.Fatalf("custom state = %+v", s)
	}
}

func TestCustomGrooveClampsSettings(t *testing.T) {
	e := New()
	if e.CreateCustomGroove("", Template{SwingAmount: 10}) {
		t.Fatal("empty name accepted")
	}
	e.CreateCustomGroove("wild", Template{SwingAmount: 150, HumanizeAmount: -5, AccentPattern: []float64{2, 0}})
	e.ApplyTemplate("wild")
	s := e.Export()
	if s.SwingAmount != 100 || s.HumanizeAmount != 0 {
		t.Fatalf("amounts = %v/%v, want 100/0", s.SwingAmount, s.HumanizeAmount)
	}
	if !reflect.DeepEqual(s.AccentPattern, []float64{maxAccent, minAccent}) {
		t.Fatalf("accents = %v", s.AccentPattern)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("applied custom groove invalid: %v", err)
	}
}

func TestExportDeepCopies(t *testing.T) {
	e := New()
	e.ApplyTemplate("swing")
	s := e.Export()
	s.AccentPattern[0] = 0.2
	if e.Export().AccentPattern[0] != 1.0 {
		t.Fatal("export aliases the accent pattern")
	}
	in := State{GrooveType: Funk, SwingAmount: 20, AccentPattern: []float64{0.9}}
	if err := e.Import(in); err != nil {
		t.Fatalf("import: %v", err)
	}
	in.AccentPattern[0] = 0.3
	if e.Export().AccentPattern[0] != 0.9 {
		t.Fatal("import aliases the accent pattern")
	}
}

func TestImportRejectsInvalidAtomically(t *testing.T) {
	cases := []State{
		{SwingAmount: 10},
		{GrooveType: Swing, SwingAmount: 101},
		{GrooveType: Swing, HumanizeAmount: -1},
		{GrooveType: Swing, AccentPattern: []float64{1, 0.05}},
	}
	for _, s := range cases {
		e := New()
		e.ApplyTemplate("shuffle")
		before := e.Export()
		err := e.Import(s)
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("Import(%+v) err = %v, want ErrInvalidState", s, err)
		}
		if !reflect.DeepEqual(e.Export(), before) {
			t.Fatalf("state changed after rejected import %+v", s)
		}
	}
}

func TestPreviewRestores(t *testing.T) {
	e := New()
	e.ApplyTemplate("funk")
	e.SetVelocityVariation(30)
	before := e.Export()
	restore, ok := e.Preview("trap")
	if !ok {
		t.Fatal("preview trap failed")
	}
	if e.Export().GrooveType != Trap {
		t.Fatal("preview should apply the template")
	}
	restore()
	if !reflect.DeepEqual(e.Export(), before) {
		t.Fatalf("restore = %+v, want %+v", e.Export(), before)
	}
	if _, ok := e.Preview("nope"); ok {
		t.Fatal("preview of unknown template should fail")
	}
}

func TestInfo(t *testing.T) {
	e := New()
	if e.Info().HasAccentPattern {
		t.Fatal("straight groove has no accents")
	}
	e.ApplyTemplate("shuffle")
	info := e.Info()
	if info.Type != Shuffle || info.SwingAmount != 50 || !info.HasAccentPattern {
		t.Fatalf("info = %+v", info)
	}
}
