package lfo

import (
	"math"
	"testing"
)

func TestLFOTriangleBasicShape(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 1.0, Triangle)

	sr := 100.0
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}
	if math.Abs(samples[0]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := &LFO{}
	l.Set(2.0, 1.0, Square)

	sr := 100.0
	if v := l.Sample(sr); math.Abs(v-2.0) > 0.01 {
		t.Errorf("square first half: got %f, want 2.0", v)
	}
	for i := 1; i < 50; i++ {
		l.Sample(sr)
	}
	if v := l.Sample(sr); math.Abs(v-(-2.0)) > 0.01 {
		t.Errorf("square second half: got %f, want -2.0", v)
	}
}

func TestLFOSineQuarter(t *testing.T) {
	l := &LFO{}
	l.Set(1, 1, Sine)
	var v float64
	for i := 0; i <= 25; i++ {
		v = l.Sample(100)
	}
	if math.Abs(v-1) > 1e-9 {
		t.Fatalf("sine at phase 0.25 = %v, want 1", v)
	}
}

func TestLFORangeStaysInBounds(t *testing.T) {
	l := &LFO{}
	l.SetRange(2, 0.1, 0.9, Sine)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 48000; i++ {
		v := l.Sample(48000)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo < 0.1-1e-9 || hi > 0.9+1e-9 {
		t.Fatalf("range = [%v, %v], want within [0.1, 0.9]", lo, hi)
	}
	if lo > 0.11 || hi < 0.89 {
		t.Fatalf("range = [%v, %v], should cover [0.1, 0.9]", lo, hi)
	}
}

func TestLFOInactiveReturnsCenter(t *testing.T) {
	l := &LFO{}
	if l.Active() {
		t.Error("default LFO should not be active")
	}
	if v := l.Sample(44100); v != 0 {
		t.Errorf("zero LFO should return 0, got %f", v)
	}
	l.SetRange(0, 100, 300, Sine)
	if v := l.Sample(44100); v != 200 {
		t.Errorf("zero-rate range LFO should hold center, got %f", v)
	}
	l.Set(1.0, 5.0, Triangle)
	if !l.Active() {
		t.Error("configured LFO should be active")
	}
}
