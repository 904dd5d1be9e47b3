package track

// Instrument tags the synth preset a track plays through.
type Instrument string

const (
	Square        Instrument = "square"
	Sawtooth      Instrument = "sawtooth"
	Triangle      Instrument = "triangle"
	Sine          Instrument = "sine"
	Pulse25       Instrument = "pulse25"
	Pulse12       Instrument = "pulse12"
	FatSaw        Instrument = "fatSaw"
	PWMPulse      Instrument = "pwmPulse"
	WhiteSnare    Instrument = "whiteSnare"
	PinkTom       Instrument = "pinkTom"
	BrownKick     Instrument = "brownKick"
	HiHat         Instrument = "hihat"
	FMBell        Instrument = "fmBell"
	FMBass        Instrument = "fmBass"
	FMBrass       Instrument = "fmBrass"
	FMWobble      Instrument = "fmWobble"
	LPSweep       Instrument = "lpSweep"
	HPStab        Instrument = "hpStab"
	ResonantSweep Instrument = "resonantSweep"
	Bitcrush      Instrument = "bitcrush"
	PadWash       Instrument = "padWash"
	CrystalBell   Instrument = "crystalBell"
	WindSweep     Instrument = "windSweep"
	DigitalRain   Instrument = "digitalRain"
)

// Instruments lists every known tag in menu order.
var Instruments = []Instrument{
	Square, Sawtooth, Triangle, Sine,
	Pulse25, Pulse12, FatSaw, PWMPulse,
	WhiteSnare, PinkTom, BrownKick, HiHat,
	FMBell, FMBass, FMBrass, FMWobble,
	LPSweep, HPStab, ResonantSweep, Bitcrush,
	PadWash, CrystalBell, WindSweep, DigitalRain,
}

func (i Instrument) Valid() bool {
	for _, k := range Instruments {
		if k == i {
			return true
		}
	}
	return false
}

// Next cycles through Instruments; unknown tags restart at Square.
func (i Instrument) Next() Instrument {
	for n, k := range Instruments {
		if k == i {
			return Instruments[(n+1)%len(Instruments)]
		}
	}
	return Square
}
