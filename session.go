package groovebox

import (
	"time"

	"github.com/cbegin/groovebox-go/internal/chain"
	"github.com/cbegin/groovebox-go/internal/instrument"
	"github.com/cbegin/groovebox-go/internal/sequencer"
)

const renderBlock = 256

type sessionConfig struct {
	lookahead time.Duration
	chained   bool
	bankOpts  []instrument.Option
}

type SessionOption func(*sessionConfig)

// WithLookahead sets how far ahead of the audio clock ticks are scheduled.
func WithLookahead(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		if d >= 0 {
			cfg.lookahead = d
		}
	}
}

// WithChainAdvance controls whether finished patterns hand over to the
// next one in the chain. Without it the active pattern repeats.
func WithChainAdvance(enabled bool) SessionOption {
	return func(cfg *sessionConfig) { cfg.chained = enabled }
}

func WithBankOptions(opts ...instrument.Option) SessionOption {
	return func(cfg *sessionConfig) { cfg.bankOpts = append(cfg.bankOpts, opts...) }
}

// Session is one wired groovebox: a synth bank driven by a sequencer, a
// pattern chain over that sequencer and a transport. A Session is not safe
// for concurrent use.
type Session struct {
	bank      *instrument.Bank
	seq       *sequencer.Sequencer
	chain     *chain.Chain
	transport *sequencer.Transport
	lookahead float64
	chained   bool
	stopping  bool
	ended     bool
}

func NewSession(sampleRate int, opts ...SessionOption) *Session {
	cfg := sessionConfig{lookahead: 100 * time.Millisecond, chained: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		bank:      instrument.New(sampleRate, cfg.bankOpts...),
		lookahead: cfg.lookahead.Seconds(),
		chained:   cfg.chained,
	}
	s.seq = sequencer.New(s.bank)
	s.chain = chain.New(s.seq)
	s.transport = sequencer.NewTransport(s.seq, sequencer.WithStepper(s))
	s.transport.OnState(func(st sequencer.State) {
		if st != sequencer.Stopped {
			return
		}
		// The transport has rewound the sequencer; the chain follows.
		s.chain.ResetStep()
		if !s.stopping {
			s.ended = true
		}
	})
	return s
}

func (s *Session) Bank() *instrument.Bank          { return s.bank }
func (s *Session) Sequencer() *sequencer.Sequencer { return s.seq }
func (s *Session) Chain() *chain.Chain             { return s.chain }
func (s *Session) Transport() *sequencer.Transport { return s.transport }

// PlayStep plays one sequencer step and, when the active pattern's length
// is used up, moves the chain on. A chain that cannot move on ends the run.
func (s *Session) PlayStep(at float64) {
	s.seq.PlayStep(at)
	if !s.chained || s.chain.PlayStep() {
		return
	}
	if !s.chain.Next() {
		s.transport.Finish()
	}
}

// Start begins playback at the bank's current time.
func (s *Session) Start() error {
	if err := s.transport.Start(s.bank.Now()); err != nil {
		return err
	}
	s.ended = false
	return nil
}

// StartBounded plays exactly ticks steps and then finishes.
func (s *Session) StartBounded(ticks int) error {
	if err := s.transport.StartBounded(s.bank.Now(), ticks); err != nil {
		return err
	}
	s.ended = false
	return nil
}

// Stop halts the transport and silences everything scheduled.
func (s *Session) Stop() {
	s.stopping = true
	s.transport.Stop()
	s.stopping = false
}

// Ended reports whether the last run finished on its own, either at the end
// of a non-looping chain or when a bounded run used up its ticks.
func (s *Session) Ended() bool { return s.ended }

// Silent reports whether nothing is sounding or scheduled.
func (s *Session) Silent() bool {
	return s.bank.Pending() == 0 && s.bank.ActiveVoices() == 0
}

// Render advances the transport in step with the bank clock and fills dst.
func (s *Session) Render(dst []float32) {
	sr := float64(s.bank.SampleRate())
	for len(dst) > 0 {
		n := min(len(dst), renderBlock)
		s.transport.Advance(s.bank.Now() + float64(n)/sr + s.lookahead)
		s.bank.Render(dst[:n])
		dst = dst[n:]
	}
}
