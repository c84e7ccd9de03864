package ngram

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

const (
	// EndOfChain is the only option offered once a session reaches a dead end.
	EndOfChain = "End of chain"
	// RandomChoice asks Step to sample the next token instead of taking an
	// explicit one.
	RandomChoice = "random"
)

// SessionState is the state of a manual generation session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionAwaitingChoice
	SessionDeadEnd
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionAwaitingChoice:
		return "awaiting_choice"
	case SessionDeadEnd:
		return "dead_end"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *SessionState) UnmarshalText(text []byte) error {
	for _, st := range []SessionState{SessionIdle, SessionAwaitingChoice, SessionDeadEnd} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session is a manual generation session: after every accepted step it
// exposes the successors of the current key as options and waits for the
// caller to choose one. A Session is owned by one caller and is not safe for
// concurrent use.
type Session struct {
	model   *Model
	sampler *Sampler
	logger  *slog.Logger
	key     string
	output  []string
	options []string
	steps   int
	state   SessionState
}

// SessionView is a read-only copy of a session's state.
type SessionView struct {
	Order   Order        `json:"order"`
	Key     string       `json:"key"`
	Output  string       `json:"output"`
	Tokens  []string     `json:"tokens"`
	Options []string     `json:"options"`
	Steps   int          `json:"steps"`
	State   SessionState `json:"state"`
}

// NewSession returns an idle session over m. A nil sampler is replaced by a
// randomly seeded one.
func NewSession(m *Model, sampler *Sampler) *Session {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	return &Session{
		model:   m,
		sampler: sampler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   SessionIdle,
	}
}

// ResetSession returns a session over m that has already been reset to a
// random start key.
func ResetSession(m *Model, sampler *Sampler) *Session {
	s := NewSession(m, sampler)
	s.Reset()
	return s
}

// SetLogger sets the logger for the session. By default all logs are discarded.
func (s *Session) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Reset discards the output, key and options and starts again from a key
// chosen uniformly at random. A nil model or one without keys leaves the
// session at a dead end.
func (s *Session) Reset() {
	s.clear()
	if s.model.Len() == 0 {
		s.options = []string{EndOfChain}
		s.state = SessionDeadEnd
		return
	}
	s.begin(s.model.keys[s.sampler.Pick(s.model.Len())])
}

// Start is Reset with an explicit start key.
func (s *Session) Start(key string) error {
	if s.model == nil {
		return fmt.Errorf("%w: nil model", ErrInvalidModelType)
	}
	key = strings.TrimSpace(key)
	if !s.model.Contains(key) {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	s.clear()
	s.begin(key)
	return nil
}

// Step accepts the next token. choice is either one of the current options,
// the display form of a sentinel option (".", "!" or "?"), or RandomChoice to
// sample from the current key's distribution. It returns the accepted token.
func (s *Session) Step(choice string) (string, error) {
	if choice == RandomChoice {
		return s.StepRandom()
	}
	return s.Choose(choice)
}

// StepRandom samples the next token from the current key's distribution.
func (s *Session) StepRandom() (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	tok := s.sampler.Sample(s.model.dists[s.key])
	s.accept(tok)
	return tok, nil
}

// Choose accepts tok, which must be one of the current options.
func (s *Session) Choose(tok string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	tok = strings.TrimSpace(tok)
	if r := []rune(tok); len(r) == 1 {
		if sentinel, ok := sentinelFor(r[0]); ok {
			tok = sentinel
		}
	}
	if !slices.Contains(s.options, tok) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, tok)
	}
	s.accept(tok)
	return tok, nil
}

// Options returns the tokens the caller may choose from next. At a dead end
// this is just EndOfChain.
func (s *Session) Options() []string { return slices.Clone(s.options) }

// Output returns the passage built so far.
func (s *Session) Output() string { return strings.Join(s.output, " ") }

// Key returns the current key.
func (s *Session) Key() string { return s.key }

// Steps returns the number of accepted choices since the last reset.
func (s *Session) Steps() int { return s.steps }

// State returns the session state.
func (s *Session) State() SessionState { return s.state }

// Model returns the model the session walks.
func (s *Session) Model() *Model { return s.model }

// Sampler returns the session's random source.
func (s *Session) Sampler() *Sampler { return s.sampler }

// View returns a copy of the session's state.
func (s *Session) View() SessionView {
	return SessionView{
		Order:   s.model.Order(),
		Key:     s.key,
		Output:  s.Output(),
		Tokens:  slices.Clone(s.output),
		Options: slices.Clone(s.options),
		Steps:   s.steps,
		State:   s.state,
	}
}

func (s *Session) ready() error {
	switch s.state {
	case SessionIdle:
		return ErrSessionIdle
	case SessionDeadEnd:
		return ErrDeadEnd
	}
	return nil
}

func (s *Session) clear() {
	s.key = ""
	s.output = nil
	s.options = nil
	s.steps = 0
	s.state = SessionIdle
}

func (s *Session) begin(key string) {
	s.key = key
	s.output = KeyTokens(key)
	s.refresh()
}

func (s *Session) accept(tok string) {
	s.output = append(s.output, tok)
	s.key = NextKey(s.key, tok)
	s.steps++
	s.refresh()
}

// refresh recomputes the options for the current key.
func (s *Session) refresh() {
	if d, ok := s.model.dists[s.key]; ok {
		s.options = d.Tokens()
		s.state = SessionAwaitingChoice
		return
	}
	s.options = []string{EndOfChain}
	s.state = SessionDeadEnd
	s.logger.Debug("Manual session reached end of chain",
		slog.String("last_key", s.key),
		slog.Int("steps", s.steps),
	)
}
