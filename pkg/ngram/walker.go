package ngram

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// DefaultWordLimit is the number of output tokens Generate stops at when no
// limit is given.
const DefaultWordLimit = 100

// Status describes where a generation run is.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusWordLimit
	StatusDeadEnd
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusWordLimit:
		return "word_limit"
	case StatusDeadEnd:
		return "dead_end"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusIdle, StatusRunning, StatusWordLimit, StatusDeadEnd} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown generation status %q", text)
}

// Step is the outcome of a single successful Advance.
type Step struct {
	Token   string // the sampled successor, emitted to the output
	NextKey string // the key to continue from
}

// Advance samples a successor of key and slides the key window forward by
// one token. It returns false when key has no successors in m.
func Advance(m *Model, key string, s *Sampler) (Step, bool) {
	d, ok := m.dists[key]
	if !ok {
		return Step{}, false
	}
	tok := s.Sample(d)
	return Step{Token: tok, NextKey: NextKey(key, tok)}, true
}

// NextKey drops the oldest token of key and appends successor. For a
// single-token key the result is just successor.
func NextKey(key, successor string) string {
	i := strings.IndexByte(key, ' ')
	if i < 0 {
		return successor
	}
	return key[i+1:] + " " + successor
}

// generateOptions holds the settings for a generation run.
type generateOptions struct {
	startKey  string
	wordLimit int
	sampler   *Sampler
	logger    *slog.Logger
}

// GenerateOption configures Generate and NewWalker.
type GenerateOption func(*generateOptions)

// WithStartKey starts generation from key. An empty key picks a random one.
func WithStartKey(key string) GenerateOption {
	return func(o *generateOptions) { o.startKey = key }
}

// WithWordLimit caps the number of tokens in the output, start key included.
// A limit of 0 yields empty output. Negative values are treated as 0.
func WithWordLimit(n int) GenerateOption {
	return func(o *generateOptions) { o.wordLimit = n }
}

// WithSampler sets the random source for the run.
func WithSampler(s *Sampler) GenerateOption {
	return func(o *generateOptions) { o.sampler = s }
}

// WithLogger enables debug logging of termination.
func WithLogger(logger *slog.Logger) GenerateOption {
	return func(o *generateOptions) { o.logger = logger }
}

// Walker runs automatic generation over a Model. It holds a reference to the
// model, never a copy, and is owned by a single caller.
type Walker struct {
	model     *Model
	sampler   *Sampler
	logger    *slog.Logger
	wordLimit int
	startKey  string
	key       string
	output    []string
	steps     int
	status    Status
}

// Result is the outcome of a completed Walker run.
type Result struct {
	Text     string   `json:"text"`
	Tokens   []string `json:"tokens"`
	StartKey string   `json:"start_key"`
	Steps    int      `json:"steps"`
	Status   Status   `json:"status"`
}

// NewWalker prepares a run over m. The output is seeded with the start key's
// tokens, truncated to the word limit. A nil model fails with
// ErrInvalidModelType. A non-empty start key that m does not contain fails with
// ErrKeyNotFound. A model without keys produces a walker that is already at
// a dead end.
func NewWalker(m *Model, opts ...GenerateOption) (*Walker, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidModelType)
	}
	options := &generateOptions{
		wordLimit: DefaultWordLimit,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.wordLimit < 0 {
		options.wordLimit = 0
	}
	if options.sampler == nil {
		options.sampler = NewSampler(nil)
	}
	if options.logger == nil {
		options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Walker{
		model:     m,
		sampler:   options.sampler,
		logger:    options.logger,
		wordLimit: options.wordLimit,
		status:    StatusIdle,
	}

	start := strings.TrimSpace(options.startKey)
	switch {
	case start != "":
		if !m.Contains(start) {
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, start)
		}
	case m.Len() > 0:
		start = m.keys[w.sampler.Pick(m.Len())]
	default:
		w.status = StatusDeadEnd
		return w, nil
	}

	seed := KeyTokens(start)
	if len(seed) > w.wordLimit {
		seed = seed[:w.wordLimit]
	}
	w.startKey = start
	w.key = start
	w.output = append(make([]string, 0, min(w.wordLimit, 1024)), seed...)
	w.status = StatusRunning
	if len(w.output) >= w.wordLimit {
		w.status = StatusWordLimit
	}
	return w, nil
}

// Step advances the walk by one token. It returns false once the walk has
// stopped, either at the word limit or at a dead end.
func (w *Walker) Step() bool {
	if w.status != StatusRunning {
		return false
	}

	step, ok := Advance(w.model, w.key, w.sampler)
	if !ok {
		w.status = StatusDeadEnd
		w.logger.Debug("Generation terminated due to dead-end",
			slog.String("termination", w.status.String()),
			slog.String("last_key", w.key),
			slog.Int("generated_length", len(w.output)),
		)
		return false
	}

	w.output = append(w.output, step.Token)
	w.key = step.NextKey
	w.steps++

	if len(w.output) >= w.wordLimit {
		w.status = StatusWordLimit
		w.logger.Debug("Generation terminated by reaching word limit",
			slog.String("termination", w.status.String()),
			slog.Int("word_limit", w.wordLimit),
			slog.Int("generated_length", len(w.output)),
		)
		return false
	}
	return true
}

// Run steps until the walk stops and returns the result.
func (w *Walker) Run() Result {
	for w.Step() {
	}
	return w.Result()
}

// Result returns the current state of the walk.
func (w *Walker) Result() Result {
	return Result{
		Text:     strings.Join(w.output, " "),
		Tokens:   slices.Clone(w.output),
		StartKey: w.startKey,
		Steps:    w.steps,
		Status:   w.status,
	}
}

// Status returns the walk's state.
func (w *Walker) Status() Status { return w.status }

// Key returns the key the next step will be sampled from.
func (w *Walker) Key() string { return w.key }

// Generate walks m until the word limit is reached or the chain dead-ends and
// returns the space-joined output. Reaching a dead end is not an error.
func Generate(m *Model, opts ...GenerateOption) (string, error) {
	w, err := NewWalker(m, opts...)
	if err != nil {
		return "", err
	}
	return w.Run().Text, nil
}
