package ngram

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCatDog(t *testing.T) {
	m := mustBuild(t, catDogText, BigramLabel)

	for seed := uint64(0); seed < 20; seed++ {
		out, err := Generate(m, WithStartKey("the"), WithWordLimit(3), WithSampler(NewSeededSampler(seed)))
		require.NoError(t, err)
		assert.Contains(t, []string{"the cat sat", "the dog ran"}, out)
	}

	out, err := Generate(m, WithStartKey("the"), WithWordLimit(3), WithSampler(fixedSampler(0.75)))
	require.NoError(t, err)
	assert.Equal(t, "the dog ran", out)

	out, err = Generate(m, WithStartKey("the"), WithWordLimit(3), WithSampler(fixedSampler(0.1)))
	require.NoError(t, err)
	assert.Equal(t, "the cat sat", out)
}

func TestGenerateKeyNotFound(t *testing.T) {
	m := mustBuild(t, catDogText, BigramLabel)

	out, err := Generate(m, WithStartKey("zebra"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Empty(t, out)
}

func TestGenerateDeadEnd(t *testing.T) {
	m := mustBuild(t, "a b c", BigramLabel)

	w, err := NewWalker(m, WithStartKey("a"), WithSampler(NewSeededSampler(1)))
	require.NoError(t, err)
	res := w.Run()

	assert.Equal(t, "a b c", res.Text)
	assert.Equal(t, StatusDeadEnd, res.Status)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, "a", res.StartKey)
	assert.False(t, w.Step(), "a stopped walker stays stopped")
}

func TestGenerateWordLimit(t *testing.T) {
	// The cat/dog chain cycles through <PERIOD> forever.
	m := mustBuild(t, catDogText, BigramLabel)

	w, err := NewWalker(m, WithStartKey("the"), WithWordLimit(10), WithSampler(NewSeededSampler(3)))
	require.NoError(t, err)
	res := w.Run()

	assert.Len(t, res.Tokens, 10)
	assert.Equal(t, StatusWordLimit, res.Status)
	assert.Equal(t, 9, res.Steps)
	assert.Equal(t, "the", res.Tokens[0])
}

func TestGenerateDefaultWordLimit(t *testing.T) {
	m := mustBuild(t, catDogText, BigramLabel)

	w, err := NewWalker(m, WithSampler(NewSeededSampler(11)))
	require.NoError(t, err)
	assert.Len(t, w.Run().Tokens, DefaultWordLimit)
}

func TestGenerateZeroWordLimit(t *testing.T) {
	m := mustBuild(t, catDogText, BigramLabel)

	for _, limit := range []int{0, -5} {
		out, err := Generate(m, WithStartKey("the"), WithWordLimit(limit), WithSampler(NewSeededSampler(1)))
		require.NoError(t, err)
		assert.Empty(t, out, "limit %d", limit)

		w, err := NewWalker(m, WithWordLimit(limit), WithSampler(NewSeededSampler(1)))
		require.NoError(t, err)
		res := w.Run()
		assert.Empty(t, res.Tokens, "limit %d", limit)
		assert.Equal(t, StatusWordLimit, res.Status)
		assert.Zero(t, res.Steps)
	}

	_, err := Generate(m, WithStartKey("zebra"), WithWordLimit(0))
	assert.ErrorIs(t, err, ErrKeyNotFound, "the start key is still checked")
}

func TestGenerateNilModel(t *testing.T) {
	out, err := Generate(nil)
	assert.ErrorIs(t, err, ErrInvalidModelType)
	assert.Empty(t, out)

	_, err = NewWalker(nil, WithStartKey("the"))
	assert.ErrorIs(t, err, ErrInvalidModelType)
}

func TestGenerateTerminates(t *testing.T) {
	for _, label := range []string{BigramLabel, TrigramLabel, TetragramLabel} {
		m := mustBuild(t, longCorpus(), label)
		for limit := 0; limit <= 40; limit += 3 {
			w, err := NewWalker(m, WithWordLimit(limit), WithSampler(NewSeededSampler(uint64(limit))))
			require.NoError(t, err)
			res := w.Run()
			assert.LessOrEqual(t, len(res.Tokens), limit, "%s limit %d", label, limit)
			assert.NotEqual(t, StatusRunning, res.Status)
		}
	}
}

func TestGenerateSeedLongerThanLimit(t *testing.T) {
	m := mustBuild(t, catDogText, TetragramLabel)

	w, err := NewWalker(m, WithStartKey("the cat sat"), WithWordLimit(2))
	require.NoError(t, err)
	res := w.Run()

	assert.Equal(t, "the cat", res.Text)
	assert.Equal(t, StatusWordLimit, res.Status)
	assert.Zero(t, res.Steps)
}

func TestGenerateTrigramWindow(t *testing.T) {
	m := mustBuild(t, catDogText, TrigramLabel)

	out, err := Generate(m, WithStartKey("the dog"), WithWordLimit(5), WithSampler(NewSeededSampler(5)))
	require.NoError(t, err)
	assert.Equal(t, "the dog ran <PERIOD>", out)
}

func TestGenerateEmptyModel(t *testing.T) {
	m := mustBuild(t, "hello world", TetragramLabel)

	out, err := Generate(m)
	require.NoError(t, err)
	assert.Empty(t, out)

	w, err := NewWalker(m)
	require.NoError(t, err)
	assert.Equal(t, StatusDeadEnd, w.Status())
}

func TestGenerateSeededDeterminism(t *testing.T) {
	m := mustBuild(t, longCorpus(), BigramLabel)

	a, err := Generate(m, WithSampler(NewSeededSampler(2024)), WithWordLimit(50))
	require.NoError(t, err)
	b, err := Generate(m, WithSampler(NewSeededSampler(2024)), WithWordLimit(50))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateOutputFollowsModel(t *testing.T) {
	m := mustBuild(t, longCorpus(), TrigramLabel)

	w, err := NewWalker(m, WithWordLimit(60), WithSampler(NewSeededSampler(8)))
	require.NoError(t, err)
	tokens := w.Run().Tokens

	for i := 0; i+2 < len(tokens); i++ {
		key := strings.Join(tokens[i:i+2], " ")
		assert.Contains(t, m.Options(key), tokens[i+2], "transition %q -> %q", key, tokens[i+2])
	}
}

func TestGenerateLogsTermination(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := mustBuild(t, "a b c", BigramLabel)

	_, err := Generate(m, WithStartKey("a"), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "dead-end")
	assert.Contains(t, buf.String(), "last_key=c")
}

func TestNextKey(t *testing.T) {
	assert.Equal(t, "b", NextKey("a", "b"))
	assert.Equal(t, "b c", NextKey("a b", "c"))
	assert.Equal(t, "b c d", NextKey("a b c", "d"))
}

func TestAdvance(t *testing.T) {
	m := mustBuild(t, catDogText, BigramLabel)

	step, ok := Advance(m, "dog", NewSeededSampler(1))
	require.True(t, ok)
	assert.Equal(t, Step{Token: "ran", NextKey: "ran"}, step)

	_, ok = Advance(m, "missing", NewSeededSampler(1))
	assert.False(t, ok)
}

func BenchmarkGenerate(b *testing.B) {
	m, err := Build(longCorpus(), TrigramLabel)
	if err != nil {
		b.Fatalf("Build() failed: %v", err)
	}
	sampler := NewSeededSampler(1)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Generate(m, WithSampler(sampler)); err != nil {
			b.Fatalf("Generate() failed: %v", err)
		}
	}
}

func TestStatusText(t *testing.T) {
	for _, st := range []Status{StatusIdle, StatusRunning, StatusWordLimit, StatusDeadEnd} {
		text, err := st.MarshalText()
		require.NoError(t, err)
		var decoded Status
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, st, decoded)
	}
	var st Status
	assert.Error(t, st.UnmarshalText([]byte("finished")))
}
