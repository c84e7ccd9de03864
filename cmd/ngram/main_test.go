package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/CTAG07/Dissociated/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catDogText = "the cat sat. the dog ran."

// runCLI executes the command tree with args and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeText(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestTokenizeCmd(t *testing.T) {
	out, _, err := runCLI(t, "Hello, World! Is it me?", "tokenize")
	require.NoError(t, err)
	assert.Equal(t, "hello world <EXCL> is it me <Q>\n7 tokens\n", out)

	out, _, err = runCLI(t, "", "tokenize", "--json", writeText(t, "a. b"))
	require.NoError(t, err)
	assert.Contains(t, out, `"token_count": 3`)
}

func TestBuildCmdPrintsTable(t *testing.T) {
	out, _, err := runCLI(t, catDogText, "build", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "model:            Bi-gram")
	assert.Contains(t, out, "keys:             6")
	assert.Contains(t, out, "branching factor: 1.167")
	assert.Regexp(t, `(?m)^the\s+cat \(0\.50\), dog \(0\.50\)$`, out)

	out, _, err = runCLI(t, catDogText, "build", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "4 more keys")
}

func TestBuildCmdErrors(t *testing.T) {
	_, _, err := runCLI(t, catDogText, "build", "--order", "Penta-gram")
	assert.ErrorIs(t, err, ngram.ErrInvalidModelType)

	_, _, err = runCLI(t, "hello", "build")
	assert.ErrorIs(t, err, ngram.ErrInsufficientInput)

	_, _, err = runCLI(t, "", "build", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestBuildAndInspectSnapshot(t *testing.T) {
	input := writeText(t, catDogText)
	snapPath := filepath.Join(t.TempDir(), "catdog.json")

	out, _, err := runCLI(t, "", "build", "--order", ngram.TrigramLabel, "--out", snapPath, input)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote Tri-gram model")

	snap, model, err := store.ReadSnapshotFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, "corpus", snap.Name)
	assert.Equal(t, 8, snap.TokenCount)
	assert.Equal(t, ngram.Trigram, model.Order())

	out, _, err = runCLI(t, "", "inspect", snapPath)
	require.NoError(t, err)
	assert.Contains(t, out, "name:             corpus")
	assert.Contains(t, out, "model:            Tri-gram")
	assert.Contains(t, out, "tokens:           8")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"order":"Bi-gram","keys":[{"key":"a b","successors":[{"token":"c","probability":1}]}]}`), 0o644))
	_, _, err = runCLI(t, "", "inspect", bad)
	assert.ErrorIs(t, err, ngram.ErrInvalidSnapshot)
}

func TestGenerateCmd(t *testing.T) {
	out, _, err := runCLI(t, catDogText, "generate", "--start", "the", "--words", "3", "--seed", "7")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 3)
	assert.Equal(t, "the", fields[0])

	again, _, err := runCLI(t, catDogText, "generate", "--start", "the", "--words", "3", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, _, err = runCLI(t, catDogText, "generate", "--start", "zebra")
	assert.ErrorIs(t, err, ngram.ErrKeyNotFound)

	out, stderr, err := runCLI(t, "a b c", "generate", "--start", "a", "--raw")
	require.NoError(t, err)
	assert.Equal(t, "a b c\n", out)
	assert.Contains(t, stderr, "dead end")
}

func TestGenerateCmdWordLimitZero(t *testing.T) {
	out, stderr, err := runCLI(t, catDogText, "generate", "--start", "the", "--words", "0", "--raw")
	require.NoError(t, err)
	assert.Equal(t, "\n", out)
	assert.Empty(t, stderr)

	_, _, err = runCLI(t, catDogText, "generate", "--words", "-1")
	assert.ErrorContains(t, err, "must not be negative")
}

func TestGenerateCmdVerboseLogs(t *testing.T) {
	_, stderr, err := runCLI(t, "a b c", "generate", "--start", "a", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
	assert.Contains(t, stderr, "last_key=c")
}
