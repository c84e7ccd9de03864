package ngram

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentinel tokens standing in for sentence-ending punctuation.
const (
	PeriodToken      = "<PERIOD>"
	ExclamationToken = "<EXCL>"
	QuestionToken    = "<Q>"
)

// removeChars are replaced by a single space during tokenization.
const removeChars = "—,:;()\"*^→{}[]+=\n\t"

var sentinels = [...]string{PeriodToken, ExclamationToken, QuestionToken}

// Tokenize splits text into lowercased word tokens and sentinel tokens.
//
// Characters from the remove set become spaces, '.', '!' and '?' become their
// own sentinel tokens, and everything else is lowercased in place. Sentinel
// tokens already present in the input are kept verbatim, so tokenizing the
// space-joined output of Tokenize yields the same tokens again. The returned
// count is len(tokens).
func Tokenize(text string) ([]string, int) {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

	for i := 0; i < len(text); {
		if text[i] == '<' {
			if s, ok := sentinelAt(text[i:]); ok {
				b.WriteByte(' ')
				b.WriteString(s)
				b.WriteByte(' ')
				i += len(s)
				continue
			}
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		if strings.ContainsRune(removeChars, r) {
			b.WriteByte(' ')
			continue
		}
		if s, ok := sentinelFor(r); ok {
			b.WriteByte(' ')
			b.WriteString(s)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	tokens := strings.Fields(b.String())
	return tokens, len(tokens)
}

// TokenCount returns the number of tokens Tokenize would produce for text.
func TokenCount(text string) int {
	_, n := Tokenize(text)
	return n
}

// Detokenize joins tokens with single spaces, turning sentinels back into
// the punctuation they replaced.
func Detokenize(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = DisplayToken(tok)
	}
	return strings.Join(parts, " ")
}

// DisplayToken returns the punctuation for a sentinel token and tok unchanged otherwise.
func DisplayToken(tok string) string {
	switch tok {
	case PeriodToken:
		return "."
	case ExclamationToken:
		return "!"
	case QuestionToken:
		return "?"
	default:
		return tok
	}
}

// IsSentinel reports whether tok is one of the punctuation sentinels.
func IsSentinel(tok string) bool {
	return tok == PeriodToken || tok == ExclamationToken || tok == QuestionToken
}

func sentinelFor(r rune) (string, bool) {
	switch r {
	case '.':
		return PeriodToken, true
	case '!':
		return ExclamationToken, true
	case '?':
		return QuestionToken, true
	default:
		return "", false
	}
}

func sentinelAt(s string) (string, bool) {
	for _, sentinel := range sentinels {
		if strings.HasPrefix(s, sentinel) {
			return sentinel, true
		}
	}
	return "", false
}
