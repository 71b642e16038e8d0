// Package match converts raw transcribed utterances into recognized
// actions. Exact word-boundary matching handles the common case; a fuzzy
// pass over normalized edit distance catches mis-transcriptions like
// "neckst" for "next".
package match

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/logger"
	"github.com/hammamikhairi/sousvox/internal/vocab"
)

const (
	// DefaultThreshold is the minimum normalized similarity accepted by
	// the fuzzy pass: (maxLen - editDistance) / maxLen.
	DefaultThreshold = 0.6

	// defaultMaxWords caps utterance length. Longer utterances are almost
	// never commands — most open-microphone noise is conversation, and a
	// narrated step leaking past suppression must not re-trigger itself.
	defaultMaxWords = 6
)

// Option configures the matcher.
type Option func(*Matcher)

// WithThreshold sets the fuzzy similarity threshold.
func WithThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

// WithMaxWords sets the utterance word-count cap.
func WithMaxWords(n int) Option {
	return func(m *Matcher) { m.maxWords = n }
}

// Matcher maps utterances to actions against a fixed vocabulary.
// Read-only after construction; safe for concurrent use.
type Matcher struct {
	commands  []vocab.Command
	threshold float64
	maxWords  int
	log       *logger.Logger
}

// New creates a matcher over the given command table.
func New(commands []vocab.Command, log *logger.Logger, opts ...Option) *Matcher {
	m := &Matcher{
		commands:  commands,
		threshold: DefaultThreshold,
		maxWords:  defaultMaxWords,
		log:       log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match resolves an utterance to at most one action.
//
// The exact pass tests each phrase for a word-boundary occurrence within
// the utterance, in vocabulary order; the first hit wins. Only when that
// fails does the fuzzy pass score the whole utterance against each phrase
// by normalized edit distance, accepting the best score at or above the
// threshold.
func (m *Matcher) Match(utterance string) (domain.Action, bool) {
	text := normalize(utterance)
	if text == "" {
		return domain.ActionUnknown, false
	}

	if len(strings.Fields(text)) > m.maxWords {
		m.log.Debug("match: utterance too long, ignoring: %q", text)
		return domain.ActionUnknown, false
	}

	// Exact pass.
	for _, c := range m.commands {
		for _, phrase := range c.Phrases {
			if containsPhrase(text, phrase) {
				m.log.Debug("match: exact %q -> %s", text, c.Action)
				return c.Action, true
			}
		}
	}

	// Fuzzy pass.
	best := domain.ActionUnknown
	bestScore := 0.0
	for _, c := range m.commands {
		for _, phrase := range c.Phrases {
			score := similarity(text, phrase)
			if score > bestScore {
				bestScore = score
				best = c.Action
			}
		}
	}
	if bestScore >= m.threshold {
		m.log.Debug("match: fuzzy %q -> %s (score=%.2f)", text, best, bestScore)
		return best, true
	}

	m.log.Debug("match: no match for %q (best=%.2f)", text, bestScore)
	return domain.ActionUnknown, false
}

// normalize lowercases, trims, and strips trailing punctuation whisper
// likes to append.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?,")
	return strings.TrimSpace(s)
}

// containsPhrase reports whether phrase occurs in text at word boundaries.
// "next" matches "next" and "the next one" but not "nextdoor".
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if boundaryAt(text, start-1) && boundaryAt(text, end) {
			return true
		}
		idx = start + 1
	}
}

// boundaryAt reports whether position i is outside the string or holds a
// non-letter, non-digit rune.
func boundaryAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

// similarity is the normalized edit-distance score between an utterance
// and a phrase: (maxLen - distance) / maxLen, in [0, 1].
func similarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := matchr.Levenshtein(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
