// Package matcher scores free-text queries against catalog entries with a
// token-wise partial ratio and filters them by a threshold.
package matcher

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// DefaultThreshold is the minimum score a candidate needs to be returned
const DefaultThreshold = 70

// Candidate is a catalog entry together with its best token score
type Candidate struct {
	Character catalog.Character
	Score     int
}

// Matcher ranks catalog entries against queries
type Matcher struct {
	threshold int
	logger    *slog.Logger
	metrics   *logging.MetricsCollector
}

// New creates a matcher that keeps candidates scoring at least threshold.
// Out of range thresholds are clamped to 0..100.
func New(threshold int) *Matcher {
	return &Matcher{
		threshold: max(0, min(100, threshold)),
		logger:    logging.GetGlobalLogger("matcher"),
		metrics:   logging.GetGlobalMetricsCollector(),
	}
}

// Threshold returns the configured minimum score
func (m *Matcher) Threshold() int {
	return m.threshold
}

// Rank scores every entry of chars against query, in catalog order. Entries
// scoring below the threshold are dropped.
func (m *Matcher) Rank(ctx context.Context, query string, chars []catalog.Character) []Candidate {
	tokens := Tokenize(query)
	out := make([]Candidate, 0)
	if len(tokens) == 0 {
		m.metrics.RecordSearch(0)
		return out
	}

	for _, c := range chars {
		score := Score(tokens, SearchText(c))
		if score >= m.threshold {
			out = append(out, Candidate{Character: c, Score: score})
		}
	}

	m.logger.DebugContext(ctx, "Ranked catalog",
		slog.Int("tokens", len(tokens)),
		slog.Int("catalog_size", len(chars)),
		slog.Int("matches", len(out)),
		slog.Int("threshold", m.threshold),
	)
	m.metrics.RecordSearch(len(out))
	return out
}

// Match returns the characters of chars matching query, in catalog order
func (m *Matcher) Match(ctx context.Context, query string, chars []catalog.Character) []catalog.Character {
	ranked := m.Rank(ctx, query, chars)
	out := make([]catalog.Character, len(ranked))
	for i, c := range ranked {
		out[i] = c.Character
	}
	return out
}

// Match is the stateless form of (*Matcher).Match
func Match(query string, chars []catalog.Character, threshold int) []catalog.Character {
	tokens := Tokenize(query)
	out := make([]catalog.Character, 0)
	if len(tokens) == 0 {
		return out
	}
	for _, c := range chars {
		if Score(tokens, SearchText(c)) >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Normalize prepares text for comparison: NFC, lower case, hyphens as
// spaces and collapsed whitespace.
func Normalize(s string) string {
	s = cases.Lower(language.Und).String(norm.NFC.String(s))
	s = strings.Map(func(r rune) rune {
		if r == '-' || r == '‐' || r == '–' || r == '—' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Tokenize splits a normalized query into its non-empty words
func Tokenize(query string) []string {
	return strings.Fields(Normalize(query))
}

// SearchText is the normalized text a character is matched against. The
// description and links are not searched.
func SearchText(c catalog.Character) string {
	return Normalize(strings.Join([]string{c.Name, c.Publisher, c.Universe, c.Type}, " "))
}

// Score returns the best partial ratio of any token against text
func Score(tokens []string, text string) int {
	best := 0
	for _, token := range tokens {
		if s := PartialRatio(token, text); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}
