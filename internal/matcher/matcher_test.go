package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
)

func seedCatalog() []catalog.Character {
	chars := catalog.DefaultSeed()
	chars[0].ID = "noir"
	chars[1].ID = "spawn"
	return chars
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Человек-Паук  НУАР ", "человек паук нуар"},
		{"Marvel\tNoir\n", "marvel noir"},
		{"", ""},
		{"Ё", "ё"}, // decomposed input
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"человек", "паук"}, Tokenize("Человек-паук"))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize("-"))
}

func TestSearchText(t *testing.T) {
	c := seedCatalog()[0]
	text := SearchText(c)
	assert.Equal(t, "человек паук нуар marvel marvel noir герой", text)
	assert.NotContains(t, text, "револьвер", "description is not searched")
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"exact substring", "паук", "человек паук нуар", 100},
		{"symmetric", "человек паук нуар", "паук", 100},
		{"one substitution in window", "паук", "спаун image", 75},
		{"no overlap", "xyz", "abc", 0},
		{"empty", "", "abc", 0},
		{"equal length", "abcd", "abce", 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartialRatio(tt.a, tt.b))
		})
	}
}

func TestLCS(t *testing.T) {
	assert.Equal(t, 3, lcs([]rune("паук"), []rune("паун")))
	assert.Equal(t, 4, lcs([]rune("abcbdab"), []rune("bdcaba")))
	assert.Equal(t, 0, lcs(nil, []rune("abc")))
}

func TestMatch_Scenario(t *testing.T) {
	chars := seedCatalog()
	m := New(DefaultThreshold)
	ctx := context.Background()

	marvel := m.Match(ctx, "marvel", chars)
	require.Len(t, marvel, 1)
	assert.Equal(t, "noir", marvel[0].ID)

	assert.Empty(t, m.Match(ctx, "xyz123", chars))

	ranked := m.Rank(ctx, "паук", chars)
	require.Len(t, ranked, 2)
	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, 75, ranked[1].Score, "\"спаун\" contains \"паун\"")

	assert.Len(t, New(80).Match(ctx, "паук", chars), 1)
}

func TestMatch_KeepsCatalogOrder(t *testing.T) {
	chars := []catalog.Character{
		{ID: "1", Name: "Спаун"},
		{ID: "2", Name: "Паук"},
	}
	ranked := New(70).Rank(context.Background(), "паук", chars)
	require.Len(t, ranked, 2)
	assert.Equal(t, "1", ranked[0].Character.ID, "lower score stays first")
	assert.Less(t, ranked[0].Score, ranked[1].Score)
}

func TestMatch_EdgeCases(t *testing.T) {
	chars := seedCatalog()

	assert.Empty(t, Match("", chars, 70))
	assert.Empty(t, Match("   ", chars, 0))
	assert.Empty(t, Match("паук", nil, 70))
	assert.Len(t, Match("zzz", chars, 0), 2, "threshold 0 keeps every entry")
}

func TestMatch_ResultsAreSubsetAboveThreshold(t *testing.T) {
	chars := append(seedCatalog(),
		catalog.Character{ID: "hb", Name: "Хеллбой", Publisher: "Dark Horse"},
		catalog.Character{ID: "at", Name: "Атом", Publisher: "DC", Type: "Герой"},
	)
	ids := map[string]bool{}
	for _, c := range chars {
		ids[c.ID] = true
	}

	queries := []string{"паук", "dark", "герой", "dc comics", "спаун", "image", "нуар marvel", "q"}
	for _, threshold := range []int{0, 50, 70, 90, 100} {
		m := New(threshold)
		for _, q := range queries {
			for _, c := range m.Rank(context.Background(), q, chars) {
				assert.True(t, ids[c.Character.ID])
				assert.GreaterOrEqual(t, c.Score, threshold)
				assert.Equal(t, Score(Tokenize(q), SearchText(c.Character)), c.Score)
			}
			assert.Len(t, Match(q, chars, threshold), len(m.Rank(context.Background(), q, chars)))
		}
	}
}

func TestNew_ClampsThreshold(t *testing.T) {
	assert.Equal(t, 0, New(-5).Threshold())
	assert.Equal(t, 100, New(500).Threshold())
	assert.Equal(t, 70, New(70).Threshold())
}
