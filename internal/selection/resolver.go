// Package selection turns match results and button tokens into concrete
// outcomes: a single character, a list to choose from, or a random pair
// to vote on.
package selection

import (
	"context"
	"log/slog"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/chat"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Kind of outcome produced by the resolver
type Kind int

const (
	NotFound Kind = iota
	Detail
	Disambiguation
	Crossover
	InsufficientCatalog
	VoteAcknowledged
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Detail:
		return "detail"
	case Disambiguation:
		return "disambiguation"
	case Crossover:
		return "crossover"
	case InsufficientCatalog:
		return "insufficient_catalog"
	case VoteAcknowledged:
		return "vote_acknowledged"
	}
	return "unknown"
}

// Choice is one button of a disambiguation list or crossover vote
type Choice struct {
	Label string
	Token string
}

// Outcome is the result of a resolution. Character is set for Detail and
// VoteAcknowledged, Choices for Disambiguation and Crossover, and Pair for
// Crossover.
type Outcome struct {
	Kind      Kind
	Character *catalog.Character
	Choices   []Choice
	Pair      []catalog.Character
}

// Lookup is the part of the catalog store the resolver reads from
type Lookup interface {
	GetCharacter(ctx context.Context, id string) (*catalog.Character, error)
	RandomCharacters(ctx context.Context, n int) ([]catalog.Character, error)
}

// Resolver resolves candidates and tokens against a Lookup
type Resolver struct {
	store  Lookup
	logger *slog.Logger
}

// NewResolver creates a resolver reading from store
func NewResolver(store Lookup) *Resolver {
	return &Resolver{
		store:  store,
		logger: logging.GetGlobalLogger("selection"),
	}
}

// Label is the text of a character's choice button
func Label(c catalog.Character) string {
	if c.Publisher == "" {
		return c.Name
	}
	return c.Name + " (" + c.Publisher + ")"
}

// Resolve maps search results onto an outcome. A list only offers
// characters that fit in a button, so it always has at least two choices.
func (r *Resolver) Resolve(ctx context.Context, candidates []catalog.Character) Outcome {
	if len(candidates) > 1 {
		candidates = r.selectable(ctx, chat.TokenSelect, candidates)
	}
	switch len(candidates) {
	case 0:
		return Outcome{Kind: NotFound}
	case 1:
		c := candidates[0]
		return Outcome{Kind: Detail, Character: &c}
	}
	return Outcome{Kind: Disambiguation, Choices: r.choices(ctx, chat.TokenSelect, candidates)}
}

// selectable drops characters whose id cannot be carried by a token.
// IDs from hand-edited catalog files can exceed the callback limit.
func (r *Resolver) selectable(ctx context.Context, kind chat.TokenKind, chars []catalog.Character) []catalog.Character {
	out := make([]catalog.Character, 0, len(chars))
	for _, c := range chars {
		if _, err := chat.EncodeToken(kind, c.ID); err != nil {
			r.logger.WarnContext(ctx, "Skipping choice with unencodable id",
				slog.String("character_id", c.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Resolver) choices(ctx context.Context, kind chat.TokenKind, chars []catalog.Character) []Choice {
	out := make([]Choice, 0, len(chars))
	for _, c := range r.selectable(ctx, kind, chars) {
		token, _ := chat.EncodeToken(kind, c.ID)
		label := Label(c)
		if kind == chat.TokenVote {
			label = c.Name
		}
		out = append(out, Choice{Label: label, Token: token})
	}
	return out
}

// ResolveToken re-fetches the character a select token points at. A
// malformed token or one whose character is gone yields NotFound; store
// failures are returned as errors.
func (r *Resolver) ResolveToken(ctx context.Context, token string) (Outcome, error) {
	c, err := r.lookupToken(ctx, token, chat.TokenSelect)
	if err != nil || c == nil {
		return Outcome{Kind: NotFound}, err
	}
	return Outcome{Kind: Detail, Character: c}, nil
}

// Vote acknowledges a crossover vote. Votes are not tallied.
func (r *Resolver) Vote(ctx context.Context, token string) (Outcome, error) {
	c, err := r.lookupToken(ctx, token, chat.TokenVote)
	if err != nil || c == nil {
		return Outcome{Kind: NotFound}, err
	}
	r.logger.InfoContext(ctx, "Crossover vote", slog.String("character_id", c.ID))
	return Outcome{Kind: VoteAcknowledged, Character: c}, nil
}

func (r *Resolver) lookupToken(ctx context.Context, raw string, want chat.TokenKind) (*catalog.Character, error) {
	token, err := chat.ParseToken(raw)
	if err == nil && token.Kind != want {
		err = errors.Newf(errors.ErrCodeStaleSelection, "expected %s token, got %q", want, raw)
	}
	if err != nil {
		r.logger.InfoContext(ctx, "Stale selection token", slog.String("token", raw))
		return nil, nil
	}

	c, err := r.store.GetCharacter(ctx, token.Arg)
	if err != nil {
		return nil, err
	}
	if c == nil {
		r.logger.InfoContext(ctx, "Selection no longer resolves", slog.String("character_id", token.Arg))
	}
	return c, nil
}

// PickRandom returns one random character, or NotFound on an empty catalog
func (r *Resolver) PickRandom(ctx context.Context) (Outcome, error) {
	chars, err := r.store.RandomCharacters(ctx, 1)
	if err != nil {
		return Outcome{}, err
	}
	if len(chars) == 0 {
		return Outcome{Kind: NotFound}, nil
	}
	return Outcome{Kind: Detail, Character: &chars[0]}, nil
}

// PickTwoDistinct returns two different characters to vote between
func (r *Resolver) PickTwoDistinct(ctx context.Context) (Outcome, error) {
	chars, err := r.store.RandomCharacters(ctx, 2)
	if err != nil {
		return Outcome{}, err
	}
	if len(chars) < 2 || chars[0].ID == chars[1].ID {
		return Outcome{Kind: InsufficientCatalog}, nil
	}
	choices := r.choices(ctx, chat.TokenVote, chars[:2])
	if len(choices) < 2 {
		return Outcome{Kind: InsufficientCatalog}, nil
	}
	return Outcome{Kind: Crossover, Choices: choices, Pair: chars[:2]}, nil
}
