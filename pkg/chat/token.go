package chat

import (
	"strings"

	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// MaxTokenBytes is Telegram's callback_data limit
const MaxTokenBytes = 64

// TokenKind is the prefix of a callback token
type TokenKind string

const (
	TokenMenu   TokenKind = "menu"
	TokenSelect TokenKind = "select"
	TokenVote   TokenKind = "vote"
)

// Menu entries
const (
	MenuSearch    = "search"
	MenuRandom    = "random"
	MenuCrossover = "crossover"
)

// Token is a decoded callback token
type Token struct {
	Kind TokenKind
	Arg  string
}

// String encodes the token as "<kind>:<arg>"
func (t Token) String() string {
	return string(t.Kind) + ":" + t.Arg
}

// EncodeToken builds a callback token, rejecting ones that exceed
// MaxTokenBytes or carry an unknown kind.
func EncodeToken(kind TokenKind, arg string) (string, error) {
	if !validKind(kind) {
		return "", errors.Newf(errors.ErrCodeValidationInvalid, "unknown token kind %q", kind)
	}
	if arg == "" {
		return "", errors.ValidationRequired("token argument")
	}
	s := Token{Kind: kind, Arg: arg}.String()
	if len(s) > MaxTokenBytes {
		return "", errors.Newf(errors.ErrCodeValidationRange, "token %q exceeds %d bytes", s, MaxTokenBytes)
	}
	return s, nil
}

// MustToken is EncodeToken for arguments known to fit, such as UUIDs and
// menu names.
func MustToken(kind TokenKind, arg string) string {
	s, err := EncodeToken(kind, arg)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseToken decodes a callback token. Malformed tokens yield a
// STALE_SELECTION error, which callers treat like a selection that no
// longer resolves.
func ParseToken(s string) (Token, error) {
	kind, arg, ok := strings.Cut(s, ":")
	if !ok || arg == "" || len(s) > MaxTokenBytes || !validKind(TokenKind(kind)) {
		return Token{}, errors.Newf(errors.ErrCodeStaleSelection, "malformed token %q", s)
	}
	return Token{Kind: TokenKind(kind), Arg: arg}, nil
}

func validKind(kind TokenKind) bool {
	switch kind {
	case TokenMenu, TokenSelect, TokenVote:
		return true
	}
	return false
}
