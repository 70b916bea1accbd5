package catalog

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// Field names of a character record. They double as the keys of the
// creation dialogue accumulator, so the order of Fields is the order in
// which the dialogue asks for them.
const (
	FieldName        = "name"
	FieldPublisher   = "publisher"
	FieldUniverse    = "universe"
	FieldType        = "type"
	FieldDescription = "description"
	FieldPostLink    = "post_link"
	FieldArtLink     = "art_link"
)

// Fields lists every user-supplied field in declaration order.
var Fields = []string{
	FieldName,
	FieldPublisher,
	FieldUniverse,
	FieldType,
	FieldDescription,
	FieldPostLink,
	FieldArtLink,
}

// Character is a catalog record. Records are immutable once inserted.
type Character struct {
	ID          string    `json:"id" yaml:"id,omitempty" mapstructure:"id"`
	Name        string    `json:"name" yaml:"name" mapstructure:"name"`
	Publisher   string    `json:"publisher" yaml:"publisher" mapstructure:"publisher"`
	Universe    string    `json:"universe" yaml:"universe" mapstructure:"universe"`
	Type        string    `json:"type" yaml:"type" mapstructure:"type"`
	Description string    `json:"description" yaml:"description" mapstructure:"description"`
	PostLink    string    `json:"postLink" yaml:"postLink" mapstructure:"post_link"`
	ArtLink     string    `json:"artLink" yaml:"artLink" mapstructure:"art_link"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt,omitempty" mapstructure:"-"`
}

// NewID returns a fresh opaque character identifier.
func NewID() string {
	return uuid.New().String()
}

// NameKey is the uniqueness key for a character name: NFC-normalised,
// trimmed and lower-cased so "Спаун" and " спаун " collide.
func NameKey(name string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
}

// Validate checks the invariants enforced at insert time.
func (c Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.ValidationRequired("name")
	}
	if err := validateLink(FieldPostLink, c.PostLink); err != nil {
		return err
	}
	if err := validateLink(FieldArtLink, c.ArtLink); err != nil {
		return err
	}
	return nil
}

// validateLink accepts an empty link or an absolute http(s) URL.
func validateLink(field, link string) error {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Newf(errors.ErrCodeValidationFormat, "%s must be an http(s) URL, got %q", field, link)
	}
	return nil
}

// Normalize trims every text field.
func (c Character) Normalize() Character {
	c.Name = strings.TrimSpace(c.Name)
	c.Publisher = strings.TrimSpace(c.Publisher)
	c.Universe = strings.TrimSpace(c.Universe)
	c.Type = strings.TrimSpace(c.Type)
	c.Description = strings.TrimSpace(c.Description)
	c.PostLink = strings.TrimSpace(c.PostLink)
	c.ArtLink = strings.TrimSpace(c.ArtLink)
	return c
}

// DefaultSeed returns the characters the channel launched with.
func DefaultSeed() []Character {
	return []Character{
		{
			Name:        "Человек-паук Нуар",
			Publisher:   "Marvel",
			Universe:    "Marvel Noir",
			Type:        "Герой",
			Description: "Мрачный Питер Паркер из 1930-х, мститель с револьвером.",
			PostLink:    "https://t.me/KomicsHub/3",
			ArtLink:     "https://t.me/KomicsHub/4",
		},
		{
			Name:        "Спаун",
			Publisher:   "Image",
			Universe:    "Spawn Universe",
			Type:        "Антигерой",
			Description: "Эл Симмонс, наемник, ставший мстителем ада с цепями.",
			PostLink:    "https://t.me/komikshub/post2",
			ArtLink:     "https://example.com/art2.jpg",
		},
	}
}
