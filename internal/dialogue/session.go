// Package dialogue holds the per-user conversation state: a pure state
// machine deciding what each input does, and the stores sessions live in
// between inputs.
package dialogue

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// Mode is the place a user is at in the conversation
type Mode string

const (
	Idle                Mode = "idle"
	AwaitingSearchQuery Mode = "awaiting_search_query"
	Creating            Mode = "creating"
)

// Field is one answered step of the creation dialogue
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session is the state kept per (user, chat). Step indexes catalog.Fields
// and Fields is non-empty only while Creating.
type Session struct {
	Mode      Mode      `json:"mode"`
	Step      int       `json:"step,omitempty"`
	Fields    []Field   `json:"fields,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsIdle reports whether the session carries no state worth storing
func (s Session) IsIdle() bool {
	return s.Mode == Idle || s.Mode == ""
}

// StepField returns the field the current creation step asks for
func (s Session) StepField() string {
	if s.Mode != Creating || s.Step < 0 || s.Step >= len(catalog.Fields) {
		return ""
	}
	return catalog.Fields[s.Step]
}

// Draft is the accumulated answers of a finished creation dialogue
type Draft []Field

// Values returns the draft as a field name to value map
func (d Draft) Values() map[string]string {
	out := make(map[string]string, len(d))
	for _, f := range d {
		out[f.Name] = f.Value
	}
	return out
}

// Character decodes the draft into a catalog record. Unknown field names
// are rejected.
func (d Draft) Character() (catalog.Character, error) {
	var c catalog.Character
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &c,
		ErrorUnused: true,
	})
	if err != nil {
		return catalog.Character{}, errors.Internal(err)
	}
	if err := decoder.Decode(d.Values()); err != nil {
		return catalog.Character{}, errors.Wrap(err, errors.ErrCodeValidationInvalid, "invalid character draft")
	}
	return c, nil
}
