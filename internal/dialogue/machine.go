package dialogue

import (
	"strings"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// Commands understood by the machine
const (
	CommandStart        = "start"
	CommandCancel       = "cancel"
	CommandAddCharacter = "addcharacter"
)

// InputKind classifies what the user did
type InputKind int

const (
	InputCommand InputKind = iota
	InputText
	InputSearchButton
)

// Input is one user action as seen by the machine
type Input struct {
	Kind       InputKind
	Payload    string
	Privileged bool
	GroupChat  bool
}

// EffectKind tells the caller what to do after a transition
type EffectKind int

const (
	// EffectNone means no reply at all
	EffectNone EffectKind = iota
	EffectMainMenu
	EffectCancelled
	EffectPromptQuery
	EffectPromptField
	EffectSearch
	EffectCommit
)

// Effect carries the data of a side effect. Field is set for
// EffectPromptField, Query for EffectSearch and Draft for EffectCommit.
type Effect struct {
	Kind  EffectKind
	Field string
	Query string
	Draft Draft
}

// Transition is the outcome of handling an input. Err explains a rejected
// or empty input and is meant for logging; it never changes the reply.
type Transition struct {
	Session Session
	Effect  Effect
	Err     error
}

// Machine is the conversation state machine. It holds no state and never
// blocks, so one value serves every session.
type Machine struct{}

// Handle computes the next session and the effect of in
func (Machine) Handle(s Session, in Input) Transition {
	if s.Mode == "" {
		s.Mode = Idle
	}
	switch in.Kind {
	case InputCommand:
		return handleCommand(s, in)
	case InputSearchButton:
		return Transition{
			Session: Session{Mode: AwaitingSearchQuery},
			Effect:  Effect{Kind: EffectPromptQuery},
		}
	}
	return handleText(s, in)
}

func handleCommand(s Session, in Input) Transition {
	switch in.Payload {
	case CommandStart:
		return Transition{Session: Session{Mode: Idle}, Effect: Effect{Kind: EffectMainMenu}}
	case CommandCancel:
		return Transition{Session: Session{Mode: Idle}, Effect: Effect{Kind: EffectCancelled}}
	case CommandAddCharacter:
		if !in.Privileged {
			return Transition{Session: s, Err: errors.Forbidden(CommandAddCharacter)}
		}
		next := Session{Mode: Creating, Step: 0}
		return Transition{Session: next, Effect: Effect{Kind: EffectPromptField, Field: next.StepField()}}
	}
	return Transition{
		Session: s,
		Err:     errors.Newf(errors.ErrCodeInvalidOperation, "unknown command /%s", in.Payload),
	}
}

func handleText(s Session, in Input) Transition {
	text := strings.TrimSpace(in.Payload)

	switch s.Mode {
	case AwaitingSearchQuery:
		if text == "" {
			return Transition{Session: s, Effect: Effect{Kind: EffectPromptQuery}, Err: errors.ValidationRequired("query")}
		}
		return Transition{Session: s, Effect: Effect{Kind: EffectSearch, Query: text}}

	case Creating:
		return handleCreationStep(s, in, text)
	}

	if in.GroupChat {
		return Transition{Session: s}
	}
	return Transition{Session: Session{Mode: AwaitingSearchQuery}, Effect: Effect{Kind: EffectPromptQuery}}
}

func handleCreationStep(s Session, in Input, text string) Transition {
	if !in.Privileged {
		return Transition{Session: s, Err: errors.Forbidden("creation step")}
	}
	field := s.StepField()
	if field == "" {
		// Corrupt step index; start over
		return Transition{
			Session: Session{Mode: Idle},
			Effect:  Effect{Kind: EffectCancelled},
			Err:     errors.Newf(errors.ErrCodeSessionCorrupt, "creation step %d out of range", s.Step),
		}
	}
	if text == "" {
		return Transition{Session: s, Effect: Effect{Kind: EffectPromptField, Field: field}, Err: errors.ValidationRequired(field)}
	}

	fields := make([]Field, len(s.Fields), len(s.Fields)+1)
	copy(fields, s.Fields)
	fields = append(fields, Field{Name: field, Value: text})

	if s.Step == len(catalog.Fields)-1 {
		return Transition{Session: Session{Mode: Idle}, Effect: Effect{Kind: EffectCommit, Draft: fields}}
	}
	next := Session{Mode: Creating, Step: s.Step + 1, Fields: fields}
	return Transition{Session: next, Effect: Effect{Kind: EffectPromptField, Field: next.StepField()}}
}
