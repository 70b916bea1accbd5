// Package bot routes inbound chat events through the dialogue machine, the
// matcher and the selection resolver, and renders the replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JamesPrial/komikshub-bot/internal/dialogue"
	"github.com/JamesPrial/komikshub-bot/internal/matcher"
	"github.com/JamesPrial/komikshub-bot/internal/selection"
	"github.com/JamesPrial/komikshub-bot/internal/storage"
	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/chat"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Reply outcomes reported to metrics
const (
	outcomeNone      = "none"
	outcomeMenu      = "menu"
	outcomePrompt    = "prompt"
	outcomeDetail    = "detail"
	outcomeChoices   = "choices"
	outcomeNotFound  = "not_found"
	outcomeCreated   = "created"
	outcomeFailed    = "failed"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Orchestrator is the single entry point for inbound events. Events of the
// same (user, chat) are handled one at a time; different sessions run
// concurrently.
type Orchestrator struct {
	store    storage.Backend
	sessions dialogue.Store
	machine  dialogue.Machine
	matcher  *matcher.Matcher
	resolver *selection.Resolver
	locks    *keyLock

	logger    *slog.Logger
	errLogger *errors.Logger
	metrics   *logging.MetricsCollector
	audit     *logging.AuditLogger
}

// New creates an orchestrator over the catalog store and session store
func New(store storage.Backend, sessions dialogue.Store, m *matcher.Matcher) *Orchestrator {
	return &Orchestrator{
		store:     store,
		sessions:  sessions,
		matcher:   m,
		resolver:  selection.NewResolver(store),
		locks:     newKeyLock(),
		logger:    logging.GetGlobalLogger("bot"),
		errLogger: errors.NewLogger("bot"),
		metrics:   logging.GetGlobalMetricsCollector(),
		audit:     logging.GetGlobalAuditLogger(),
	}
}

// Handle processes one event and returns the reply to send, or nil for no
// reply. It never panics.
func (o *Orchestrator) Handle(ctx context.Context, ev chat.Event) (reply *chat.Reply) {
	ctx = logging.NewRequestContext(ctx, "handle_"+string(ev.Kind))
	ctx = logging.WithUserID(ctx, ev.UserID)
	ctx = logging.WithChatID(ctx, ev.ChatID)

	start := time.Now()
	outcome := outcomeNone
	defer func() {
		if r := recover(); r != nil {
			_ = o.errLogger.LogPanic(ctx, r, "handle_"+string(ev.Kind))
			reply, outcome = textReply(textInternalError), outcomeError
		}
		o.metrics.RecordEvent(string(ev.Kind), logging.GetTransport(ctx), time.Since(start))
		o.metrics.RecordReply(outcome)
		o.logger.DebugContext(ctx, "Event handled",
			slog.String("kind", string(ev.Kind)),
			slog.String("outcome", outcome),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	switch ev.Kind {
	case chat.KindButtonClick:
		reply, outcome = o.handleButton(ctx, ev)
	case chat.KindReplyToMessage:
		if ev.ChatType.IsGroup() {
			reply, outcome = o.handleComment(ctx, ev)
		} else {
			reply, outcome = o.handleDialogue(ctx, ev, dialogue.InputText)
		}
	case chat.KindCommand:
		reply, outcome = o.handleDialogue(ctx, ev, dialogue.InputCommand)
	case chat.KindText:
		reply, outcome = o.handleDialogue(ctx, ev, dialogue.InputText)
	default:
		o.logger.WarnContext(ctx, "Unknown event kind", slog.String("kind", string(ev.Kind)))
	}
	return reply
}

// handleDialogue runs the load, transition, side effect, save cycle under
// the session lock.
func (o *Orchestrator) handleDialogue(ctx context.Context, ev chat.Event, kind dialogue.InputKind) (*chat.Reply, string) {
	key := dialogue.Key{UserID: ev.UserID, ChatID: ev.ChatID}
	unlock := o.locks.Lock(key.String())
	defer unlock()
	if locker, ok := o.sessions.(dialogue.Locker); ok {
		release, err := locker.Lock(ctx, key)
		if err != nil {
			_ = o.errLogger.LogError(ctx, err, "lock_session")
			return textReply(textInternalError), outcomeError
		}
		defer release()
	}

	sess, err := o.sessions.Load(ctx, key)
	if err != nil {
		_ = o.errLogger.LogError(ctx, err, "load_session")
		if !errors.Is(err, errors.ErrCodeSessionCorrupt) {
			return textReply(textInternalError), outcomeError
		}
		// an unreadable session would otherwise block the user until it expires
		if err := o.sessions.Delete(ctx, key); err != nil {
			_ = o.errLogger.LogError(ctx, err, "reset_session")
		}
		sess = dialogue.Session{Mode: dialogue.Idle}
	}

	tr := o.machine.Handle(sess, dialogue.Input{
		Kind:       kind,
		Payload:    ev.Payload,
		Privileged: ev.Privileged,
		GroupChat:  ev.ChatType.IsGroup(),
	})
	if tr.Err != nil {
		_ = o.errLogger.LogError(ctx, tr.Err, "dialogue")
		if errors.Is(tr.Err, errors.ErrCodeAuthForbidden) && kind == dialogue.InputCommand {
			o.auditErr(ctx, o.audit.LogAccessDenied(ctx, "/"+ev.Payload))
		}
	}

	reply, outcome := o.applyEffect(ctx, sess, tr)

	if err := o.sessions.Save(ctx, key, tr.Session); err != nil {
		_ = o.errLogger.LogError(ctx, err, "save_session")
		// the insert already happened; telling the admin otherwise invites a duplicate
		if tr.Effect.Kind == dialogue.EffectCommit {
			return reply, outcome
		}
		return textReply(textInternalError), outcomeError
	}
	return reply, outcome
}

func (o *Orchestrator) applyEffect(ctx context.Context, prev dialogue.Session, tr dialogue.Transition) (*chat.Reply, string) {
	switch tr.Effect.Kind {
	case dialogue.EffectMainMenu:
		return mainMenu(), outcomeMenu
	case dialogue.EffectCancelled:
		return textReply(textCancelled), outcomeCancelled
	case dialogue.EffectPromptQuery:
		return textReply(textPromptQuery), outcomePrompt
	case dialogue.EffectPromptField:
		if tr.Session.Mode == dialogue.Creating && tr.Session.Step == 0 && (prev.Mode != dialogue.Creating || prev.Step != 0) {
			o.auditErr(ctx, o.audit.LogCreationStarted(ctx))
		}
		return fieldPrompt(tr.Effect.Field), outcomePrompt
	case dialogue.EffectSearch:
		return o.search(ctx, tr.Effect.Query, textSearchNotFound)
	case dialogue.EffectCommit:
		return o.commit(ctx, tr.Effect.Draft)
	}
	return nil, outcomeNone
}

func (o *Orchestrator) search(ctx context.Context, query, notFound string) (*chat.Reply, string) {
	timer := logging.StartTimer(ctx, o.logger, "search")
	chars, err := o.store.ListCharacters(ctx)
	if err != nil {
		timer.EndWithError(err)
		_ = o.errLogger.LogError(ctx, err, "search")
		return textReply(textInternalError), outcomeError
	}
	found := o.matcher.Match(ctx, query, chars)
	timer.End()

	outcome := o.resolver.Resolve(ctx, found)
	return outcomeReply(outcome, notFound), outcomeName(outcome.Kind)
}

func (o *Orchestrator) commit(ctx context.Context, draft dialogue.Draft) (*chat.Reply, string) {
	name := draft.Values()[catalog.FieldName]
	c, err := draft.Character()
	if err == nil {
		c, err = o.store.InsertCharacter(ctx, c)
	}
	if err != nil {
		_ = o.errLogger.LogError(ctx, err, "create_character")
		o.auditErr(ctx, o.audit.LogCreationFailed(ctx, name, err))
		return textReply(fmt.Sprintf(textCreateFailed, errors.GetMessage(err))), outcomeFailed
	}

	o.logger.InfoContext(ctx, "Character created",
		slog.String("character_id", c.ID), slog.String("name", c.Name))
	o.metrics.RecordCharacterCreated()
	o.auditErr(ctx, o.audit.LogCharacterCreated(ctx, c.ID, c.Name))
	return textReply(fmt.Sprintf(textCreated, c.Name)), outcomeCreated
}

// handleComment answers a group reply to one of the bot's messages with an
// implicit search. It bypasses the dialogue machine.
func (o *Orchestrator) handleComment(ctx context.Context, ev chat.Event) (*chat.Reply, string) {
	reply, outcome := o.search(ctx, ev.Payload, textCommentNotFound)
	reply.ReplyToMessageID = ev.MessageID
	return reply, outcome
}

func (o *Orchestrator) handleButton(ctx context.Context, ev chat.Event) (*chat.Reply, string) {
	token, err := chat.ParseToken(ev.Payload)
	if err != nil {
		_ = o.errLogger.LogError(ctx, err, "button")
		return textReply(textSelectionGone), outcomeNotFound
	}

	var out selection.Outcome
	notFound := textSelectionGone
	switch token.Kind {
	case chat.TokenMenu:
		switch token.Arg {
		case chat.MenuSearch:
			return o.handleDialogue(ctx, ev, dialogue.InputSearchButton)
		case chat.MenuRandom:
			out, err = o.resolver.PickRandom(ctx)
			notFound = textCatalogEmpty
		case chat.MenuCrossover:
			out, err = o.resolver.PickTwoDistinct(ctx)
		default:
			o.logger.InfoContext(ctx, "Unknown menu entry", slog.String("entry", token.Arg))
			return nil, outcomeNone
		}
	case chat.TokenSelect:
		out, err = o.resolver.ResolveToken(ctx, ev.Payload)
	case chat.TokenVote:
		out, err = o.resolver.Vote(ctx, ev.Payload)
	}
	if err != nil {
		_ = o.errLogger.LogError(ctx, err, "button")
		return textReply(textInternalError), outcomeError
	}
	return outcomeReply(out, notFound), outcomeName(out.Kind)
}

func (o *Orchestrator) auditErr(ctx context.Context, err error) {
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to write audit event", slog.String("error", err.Error()))
	}
}

func outcomeName(kind selection.Kind) string {
	switch kind {
	case selection.Detail, selection.VoteAcknowledged:
		return outcomeDetail
	case selection.Disambiguation, selection.Crossover:
		return outcomeChoices
	}
	return outcomeNotFound
}
