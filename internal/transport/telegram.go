package transport

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/JamesPrial/komikshub-bot/internal/access"
	"github.com/JamesPrial/komikshub-bot/pkg/chat"
	"github.com/JamesPrial/komikshub-bot/pkg/config"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// SecretHeader carries the webhook secret on every update Telegram posts
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const workerQueueSize = 32

// botAPI is the part of *tgbotapi.BotAPI the transport uses
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// TelegramTransport receives updates from the Bot API by long polling or
// through a webhook and sends replies back. Updates are spread over
// settings.Workers goroutines by session, so different sessions run
// concurrently while the updates of one (user, chat) are handled in the
// order Telegram delivered them.
type TelegramTransport struct {
	api      botAPI
	botID    int64
	settings config.BotSettings
	auth     access.Authorizer

	logger    *slog.Logger
	errLogger *errors.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewTelegramTransport authenticates with the Bot API using settings.Token
func NewTelegramTransport(settings config.BotSettings, auth access.Authorizer) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(settings.Token)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "failed to authenticate with Telegram")
	}
	api.Debug = settings.Debug
	t := newTelegramTransport(api, api.Self.ID, settings, auth)
	t.logger.Info("Authorized on Telegram", slog.String("bot", api.Self.UserName))
	return t, nil
}

func newTelegramTransport(api botAPI, botID int64, settings config.BotSettings, auth access.Authorizer) *TelegramTransport {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if auth == nil {
		auth = access.NewAllowList()
	}
	return &TelegramTransport{
		api:       api,
		botID:     botID,
		settings:  settings,
		auth:      auth,
		logger:    logging.GetGlobalLogger("transport.telegram"),
		errLogger: errors.NewLogger("transport.telegram"),
	}
}

// Name returns the name of the transport
func (t *TelegramTransport) Name() string {
	return "telegram"
}

// Start receives updates until ctx is cancelled or Stop is called, then
// waits for in-flight updates to finish.
func (t *TelegramTransport) Start(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	ctx = logging.WithTransport(ctx, t.Name())
	t.logger.InfoContext(ctx, "Telegram transport starting",
		slog.String("mode", t.settings.Mode),
		slog.Int("workers", t.settings.Workers),
	)

	var updates <-chan tgbotapi.Update
	var stop func()
	var err error
	if t.settings.Mode == config.ModeWebhook {
		updates, stop, err = t.startWebhook(ctx, cancel)
	} else {
		updates, stop = t.startPolling(ctx)
	}
	if err != nil {
		return err
	}

	// Updates already accepted are finished even when shutting down
	work := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	queues := make([]chan tgbotapi.Update, t.settings.Workers)
	for i := range queues {
		queue := make(chan tgbotapi.Update, workerQueueSize)
		queues[i] = queue
		g.Go(func() error {
			for u := range queue {
				t.dispatch(work, u, handler)
			}
			return nil
		})
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			queues[shardFor(u, len(queues))] <- u
		}
	}

	stop()
	for _, queue := range queues {
		close(queue)
	}
	_ = g.Wait()
	t.logger.InfoContext(ctx, "Telegram transport stopped")
	return nil
}

func (t *TelegramTransport) startPolling(ctx context.Context) (<-chan tgbotapi.Update, func()) {
	// getUpdates is refused while a webhook is registered
	if _, err := t.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		t.logger.WarnContext(ctx, "Failed to delete webhook", slog.String("error", err.Error()))
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.settings.PollTimeout
	return t.api.GetUpdatesChan(u), t.api.StopReceivingUpdates
}

func (t *TelegramTransport) startWebhook(ctx context.Context, cancel context.CancelFunc) (<-chan tgbotapi.Update, func(), error) {
	hookURL, err := url.Parse(t.settings.WebhookURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeConfiguration, "invalid webhook URL")
	}
	params := tgbotapi.Params{"url": t.settings.WebhookURL}
	params.AddNonEmpty("secret_token", t.settings.WebhookSecret)
	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeTransportSend, "failed to register webhook")
	}

	path := hookURL.Path
	if path == "" {
		path = "/"
	}
	updates := make(chan tgbotapi.Update, t.settings.Workers)
	mux := http.NewServeMux()
	mux.Handle(path, t.webhookHandler(ctx, updates))
	server := &http.Server{
		Addr:              t.settings.WebhookListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.logger.InfoContext(ctx, "Webhook server starting",
			slog.String("address", server.Addr), slog.String("path", path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.logger.ErrorContext(ctx, "Webhook server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	stop := func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			t.logger.ErrorContext(ctx, "Error during webhook server shutdown", slog.String("error", err.Error()))
		}
		<-done
	}
	return updates, stop, nil
}

// webhookHandler accepts updates posted by Telegram and queues them
func (t *TelegramTransport) webhookHandler(ctx context.Context, updates chan<- tgbotapi.Update) http.Handler {
	secret := []byte(t.settings.WebhookSecret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if len(secret) > 0 && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), secret) != 1 {
			t.logger.WarnContext(ctx, "Webhook request with bad secret", slog.String("remote", r.RemoteAddr))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var u tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&u); err != nil {
			_ = t.errLogger.LogError(ctx, errors.Wrap(err, errors.ErrCodeTransportDecode, "invalid update"), "webhook")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		select {
		case updates <- u:
			w.WriteHeader(http.StatusOK)
		case <-ctx.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		case <-r.Context().Done():
		}
	})
}

// sessionOf returns the (user, chat) pair an update belongs to. Updates
// without one share the zero pair.
func sessionOf(u tgbotapi.Update) (userID, chatID int64) {
	switch {
	case u.CallbackQuery != nil:
		if u.CallbackQuery.From != nil {
			userID = u.CallbackQuery.From.ID
		}
		if m := u.CallbackQuery.Message; m != nil && m.Chat != nil {
			chatID = m.Chat.ID
		}
	case u.Message != nil:
		if u.Message.From != nil {
			userID = u.Message.From.ID
		}
		if u.Message.Chat != nil {
			chatID = u.Message.Chat.ID
		}
	}
	return userID, chatID
}

// shardFor picks the worker queue for u out of n
func shardFor(u tgbotapi.Update, n int) int {
	userID, chatID := sessionOf(u)
	var key [16]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(userID))
	binary.LittleEndian.PutUint64(key[8:], uint64(chatID))
	h := fnv.New64a()
	h.Write(key[:])
	return int(h.Sum64() % uint64(n))
}

// dispatch handles one update and sends the reply
func (t *TelegramTransport) dispatch(ctx context.Context, u tgbotapi.Update, handler Handler) {
	if u.CallbackQuery != nil {
		// Stops the client's loading spinner
		if _, err := t.api.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, "")); err != nil {
			t.logger.DebugContext(ctx, "Failed to answer callback query", slog.String("error", err.Error()))
		}
	}

	ev, ok := t.toEvent(u)
	if !ok {
		t.logger.DebugContext(ctx, "Ignoring update", slog.Int("update_id", u.UpdateID))
		return
	}

	reply := handler(ctx, ev)
	if reply == nil {
		return
	}
	if _, err := t.api.Send(renderMessage(ev, reply)); err != nil {
		_ = t.errLogger.LogAndWrap(ctx, err, errors.ErrCodeTransportSend, "failed to send reply", "send_reply")
	}
}

// toEvent converts an update into an event. Updates the bot does not react
// to, such as channel posts or stickers, yield false.
func (t *TelegramTransport) toEvent(u tgbotapi.Update) (chat.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil || cq.Data == "" {
			return chat.Event{}, false
		}
		return chat.Event{
			UserID:     cq.From.ID,
			ChatID:     cq.Message.Chat.ID,
			ChatType:   chat.ChatType(cq.Message.Chat.Type),
			Kind:       chat.KindButtonClick,
			Payload:    cq.Data,
			MessageID:  cq.Message.MessageID,
			Privileged: t.auth.IsPrivileged(cq.From.ID),
		}, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil || m.Text == "" {
		return chat.Event{}, false
	}
	ev := chat.Event{
		UserID:     m.From.ID,
		ChatID:     m.Chat.ID,
		ChatType:   chat.ChatType(m.Chat.Type),
		Kind:       chat.KindText,
		Payload:    m.Text,
		MessageID:  m.MessageID,
		Privileged: t.auth.IsPrivileged(m.From.ID),
	}
	switch {
	case m.IsCommand():
		ev.Kind, ev.Payload = chat.KindCommand, strings.ToLower(m.Command())
	case ev.ChatType.IsGroup() && m.ReplyToMessage != nil &&
		m.ReplyToMessage.From != nil && m.ReplyToMessage.From.ID == t.botID:
		ev.Kind = chat.KindReplyToMessage
	}
	return ev, true
}

// renderMessage builds the outgoing message. Replies quote the message
// that triggered them.
func renderMessage(ev chat.Event, reply *chat.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(ev.ChatID, reply.Text)
	msg.ReplyToMessageID = reply.ReplyToMessageID
	if msg.ReplyToMessageID == 0 {
		msg.ReplyToMessageID = ev.MessageID
	}
	if len(reply.Actions) > 0 {
		msg.ReplyMarkup = keyboard(reply)
	}
	return msg
}

func keyboard(reply *chat.Reply) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(reply.Actions))
	for _, a := range reply.Actions {
		if a.URL != "" {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(a.Label, a.URL))
		} else {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Token))
		}
	}
	if reply.Layout == chat.LayoutRow {
		return tgbotapi.NewInlineKeyboardMarkup(buttons)
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(b))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Stop makes Start return once in-flight updates are handled
func (t *TelegramTransport) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Telegram transport stopping")
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}
