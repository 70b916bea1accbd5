// Package chat holds the transport-neutral shapes exchanged between the
// transports and the bot: inbound events, outbound replies and the callback
// token codec used by buttons.
package chat

// ChatType mirrors the kinds of chats a message can arrive from
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// IsGroup reports whether the chat is shared with other users
func (c ChatType) IsGroup() bool {
	return c == ChatGroup || c == ChatSupergroup
}

// EventKind classifies an inbound event
type EventKind string

const (
	KindCommand        EventKind = "command"
	KindText           EventKind = "text"
	KindButtonClick    EventKind = "button_click"
	KindReplyToMessage EventKind = "reply_to_message"
)

// Event is one inbound interaction. Payload holds the command name without
// its slash for commands, the raw text for text and replies, and the
// callback token for button clicks.
type Event struct {
	UserID     int64
	ChatID     int64
	ChatType   ChatType
	Kind       EventKind
	Payload    string
	MessageID  int
	Privileged bool
}

// Layout controls how reply actions are arranged
type Layout string

const (
	LayoutColumn Layout = "column"
	LayoutRow    Layout = "row"
)

// Action is a button attached to a reply. Exactly one of Token and URL is set.
type Action struct {
	Label string
	Token string
	URL   string
}

// Reply is one outbound message
type Reply struct {
	Text             string
	Actions          []Action
	Layout           Layout
	ReplyToMessageID int
}
