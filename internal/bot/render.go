package bot

import (
	"fmt"

	"github.com/JamesPrial/komikshub-bot/internal/selection"
	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/chat"
)

// User-facing texts
const (
	textGreeting         = "🦸 Привет! Я бот канала КомиксХаб! Помогу найти героев комиксов. Выбери действие:"
	textCancelled        = "Поиск завершён. Используй /start, чтобы начать заново. 😊"
	textPromptQuery      = "Введи запрос (например, паук, нуар, Marvel):"
	textSeveralFound     = "Найдено несколько персонажей. Выбери одного:"
	textSearchNotFound   = "Персонаж не найден! Попробуй другой запрос. 😎"
	textCommentNotFound  = "Информации о таком персонаже нет. 😔"
	textSelectionGone    = "Этот персонаж больше недоступен. Попробуй новый поиск. 😔"
	textCatalogEmpty     = "Персонажи не найдены. База данных пуста. 😔"
	textNotEnoughForDuel = "Недостаточно персонажей для кроссовера. Добавьте больше персонажей! 😔"
	textCreated          = "Персонаж %s успешно добавлен! 🎉"
	textCreateFailed     = "Ошибка при добавлении персонажа: %s"
	textCrossover        = "⚔️ Кроссовер: %s vs. %s — кто победит? 😈"
	textVoted            = "Ты выбрал %s! Спасибо за голос! 🏆"
	textInternalError    = "Что-то пошло не так. Попробуй ещё раз чуть позже. 😔"
	labelArt             = "Арт"
)

var fieldPrompts = map[string]string{
	catalog.FieldName:        "Введите имя персонажа (например, Человек-паук Нуар):",
	catalog.FieldPublisher:   "Введите издателя (например, Marvel):",
	catalog.FieldUniverse:    "Введите вселенную (например, Marvel Noir):",
	catalog.FieldType:        "Введите тип персонажа (например, Герой, Антигерой, Злодей):",
	catalog.FieldDescription: "Введите описание персонажа (например, Мрачный Питер Паркер из 1930-х...):",
	catalog.FieldPostLink:    "Введите ссылку на пост (например, https://t.me/KomicsHub/3):",
	catalog.FieldArtLink:     "Введите ссылку на арт (например, https://example.com/art.jpg):",
}

func textReply(text string) *chat.Reply {
	return &chat.Reply{Text: text}
}

func mainMenu() *chat.Reply {
	return &chat.Reply{
		Text:   textGreeting,
		Layout: chat.LayoutColumn,
		Actions: []chat.Action{
			{Label: "🔍 Поиск", Token: chat.MustToken(chat.TokenMenu, chat.MenuSearch)},
			{Label: "🎲 Случайный", Token: chat.MustToken(chat.TokenMenu, chat.MenuRandom)},
			{Label: "⚔️ Кроссовер", Token: chat.MustToken(chat.TokenMenu, chat.MenuCrossover)},
		},
	}
}

func fieldPrompt(field string) *chat.Reply {
	return textReply(fieldPrompts[field])
}

// detail renders a character card with a button to its art
func detail(c catalog.Character) *chat.Reply {
	reply := &chat.Reply{
		Text: fmt.Sprintf("🦸 %s\n📚 Издатель: %s\n🌌 Вселенная: %s\n🦸 Тип: %s\n📖 %s\n📜 Пост: %s",
			c.Name, c.Publisher, c.Universe, c.Type, c.Description, c.PostLink),
		Layout: chat.LayoutColumn,
	}
	if c.ArtLink != "" {
		reply.Actions = []chat.Action{{Label: labelArt, URL: c.ArtLink}}
	}
	return reply
}

func choices(text string, layout chat.Layout, cs []selection.Choice) *chat.Reply {
	reply := &chat.Reply{Text: text, Layout: layout}
	for _, c := range cs {
		reply.Actions = append(reply.Actions, chat.Action{Label: c.Label, Token: c.Token})
	}
	return reply
}

// outcomeReply renders a resolver outcome. notFound is the text used when
// nothing matched, which differs between the search and comment paths.
func outcomeReply(o selection.Outcome, notFound string) *chat.Reply {
	switch o.Kind {
	case selection.Detail:
		return detail(*o.Character)
	case selection.Disambiguation:
		return choices(textSeveralFound, chat.LayoutColumn, o.Choices)
	case selection.Crossover:
		return choices(fmt.Sprintf(textCrossover, o.Pair[0].Name, o.Pair[1].Name), chat.LayoutRow, o.Choices)
	case selection.InsufficientCatalog:
		return textReply(textNotEnoughForDuel)
	case selection.VoteAcknowledged:
		return textReply(fmt.Sprintf(textVoted, o.Character.Name))
	}
	return textReply(notFound)
}
