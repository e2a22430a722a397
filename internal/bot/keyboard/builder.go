package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"
)

// Callback actions understood by the bot's callback router.
const (
	ActionBookRun     = "bookrun"
	ActionHistoryPage = "history"
)

// Builder creates the bot's keyboards.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// MainMenu builds the persistent reply keyboard with the common commands.
func (b *Builder) MainMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	markup.Reply(
		markup.Row(markup.Text("/schedule"), markup.Text("/bookings")),
		markup.Row(markup.Text("/status"), markup.Text("/history")),
		markup.Row(markup.Text("/book_now"), markup.Text("/help")),
	)

	return markup
}

// ConfirmBookRun builds the confirmation prompt for an immediate booking run.
func (b *Builder) ConfirmBookRun() *telebot.ReplyMarkup {
	return b.inline(func(kb *InlineKeyboardBuilder) {
		kb.AddRow(
			InlineButton{Text: "Run now ✅", Action: ActionBookRun, Data: "confirm"},
			InlineButton{Text: "Cancel ❌", Action: ActionBookRun, Data: "cancel"},
		)
	})
}

// HistoryPager builds the prev/next row below a page of booking history.
func (b *Builder) HistoryPager(page, totalPages int) *telebot.ReplyMarkup {
	return b.inline(func(kb *InlineKeyboardBuilder) {
		buttons := PaginationButtons(ActionHistoryPage, page, totalPages)
		kb.AddRow(buttons...)
	})
}

func (b *Builder) inline(fill func(kb *InlineKeyboardBuilder)) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	fill(kb)

	return kb.Build(func(action, data string) string {
		encoded, err := EncodeCallback(action, data)
		if err != nil {
			b.log.Error("failed to encode callback data",
				slog.String("action", action), slog.Any("error", err))
			return action
		}
		return encoded
	})
}

// PaginationButtons returns up to three inline buttons (prev, current page,
// next) sharing an action prefix.
func PaginationButtons(action string, page, totalPages int) []InlineButton {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	buttons := make([]InlineButton, 0, 3)

	if page > 1 {
		buttons = append(buttons, InlineButton{
			Text:   "◀️ Prev",
			Action: action,
			Data:   strconv.Itoa(page - 1),
		})
	}

	buttons = append(buttons, InlineButton{
		Text:   "Page " + strconv.Itoa(page) + "/" + strconv.Itoa(totalPages),
		Action: action,
		Data:   strconv.Itoa(page),
	})

	if page < totalPages {
		buttons = append(buttons, InlineButton{
			Text:   "Next ▶️",
			Action: action,
			Data:   strconv.Itoa(page + 1),
		})
	}

	return buttons
}
