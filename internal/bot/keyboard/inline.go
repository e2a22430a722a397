package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton is a lightweight inline keyboard button definition used by the
// builder before rendering telebot markup.
type InlineButton struct {
	Text   string
	Action string // Identifier the callback router matches on.
	Data   string // Payload encoded into the callback data.
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty inline keyboard builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a new row of buttons.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Build renders telebot markup, using encoder to produce callback data
// strings from each button's action and payload.
func (b *InlineKeyboardBuilder) Build(encoder func(action, data string) string) *telebot.ReplyMarkup {
	if encoder == nil {
		encoder = func(action, data string) string {
			if data != "" {
				return action + CallbackDataSeparator + data
			}
			return action
		}
	}

	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			inlineKeyboard[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: encoder(btn.Action, btn.Data),
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}
}
