package keyboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCallback(t *testing.T) {
	encoded, err := EncodeCallback("history", "3")
	require.NoError(t, err)
	require.Equal(t, "history:3", encoded)

	action, data, err := DecodeCallback(encoded)
	require.NoError(t, err)
	require.Equal(t, "history", action)
	require.Equal(t, "3", data)
}

func TestEncodeCallback_NoPayload(t *testing.T) {
	encoded, err := EncodeCallback("bookrun", "")
	require.NoError(t, err)
	require.Equal(t, "bookrun", encoded)

	action, data, err := DecodeCallback(encoded)
	require.NoError(t, err)
	require.Equal(t, "bookrun", action)
	require.Empty(t, data)
}

func TestEncodeCallback_TooLong(t *testing.T) {
	_, err := EncodeCallback("action", strings.Repeat("x", CallbackDataLimitBytes))
	require.Error(t, err)
}

func TestDecodeCallback_Empty(t *testing.T) {
	_, _, err := DecodeCallback("")
	require.Error(t, err)
}

func TestDecodeCallback_PayloadKeepsSeparators(t *testing.T) {
	action, data, err := DecodeCallback("history:3:extra")
	require.NoError(t, err)
	require.Equal(t, "history", action)
	require.Equal(t, "3:extra", data)
}

func TestConfirmBookRun(t *testing.T) {
	markup := NewBuilder(nil).ConfirmBookRun()

	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Equal(t, "bookrun:confirm", markup.InlineKeyboard[0][0].Data)
	require.Equal(t, "bookrun:cancel", markup.InlineKeyboard[0][1].Data)
}

func TestPaginationButtons(t *testing.T) {
	testCases := []struct {
		name  string
		page  int
		total int
		data  []string
	}{
		{name: "first page", page: 1, total: 3, data: []string{"1", "2"}},
		{name: "middle page", page: 2, total: 3, data: []string{"1", "2", "3"}},
		{name: "last page", page: 3, total: 3, data: []string{"2", "3"}},
		{name: "single page", page: 1, total: 1, data: []string{"1"}},
		{name: "page clamped", page: 9, total: 2, data: []string{"1", "2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buttons := PaginationButtons("history", tc.page, tc.total)

			var data []string
			for _, btn := range buttons {
				data = append(data, btn.Data)
			}
			require.Equal(t, tc.data, data)
		})
	}
}

func TestHistoryPager(t *testing.T) {
	markup := NewBuilder(nil).HistoryPager(2, 3)

	require.Len(t, markup.InlineKeyboard, 1)
	require.Equal(t, "history:1", markup.InlineKeyboard[0][0].Data)
	require.Equal(t, "history:3", markup.InlineKeyboard[0][2].Data)
}

func TestMainMenu(t *testing.T) {
	markup := NewBuilder(nil).MainMenu()

	require.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 3)
	require.Equal(t, "/schedule", markup.ReplyKeyboard[0][0].Text)
}
