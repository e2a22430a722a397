package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandName(t *testing.T) {
	testCases := []struct {
		text string
		want string
	}{
		{"/book_now", "/book_now"},
		{"/book_now@courtbookerbot", "/book_now"},
		{"/schedule extra args", "/schedule"},
		{"/history@bot 2", "/history"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, commandName(tc.text))
	}
}
