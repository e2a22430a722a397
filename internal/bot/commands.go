package bot

// Command constants for Telegram bot commands.
const (
	CommandStart    = "/start"
	CommandStop     = "/stop"
	CommandBookNow  = "/book_now"
	CommandSchedule = "/schedule"
	CommandBookings = "/bookings"
	CommandStatus   = "/status"
	CommandHistory  = "/history"
	CommandHelp     = "/help"
)
