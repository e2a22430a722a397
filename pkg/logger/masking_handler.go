package logger

import (
	"context"
	"log/slog"
	"strings"
)

// Attribute keys containing any of these fragments are masked. The bot logs
// around club credentials, the Telegram token, and card details; none of
// them may reach a log file or Sentry.
var sensitiveFragments = []string{
	"password",
	"token",
	"secret",
	"card",
	"cvc",
	"credential",
	"authorization",
}

// MaskingHandler replaces sensitive attribute values with "***" before
// delegating to the wrapped handler.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// WithAttrs masks eagerly so pre-bound attributes are covered too.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = maskAttr(attr)
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})

	return h.next.Handle(ctx, masked)
}

func maskAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(attr.Key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(key, fragment) {
			attr.Value = slog.StringValue("***")
			break
		}
	}
	return attr
}
