package stub

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg domain.Notification) error {
	fields := []zap.Field{
		zap.String("channel", string(msg.Channel)),
		zap.String("ticket_code", msg.TicketCode),
		zap.String("role", string(msg.Recipient.Role)),
		zap.String("message", msg.Message),
	}
	if msg.Recipient.OfficerID != nil {
		fields = append(fields, zap.String("officer_id", *msg.Recipient.OfficerID))
	}
	if msg.Recipient.Phone != "" {
		fields = append(fields, zap.String("phone", maskPhone(msg.Recipient.Phone)))
	}
	n.logger.Info("notification", fields...)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
