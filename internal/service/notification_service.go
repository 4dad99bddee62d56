package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
)

const (
	defaultNotificationQueue   = 256
	defaultNotificationTimeout = 10 * time.Second
)

// NotificationService turns published intents into deliveries. Handlers only
// enqueue; Run delivers, so a slow gateway never holds up a transition.
type NotificationService struct {
	dispatcher events.Dispatcher
	officers   Notifier
	citizens   Notifier
	logger     *zap.Logger
	timeout    time.Duration

	queue    chan domain.Notification
	register sync.Once
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher      events.Dispatcher
	OfficerNotifier Notifier
	CitizenNotifier Notifier
	Logger          *zap.Logger
	QueueSize       int
	DeliveryTimeout time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	size := deps.QueueSize
	if size <= 0 {
		size = defaultNotificationQueue
	}
	timeout := deps.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		officers:   deps.OfficerNotifier,
		citizens:   deps.CitizenNotifier,
		logger:     logger,
		timeout:    timeout,
		queue:      make(chan domain.Notification, size),
	}
}

// RegisterHandlers subscribes to events. Safe to call more than once.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.register.Do(func() {
		n.dispatcher.Subscribe(events.EventNotifyOfficer, n.handleNotifyOfficer)
		n.dispatcher.Subscribe(events.EventNotifyCitizen, n.handleNotifyCitizen)
		n.dispatcher.Subscribe(events.EventScheduleVerificationCall, n.handleVerificationCall)
	})
}

func (n *NotificationService) handleNotifyOfficer(_ context.Context, event events.Event) error {
	n.enqueue(toNotification(domain.ChannelOfficerFeed, event.Intent))
	return nil
}

func (n *NotificationService) handleNotifyCitizen(_ context.Context, event events.Event) error {
	n.enqueue(toNotification(domain.ChannelSMS, event.Intent))
	return nil
}

func (n *NotificationService) handleVerificationCall(_ context.Context, event events.Event) error {
	n.enqueue(toNotification(domain.ChannelVoice, event.Intent))
	return nil
}

func (n *NotificationService) enqueue(msg domain.Notification) {
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("notification queue full, dropping",
			zap.String("channel", string(msg.Channel)),
			zap.String("ticket_code", msg.TicketCode))
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains what
// is already queued.
func (n *NotificationService) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-n.queue:
			n.Deliver(ctx, msg)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

func (n *NotificationService) drain() {
	ctx := context.Background()
	for {
		select {
		case msg := <-n.queue:
			n.Deliver(ctx, msg)
		default:
			return
		}
	}
}

// Deliver sends one notification through the notifier for its channel.
// Failures are logged and swallowed.
func (n *NotificationService) Deliver(ctx context.Context, msg domain.Notification) {
	notifier := n.citizens
	if msg.Channel == domain.ChannelOfficerFeed {
		notifier = n.officers
	}
	if notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := notifier.Notify(ctx, msg); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("channel", string(msg.Channel)),
			zap.String("ticket_code", msg.TicketCode),
			zap.Error(err))
	}
}

// Pending reports how many notifications are waiting.
func (n *NotificationService) Pending() int {
	return len(n.queue)
}

func toNotification(channel domain.Channel, intent domain.Intent) domain.Notification {
	msg := domain.Notification{
		Channel:    channel,
		TicketCode: intent.TicketCode,
		Message:    intent.Message,
		Data:       intent.Data,
	}
	if intent.Recipient != nil {
		msg.Recipient = *intent.Recipient
	}
	return msg
}
