package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

// Notifier delivers notifications.
type Notifier interface {
	SendNotification(ctx context.Context, notification Notification) error
}

type logNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) SendNotification(ctx context.Context, notification Notification) error {
	n.logger.Info().
		Str("kind", string(notification.Kind)).
		Str("recipient_id", notification.RecipientID).
		Str("task_id", notification.TaskID).
		Str("contribution_id", notification.ContributionID).
		Time("at", notification.CreatedAt).
		Msg(notification.Message)
	return nil
}

// inboxNotifier stores notifications in a mongo collection the worker app reads.
type inboxNotifier struct {
	collection *mongo.Collection
}

func NewInboxNotifier(collection *mongo.Collection) Notifier {
	return &inboxNotifier{collection: collection}
}

func (n *inboxNotifier) SendNotification(ctx context.Context, notification Notification) error {
	_, err := n.collection.InsertOne(ctx, notification)
	return err
}

type multiNotifier []Notifier

// Multi sends to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) SendNotification(ctx context.Context, notification Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.SendNotification(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
