package notification

import (
	"fmt"
	"time"

	"github.com/lingocrowd/contribution_control/internal/events"
)

// Notification is a message for one worker about their contribution.
type Notification struct {
	Kind           events.Kind `json:"kind" bson:"kind"`
	RecipientID    string      `json:"recipient_id" bson:"recipient_id"`
	TaskID         string      `json:"task_id" bson:"task_id"`
	ContributionID string      `json:"contribution_id" bson:"contribution_id"`
	Message        string      `json:"message" bson:"message"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
}

// fromEvent builds the worker notification for a review outcome. ok is false
// for events nobody needs to hear about.
func fromEvent(event events.LifecycleEvent) (Notification, bool) {
	var message string
	switch event.Kind {
	case events.KindApproved:
		message = fmt.Sprintf("Your contribution to task %s was approved.", event.TaskID)
	case events.KindRejected:
		message = fmt.Sprintf("Your contribution to task %s needs corrections.", event.TaskID)
		if event.Comment != "" {
			message += " Reviewer: " + event.Comment
		}
	default:
		return Notification{}, false
	}

	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Notification{
		Kind:           event.Kind,
		RecipientID:    event.WorkerID,
		TaskID:         event.TaskID,
		ContributionID: event.ContributionID,
		Message:        message,
		CreatedAt:      createdAt,
	}, true
}
