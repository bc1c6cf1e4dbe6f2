package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/contribution"
	"github.com/lingocrowd/contribution_control/internal/events"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/task"
	"github.com/lingocrowd/contribution_control/internal/validation"
)

type ReviewInput struct {
	ContributionID uuid.UUID
	ReviewerID     uuid.UUID
	Approved       bool
	Comment        string
}

// Outcome is the state of the three records after a review.
type Outcome struct {
	Contribution contribution.Contribution `json:"contribution"`
	Task         task.Task                 `json:"task"`
	Validation   validation.Validation     `json:"validation"`
}

// Coordinator owns every status change of tasks and contributions. Each call
// is one transaction over the task, contribution and validation stores.
type Coordinator interface {
	Submit(ctx context.Context, taskID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error)
	Approve(ctx context.Context, contributionID, reviewerID uuid.UUID, comment string) (Outcome, error)
	Reject(ctx context.Context, contributionID, reviewerID uuid.UUID, comment string) (Outcome, error)
	Review(ctx context.Context, input ReviewInput) (Outcome, error)
	Resubmit(ctx context.Context, contributionID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error)
}

type coordinator struct {
	store      store.Store
	dispatcher *events.Dispatcher
	logger     zerolog.Logger
}

func NewCoordinator(st store.Store, dispatcher *events.Dispatcher, logger zerolog.Logger) Coordinator {
	return &coordinator{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ContributionRejection maps the task's rejection state onto the contribution.
func ContributionRejection(t task.Type) contribution.Status {
	if task.RejectionKindFor(t) == task.StatusRejectedTranscript {
		return contribution.StatusRejectedTranscript
	}
	return contribution.StatusRejected
}

func (c *coordinator) tasks(r store.Repositories) task.Service {
	return task.NewTaskService(r.Tasks, c.logger)
}

func (c *coordinator) Submit(ctx context.Context, taskID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error) {
	if workerID == uuid.Nil {
		return contribution.Contribution{}, apperr.Schema("missing required field: worker_id")
	}

	var created contribution.Contribution
	var assigned task.Task
	err := c.store.Transaction(ctx, func(r store.Repositories) error {
		tasks := c.tasks(r)

		t, err := tasks.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		data, err := contribution.ValidatePayload(t.Type, payload)
		if err != nil {
			return err
		}

		active, err := r.Contributions.FindActive(ctx, t.ID, workerID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperr.Conflict("worker %s already has an active contribution %s for task %s", workerID, active.ID, t.ID)
		}

		// compare-and-swap on pending: the loser of a race gets Conflict
		assigned, err = tasks.Assign(ctx, t.ID, workerID)
		if err != nil {
			return err
		}

		created = contribution.Contribution{
			ID:        uuid.New(),
			TaskID:    t.ID,
			WorkerID:  workerID,
			Payload:   data,
			Status:    contribution.StatusPendingValidation,
			CreatedAt: assigned.UpdatedAt,
			UpdatedAt: assigned.UpdatedAt,
		}
		return r.Contributions.Create(ctx, &created)
	})
	if err != nil {
		c.logFailure(err, "submit", taskID, workerID)
		return contribution.Contribution{}, err
	}

	c.logger.Info().
		Str("task_id", taskID.String()).
		Str("contribution_id", created.ID.String()).
		Str("worker_id", workerID.String()).
		Msg("contribution submitted")
	c.dispatcher.Dispatch(events.LifecycleEvent{
		Kind:           events.KindSubmitted,
		TaskID:         taskID.String(),
		ContributionID: created.ID.String(),
		WorkerID:       workerID.String(),
		TaskStatus:     string(assigned.Status),
		Status:         string(created.Status),
	})
	return created, nil
}

func (c *coordinator) Review(ctx context.Context, input ReviewInput) (Outcome, error) {
	if input.Approved {
		return c.Approve(ctx, input.ContributionID, input.ReviewerID, input.Comment)
	}
	return c.Reject(ctx, input.ContributionID, input.ReviewerID, input.Comment)
}

func (c *coordinator) Approve(ctx context.Context, contributionID, reviewerID uuid.UUID, comment string) (Outcome, error) {
	return c.decide(ctx, contributionID, reviewerID, true, comment)
}

func (c *coordinator) Reject(ctx context.Context, contributionID, reviewerID uuid.UUID, comment string) (Outcome, error) {
	if strings.TrimSpace(comment) == "" {
		return Outcome{}, apperr.Schema("missing required field: comment")
	}
	return c.decide(ctx, contributionID, reviewerID, false, comment)
}

func (c *coordinator) decide(ctx context.Context, contributionID, reviewerID uuid.UUID, approved bool, comment string) (Outcome, error) {
	var out Outcome
	err := c.store.Transaction(ctx, func(r store.Repositories) error {
		tasks := c.tasks(r)

		contrib, err := r.Contributions.Get(ctx, contributionID)
		if err != nil {
			return err
		}
		if contrib.Status != contribution.StatusPendingValidation {
			return apperr.Conflict("contribution %s is %s, not %s", contrib.ID, contrib.Status, contribution.StatusPendingValidation)
		}
		t, err := tasks.GetTask(ctx, contrib.TaskID)
		if err != nil {
			return err
		}

		v, err := r.Validations.Record(ctx, contrib.ID, reviewerID, approved, comment)
		if err != nil {
			return err
		}

		contribTo, taskTo := contribution.StatusFinalized, task.StatusCompleted
		if !approved {
			contribTo, taskTo = ContributionRejection(t.Type), task.RejectionKindFor(t.Type)
		}

		if err := r.Contributions.UpdateStatus(ctx, contrib.ID, []contribution.Status{contribution.StatusPendingValidation}, contribTo, nil); err != nil {
			return err
		}
		t, err = tasks.SetStatus(ctx, t.ID, taskTo)
		if err != nil {
			return err
		}

		contrib.Status = contribTo
		out = Outcome{Contribution: contrib, Task: t, Validation: v}
		return nil
	})
	action := "reject"
	kind := events.KindRejected
	if approved {
		action, kind = "approve", events.KindApproved
	}
	if err != nil {
		c.logFailure(err, action, contributionID, reviewerID)
		return Outcome{}, err
	}

	c.logger.Info().
		Str("contribution_id", contributionID.String()).
		Str("reviewer_id", reviewerID.String()).
		Str("status", string(out.Contribution.Status)).
		Msg("contribution reviewed")
	c.dispatcher.Dispatch(events.LifecycleEvent{
		Kind:           kind,
		TaskID:         out.Task.ID.String(),
		ContributionID: out.Contribution.ID.String(),
		WorkerID:       out.Contribution.WorkerID.String(),
		ReviewerID:     reviewerID.String(),
		TaskStatus:     string(out.Task.Status),
		Status:         string(out.Contribution.Status),
		Comment:        out.Validation.Comment,
	})
	return out, nil
}

func (c *coordinator) Resubmit(ctx context.Context, contributionID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error) {
	var updated contribution.Contribution
	var t task.Task
	err := c.store.Transaction(ctx, func(r store.Repositories) error {
		tasks := c.tasks(r)

		contrib, err := r.Contributions.Get(ctx, contributionID)
		if err != nil {
			return err
		}
		if contrib.WorkerID != workerID {
			return apperr.NotFound("contribution %s not found", contributionID)
		}
		if !contrib.Status.IsRejected() {
			return apperr.Conflict("contribution %s is %s and cannot be corrected", contrib.ID, contrib.Status)
		}

		t, err = tasks.GetTask(ctx, contrib.TaskID)
		if err != nil {
			return err
		}
		data, err := contribution.ValidatePayload(t.Type, payload)
		if err != nil {
			return err
		}

		if err := r.Contributions.UpdateStatus(ctx, contrib.ID, contribution.RejectedStatuses, contribution.StatusPendingValidation, data); err != nil {
			return err
		}
		t, err = tasks.SetStatus(ctx, t.ID, task.StatusPendingValidation)
		if err != nil {
			return err
		}

		updated, err = r.Contributions.Get(ctx, contrib.ID)
		return err
	})
	if err != nil {
		c.logFailure(err, "resubmit", contributionID, workerID)
		return contribution.Contribution{}, err
	}

	c.logger.Info().
		Str("contribution_id", contributionID.String()).
		Str("worker_id", workerID.String()).
		Msg("contribution resubmitted")
	c.dispatcher.Dispatch(events.LifecycleEvent{
		Kind:           events.KindResubmitted,
		TaskID:         t.ID.String(),
		ContributionID: updated.ID.String(),
		WorkerID:       workerID.String(),
		TaskStatus:     string(t.Status),
		Status:         string(updated.Status),
	})
	return updated, nil
}

func (c *coordinator) logFailure(err error, action string, subject, actor uuid.UUID) {
	evt := c.logger.Warn()
	if apperr.KindOf(err) == nil {
		evt = c.logger.Error()
	}
	evt.Err(err).
		Str("action", action).
		Str("subject_id", subject.String()).
		Str("actor_id", actor.String()).
		Msg("lifecycle action failed")
}
