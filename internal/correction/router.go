package correction

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/contribution"
	"github.com/lingocrowd/contribution_control/internal/lifecycle"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/task"
	"github.com/lingocrowd/contribution_control/internal/validation"
)

type Filters struct {
	Language       string
	SourceLanguage string
}

// View is one rejected contribution awaiting correction by its worker.
type View struct {
	Contribution   contribution.Contribution `json:"contribution"`
	Task           task.Task                 `json:"task"`
	LatestFeedback *validation.Validation    `json:"latest_feedback"`
}

// Resubmission is what a worker needs to correct a rejected contribution.
type Resubmission struct {
	Contribution contribution.Contribution `json:"contribution"`
	Task         task.Task                 `json:"task"`
	Feedback     *validation.Validation    `json:"feedback"`
}

type Router interface {
	ListCorrections(ctx context.Context, workerID uuid.UUID, filters Filters) ([]View, error)
	LoadForResubmission(ctx context.Context, contributionID, workerID uuid.UUID) (Resubmission, error)
	Resubmit(ctx context.Context, contributionID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error)
}

type router struct {
	store       store.Store
	coordinator lifecycle.Coordinator
	logger      zerolog.Logger
}

func NewRouter(st store.Store, coordinator lifecycle.Coordinator, logger zerolog.Logger) Router {
	return &router{
		store:       st,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (r *router) ListCorrections(ctx context.Context, workerID uuid.UUID, filters Filters) ([]View, error) {
	repos := r.store.Repositories()

	rejected, err := repos.Contributions.ListByWorker(ctx, workerID, contribution.Filter{
		Statuses: contribution.RejectedStatuses,
	})
	if err != nil {
		return nil, err
	}
	if len(rejected) == 0 {
		return []View{}, nil
	}

	taskIDs := make([]uuid.UUID, 0, len(rejected))
	contributionIDs := make([]uuid.UUID, 0, len(rejected))
	for _, c := range rejected {
		taskIDs = append(taskIDs, c.TaskID)
		contributionIDs = append(contributionIDs, c.ID)
	}
	tasks, err := repos.Tasks.TasksByIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	feedback, err := repos.Validations.LatestForMany(ctx, contributionIDs)
	if err != nil {
		return nil, err
	}

	language := strings.TrimSpace(filters.Language)
	sourceLanguage := strings.TrimSpace(filters.SourceLanguage)

	views := make([]View, 0, len(rejected))
	for _, c := range rejected {
		t, ok := byID[c.TaskID]
		if !ok {
			r.logger.Warn().
				Str("contribution_id", c.ID.String()).
				Str("task_id", c.TaskID.String()).
				Msg("rejected contribution without task")
			continue
		}
		if language != "" && !strings.EqualFold(t.Language, language) {
			continue
		}
		if sourceLanguage != "" && !strings.EqualFold(taskSourceLanguage(t), sourceLanguage) {
			continue
		}

		view := View{Contribution: c, Task: t}
		if v, ok := feedback[c.ID]; ok {
			view.LatestFeedback = &v
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *router) LoadForResubmission(ctx context.Context, contributionID, workerID uuid.UUID) (Resubmission, error) {
	repos := r.store.Repositories()

	c, err := repos.Contributions.Get(ctx, contributionID)
	if err != nil {
		return Resubmission{}, err
	}
	if c.WorkerID != workerID || !c.Status.IsRejected() {
		return Resubmission{}, apperr.NotFound("no correction pending for contribution %s", contributionID)
	}

	t, err := repos.Tasks.GetTask(ctx, c.TaskID)
	if err != nil {
		return Resubmission{}, err
	}
	latest, err := repos.Validations.LatestFor(ctx, c.ID)
	if err != nil {
		return Resubmission{}, err
	}
	return Resubmission{Contribution: c, Task: t, Feedback: latest}, nil
}

func (r *router) Resubmit(ctx context.Context, contributionID, workerID uuid.UUID, payload []byte) (contribution.Contribution, error) {
	return r.coordinator.Resubmit(ctx, contributionID, workerID, payload)
}

func taskSourceLanguage(t task.Task) string {
	c, err := t.Payload()
	if err != nil {
		return ""
	}
	return task.SourceLanguage(c)
}
