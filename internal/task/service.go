package task

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

type CreateTaskInput struct {
	Type      Type
	Language  string
	Priority  Priority
	Content   Content
	CreatorID uuid.UUID
	ProjectID *uuid.UUID
	BatchID   *uuid.UUID
}

type CreateProjectInput struct {
	Name            string
	Type            Type
	SourceLanguage  string
	TargetLanguages []string
	OwnerID         uuid.UUID
}

// Service is the task store. Status changes go through SetStatus and Assign,
// which only the lifecycle coordinator calls.
type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	TaskList(ctx context.Context, filter Filter) ([]Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, to Status) (Task, error)
	Assign(ctx context.Context, id, workerID uuid.UUID) (Task, error)
	CreateProject(ctx context.Context, input CreateProjectInput) (Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (Project, error)
}

type taskService struct {
	repo   Repository
	logger zerolog.Logger
}

func NewTaskService(repo Repository, logger zerolog.Logger) Service {
	return &taskService{
		repo:   repo,
		logger: logger,
	}
}

// NewTask validates input and builds a pending task without persisting it.
func NewTask(input CreateTaskInput) (Task, error) {
	if !input.Type.Valid() {
		return Task{}, apperr.Schema("unknown task type: %q", input.Type)
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		return Task{}, apperr.Schema("missing required field: language")
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, apperr.Schema("invalid priority: %q", priority)
	}
	if input.CreatorID == uuid.Nil {
		return Task{}, apperr.Schema("missing required field: created_by")
	}
	if err := ValidateContent(input.Type, input.Content); err != nil {
		return Task{}, err
	}
	content, err := encodeContent(input.Content)
	if err != nil {
		return Task{}, apperr.Schema("encode content: %v", err)
	}

	now := time.Now()
	return Task{
		ID:        uuid.New(),
		Type:      input.Type,
		Language:  language,
		Priority:  priority,
		Content:   content,
		Status:    StatusPending,
		CreatedBy: input.CreatorID,
		ProjectID: input.ProjectID,
		BatchID:   input.BatchID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *taskService) CreateTask(ctx context.Context, input CreateTaskInput) (Task, error) {
	t, err := NewTask(input)
	if err != nil {
		return Task{}, err
	}
	if input.ProjectID != nil {
		if _, err := s.repo.GetProject(ctx, *input.ProjectID); err != nil {
			return Task{}, err
		}
	}

	if err := s.repo.CreateTask(ctx, &t); err != nil {
		s.logger.Error().
			Err(err).
			Str("type", string(t.Type)).
			Msg("failed to insert task")
		return Task{}, err
	}
	s.logger.Debug().
		Str("task_id", t.ID.String()).
		Str("type", string(t.Type)).
		Msg("created task")
	return t, nil
}

func (s *taskService) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *taskService) TaskList(ctx context.Context, filter Filter) ([]Task, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, apperr.Schema("unknown task type: %q", *filter.Type)
	}
	if filter.Status != nil {
		if _, ok := allowedTransitions[*filter.Status]; !ok {
			return nil, apperr.Schema("unknown status: %q", *filter.Status)
		}
	}
	return s.repo.TaskList(ctx, filter)
}

func (s *taskService) SetStatus(ctx context.Context, id uuid.UUID, to Status) (Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err := ValidateTransition(t.Type, t.Status, to); err != nil {
		return Task{}, err
	}
	return s.swap(ctx, t, to, nil)
}

func (s *taskService) Assign(ctx context.Context, id, workerID uuid.UUID) (Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status != StatusPending {
		return Task{}, apperr.Conflict("task %s is %s, not pending", id, t.Status)
	}
	return s.swap(ctx, t, StatusAssigned, &workerID)
}

func (s *taskService) swap(ctx context.Context, t Task, to Status, assignee *uuid.UUID) (Task, error) {
	ok, err := s.repo.UpdateStatus(ctx, t.ID, t.Status, to, assignee)
	if err != nil {
		return Task{}, err
	}
	if !ok {
		// someone else moved the task first
		return Task{}, apperr.Conflict("task %s changed status concurrently", t.ID)
	}
	s.logger.Debug().
		Str("task_id", t.ID.String()).
		Str("from", string(t.Status)).
		Str("to", string(to)).
		Msg("task status changed")

	t.Status = to
	if assignee != nil {
		t.AssigneeID = assignee
	}
	return t, nil
}

func (s *taskService) CreateProject(ctx context.Context, input CreateProjectInput) (Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Project{}, apperr.Schema("missing required field: name")
	}
	if !input.Type.Valid() {
		return Project{}, apperr.Schema("unknown task type: %q", input.Type)
	}
	if input.OwnerID == uuid.Nil {
		return Project{}, apperr.Schema("missing required field: owner_id")
	}

	targets := dedupe(input.TargetLanguages)
	encoded, err := json.Marshal(targets)
	if err != nil {
		return Project{}, err
	}

	now := time.Now()
	p := Project{
		ID:              uuid.New(),
		Name:            name,
		Type:            input.Type,
		SourceLanguage:  strings.TrimSpace(input.SourceLanguage),
		TargetLanguages: datatypes.JSON(encoded),
		OwnerID:         input.OwnerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateProject(ctx, &p); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert project")
		return Project{}, err
	}
	return p, nil
}

func (s *taskService) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// target languages are a set
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
