package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

type Filter struct {
	Type      *Type
	Language  *string
	Status    *Status
	ProjectID *uuid.UUID
	BatchID   *uuid.UUID
	Limit     int
	Offset    int
}

type Repository interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (Task, error)
	TaskList(ctx context.Context, filter Filter) ([]Task, error)
	TasksByIDs(ctx context.Context, ids []uuid.UUID) ([]Task, error)
	// UpdateStatus moves the task from -> to only if its status still equals from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, assignee *uuid.UUID) (bool, error)
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (Project, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateTask(ctx context.Context, t *Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *taskRepository) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	var t Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Task{}, apperr.NotFound("task %s not found", id)
	}
	return t, err
}

func (r *taskRepository) TaskList(ctx context.Context, filter Filter) ([]Task, error) {
	var tasks []Task
	tx := r.db.WithContext(ctx)

	if filter.Type != nil {
		tx = tx.Where("type = ?", *filter.Type)
	}
	if filter.Language != nil {
		tx = tx.Where("language = ?", *filter.Language)
	}
	if filter.Status != nil {
		tx = tx.Where("status = ?", *filter.Status)
	}
	if filter.ProjectID != nil {
		tx = tx.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.BatchID != nil {
		tx = tx.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}

	if err := tx.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) TasksByIDs(ctx context.Context, ids []uuid.UUID) ([]Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []Task
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, assignee *uuid.UUID) (bool, error) {
	updateMap := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if assignee != nil {
		updateMap["assignee_id"] = *assignee
	}

	res := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updateMap)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *taskRepository) CreateProject(ctx context.Context, p *Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *taskRepository) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	var p Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Project{}, apperr.NotFound("project %s not found", id)
	}
	return p, err
}
