package contribution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

type Filter struct {
	Statuses []Status
	TaskID   *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, c *Contribution) error
	Get(ctx context.Context, id uuid.UUID) (Contribution, error)
	FindActive(ctx context.Context, taskID, workerID uuid.UUID) (*Contribution, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, filter Filter) ([]Contribution, error)
	// UpdateStatus moves the contribution to `to` only while its status is one of
	// from. A nil payload leaves the stored payload untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, payload datatypes.JSON) error
}

type contributionRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, c *Contribution) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("worker %s already has an active contribution for task %s", c.WorkerID, c.TaskID)
	}
	return err
}

func (r *contributionRepository) Get(ctx context.Context, id uuid.UUID) (Contribution, error) {
	var c Contribution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Contribution{}, apperr.NotFound("contribution %s not found", id)
	}
	return c, err
}

func (r *contributionRepository) FindActive(ctx context.Context, taskID, workerID uuid.UUID) (*Contribution, error) {
	var contributions []Contribution
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND worker_id = ? AND status IN ?", taskID, workerID, ActiveStatuses).
		Limit(1).
		Find(&contributions).Error
	if err != nil {
		return nil, err
	}
	if len(contributions) == 0 {
		return nil, nil
	}
	return &contributions[0], nil
}

func (r *contributionRepository) ListByWorker(ctx context.Context, workerID uuid.UUID, filter Filter) ([]Contribution, error) {
	var contributions []Contribution
	tx := r.db.WithContext(ctx).Where("worker_id = ?", workerID)

	if len(filter.Statuses) > 0 {
		tx = tx.Where("status IN ?", filter.Statuses)
	}
	if filter.TaskID != nil {
		tx = tx.Where("task_id = ?", *filter.TaskID)
	}

	if err := tx.Order("updated_at DESC").Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *contributionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, payload datatypes.JSON) error {
	updateMap := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if payload != nil {
		updateMap["payload"] = payload
	}

	res := r.db.WithContext(ctx).
		Model(&Contribution{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updateMap)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.Conflict("contribution %s is no longer in %v", id, from)
	}
	return nil
}
