package validation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

type Repository interface {
	Record(ctx context.Context, contributionID, reviewerID uuid.UUID, isApproved bool, comment string) (Validation, error)
	LatestFor(ctx context.Context, contributionID uuid.UUID) (*Validation, error)
	LatestForMany(ctx context.Context, contributionIDs []uuid.UUID) (map[uuid.UUID]Validation, error)
	ListFor(ctx context.Context, contributionID uuid.UUID) ([]Validation, error)
}

type validationRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &validationRepository{db: db}
}

func (r *validationRepository) Record(ctx context.Context, contributionID, reviewerID uuid.UUID, isApproved bool, comment string) (Validation, error) {
	comment = strings.TrimSpace(comment)
	if !isApproved && comment == "" {
		return Validation{}, apperr.Schema("missing required field: comment")
	}
	if reviewerID == uuid.Nil {
		return Validation{}, apperr.Schema("missing required field: reviewer_id")
	}

	v := Validation{
		ID:             uuid.New(),
		ContributionID: contributionID,
		ReviewerID:     reviewerID,
		IsApproved:     isApproved,
		Comment:        comment,
		CreatedAt:      time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return Validation{}, err
	}
	return v, nil
}

func (r *validationRepository) LatestFor(ctx context.Context, contributionID uuid.UUID) (*Validation, error) {
	var validations []Validation
	err := r.db.WithContext(ctx).
		Where("contribution_id = ?", contributionID).
		Order("created_at DESC").
		Limit(1).
		Find(&validations).Error
	if err != nil {
		return nil, err
	}
	if len(validations) == 0 {
		return nil, nil
	}
	return &validations[0], nil
}

func (r *validationRepository) LatestForMany(ctx context.Context, contributionIDs []uuid.UUID) (map[uuid.UUID]Validation, error) {
	result := make(map[uuid.UUID]Validation, len(contributionIDs))
	if len(contributionIDs) == 0 {
		return result, nil
	}

	var validations []Validation
	err := r.db.WithContext(ctx).
		Where("contribution_id IN ?", contributionIDs).
		Order("created_at ASC").
		Find(&validations).Error
	if err != nil {
		return nil, err
	}
	// ascending order: the last write per contribution wins
	for _, v := range validations {
		result[v.ContributionID] = v
	}
	return result, nil
}

func (r *validationRepository) ListFor(ctx context.Context, contributionID uuid.UUID) ([]Validation, error) {
	var validations []Validation
	err := r.db.WithContext(ctx).
		Where("contribution_id = ?", contributionID).
		Order("created_at ASC").
		Find(&validations).Error
	if err != nil {
		return nil, err
	}
	return validations, nil
}
