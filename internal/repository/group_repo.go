package repository

import (
	"context"

	"github.com/coachhub/scheduler/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Group, error)
	UpdateMembers(ctx context.Context, tx *gorm.DB, id uuid.UUID, members []uuid.UUID) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.GroupStatus) error
	GetDB() *gorm.DB
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByIDForUpdate locks the group row so membership changes for one group
// serialize; the member list lives on the row itself.
func (r *groupRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) UpdateMembers(ctx context.Context, tx *gorm.DB, id uuid.UUID, members []uuid.UUID) error {
	return tx.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ?", id).
		Update("members", datatypes.NewJSONSlice(members)).Error
}

func (r *groupRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.GroupStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ?", id).
		Update("status", status).Error
}
