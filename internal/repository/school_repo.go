package repository

import (
	"context"

	"schoolhub/internal/model"

	"gorm.io/gorm"
)

// SchoolRepository defines data access for the school/group directory.
type SchoolRepository interface {
	CreateSchool(ctx context.Context, school *model.School) error
	GetSchoolByID(ctx context.Context, id string) (*model.School, error)
	ListSchools(ctx context.Context, groupID string) ([]model.School, error)
	UpdateSchool(ctx context.Context, school *model.School) error
	CreateGroup(ctx context.Context, group *model.SchoolGroup) error
	ListGroups(ctx context.Context) ([]model.SchoolGroup, error)
}

type schoolRepository struct {
	db *gorm.DB
}

func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) CreateSchool(ctx context.Context, school *model.School) error {
	return GetDB(ctx, r.db).Create(school).Error
}

func (r *schoolRepository) GetSchoolByID(ctx context.Context, id string) (*model.School, error) {
	var school model.School
	if err := GetDB(ctx, r.db).Preload("SchoolGroup").First(&school, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *schoolRepository) ListSchools(ctx context.Context, groupID string) ([]model.School, error) {
	var schools []model.School
	query := GetDB(ctx, r.db)
	if groupID != "" {
		query = query.Where("school_group_id = ?", groupID)
	}
	if err := query.Order("name").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}

func (r *schoolRepository) UpdateSchool(ctx context.Context, school *model.School) error {
	return GetDB(ctx, r.db).Save(school).Error
}

func (r *schoolRepository) CreateGroup(ctx context.Context, group *model.SchoolGroup) error {
	return GetDB(ctx, r.db).Create(group).Error
}

func (r *schoolRepository) ListGroups(ctx context.Context) ([]model.SchoolGroup, error) {
	var groups []model.SchoolGroup
	if err := GetDB(ctx, r.db).Order("name").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
