package service

import (
	"context"
	"errors"

	"schoolhub/internal/model"
	"schoolhub/internal/repository"

	"github.com/google/uuid"
)

type CreateSchoolRequest struct {
	Name          string `json:"name" binding:"required"`
	SchoolGroupID string `json:"school_group_id" binding:"required"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
}

type UpdateSchoolRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type CreateSchoolGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type SchoolService interface {
	CreateSchool(ctx context.Context, req CreateSchoolRequest) (*model.School, error)
	GetSchool(ctx context.Context, id string) (*model.School, error)
	ListSchools(ctx context.Context, groupID string) ([]model.School, error)
	UpdateSchool(ctx context.Context, id string, req UpdateSchoolRequest) (*model.School, error)
	CreateGroup(ctx context.Context, req CreateSchoolGroupRequest) (*model.SchoolGroup, error)
	ListGroups(ctx context.Context) ([]model.SchoolGroup, error)
}

type schoolService struct {
	repo repository.SchoolRepository
}

func NewSchoolService(repo repository.SchoolRepository) SchoolService {
	return &schoolService{repo: repo}
}

func (s *schoolService) CreateSchool(ctx context.Context, req CreateSchoolRequest) (*model.School, error) {
	groupID, err := uuid.Parse(req.SchoolGroupID)
	if err != nil {
		return nil, errors.New("invalid school group id")
	}

	school := &model.School{
		SchoolGroupID: groupID,
		Name:          req.Name,
		Address:       req.Address,
		Phone:         req.Phone,
	}
	if err := s.repo.CreateSchool(ctx, school); err != nil {
		return nil, err
	}
	return school, nil
}

func (s *schoolService) GetSchool(ctx context.Context, id string) (*model.School, error) {
	school, err := s.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return nil, errors.New("school not found")
	}
	return school, nil
}

func (s *schoolService) ListSchools(ctx context.Context, groupID string) ([]model.School, error) {
	return s.repo.ListSchools(ctx, groupID)
}

func (s *schoolService) UpdateSchool(ctx context.Context, id string, req UpdateSchoolRequest) (*model.School, error) {
	school, err := s.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return nil, errors.New("school not found")
	}

	if req.Name != "" {
		school.Name = req.Name
	}
	if req.Address != "" {
		school.Address = req.Address
	}
	if req.Phone != "" {
		school.Phone = req.Phone
	}

	if err := s.repo.UpdateSchool(ctx, school); err != nil {
		return nil, err
	}
	return school, nil
}

func (s *schoolService) CreateGroup(ctx context.Context, req CreateSchoolGroupRequest) (*model.SchoolGroup, error) {
	group := &model.SchoolGroup{Name: req.Name}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *schoolService) ListGroups(ctx context.Context) ([]model.SchoolGroup, error) {
	return s.repo.ListGroups(ctx)
}
