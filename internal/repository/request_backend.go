package repository

import (
	"context"
	"fmt"

	"schoolhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scope is the visibility filter applied when listing requests: group-level
// roles see the whole group, school-level roles only their school.
type Scope struct {
	SchoolGroupID uuid.UUID
	SchoolID      *uuid.UUID // nil for group-wide visibility
	Status        string     // optional status filter
}

// RequestBackend is the persistence contract for the request lifecycle. The
// coordinator is the only caller; no other component touches the database for
// requests.
type RequestBackend interface {
	ListRequests(ctx context.Context, scope Scope) ([]model.ResourceRequest, error)
	InsertRequest(ctx context.Context, req *model.ResourceRequest) error
	InsertItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error
	UpdateRequest(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteItems(ctx context.Context, requestID uuid.UUID) error
	DeleteRequest(ctx context.Context, id uuid.UUID) (int64, error)
}

type requestBackend struct {
	db *gorm.DB
}

func NewRequestBackend(db *gorm.DB) RequestBackend {
	return &requestBackend{db: db}
}

func (r *requestBackend) ListRequests(ctx context.Context, scope Scope) ([]model.ResourceRequest, error) {
	var requests []model.ResourceRequest

	query := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Requester").
		Preload("School").
		Where("school_group_id = ?", scope.SchoolGroupID)
	if scope.SchoolID != nil {
		query = query.Where("school_id = ?", *scope.SchoolID)
	}
	if scope.Status != "" {
		query = query.Where("status = ?", scope.Status)
	}

	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

func (r *requestBackend) InsertRequest(ctx context.Context, req *model.ResourceRequest) error {
	// Omit Items so child rows are written through InsertItems, keeping the
	// two steps of the create sequence separately observable.
	if err := GetDB(ctx, r.db).Omit("Items").Create(req).Error; err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

func (r *requestBackend) InsertItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].RequestID = requestID
	}
	if err := GetDB(ctx, r.db).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to insert request items: %w", err)
	}
	return nil
}

func (r *requestBackend) UpdateRequest(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.ResourceRequest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *requestBackend) DeleteItems(ctx context.Context, requestID uuid.UUID) error {
	if err := GetDB(ctx, r.db).Where("request_id = ?", requestID).Delete(&model.RequestItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete request items: %w", err)
	}
	return nil
}

func (r *requestBackend) DeleteRequest(ctx context.Context, id uuid.UUID) (int64, error) {
	// Hard delete, cascading to items.
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&model.RequestItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete request items: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.ResourceRequest{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete request: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
