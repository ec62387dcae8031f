package service

import (
	"context"
	"time"

	"schoolhub/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetDashboard(ctx context.Context, groupID string, startDate, endDate time.Time) (model.DashboardResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetDashboard aggregates the request collection for the admin dashboard:
// status breakdown, approved spend, top schools by spend, recent activity.
func (s *statisticsService) GetDashboard(ctx context.Context, groupID string, startDate, endDate time.Time) (model.DashboardResponse, error) {
	var response model.DashboardResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate
	response.ApprovedSpend = decimal.Zero

	base := s.db.WithContext(ctx).Model(&model.ResourceRequest{}).
		Where("school_group_id = ? AND created_at >= ? AND created_at <= ?", groupID, startDate, endDate)

	if err := base.Count(&response.TotalRequests).Error; err != nil {
		return response, err
	}

	// Status breakdown
	var breakdown []model.StatusCount
	if err := s.db.WithContext(ctx).Model(&model.ResourceRequest{}).
		Select("status, COUNT(*) as count").
		Where("school_group_id = ? AND created_at >= ? AND created_at <= ?", groupID, startDate, endDate).
		Group("status").
		Scan(&breakdown).Error; err != nil {
		return response, err
	}
	response.StatusBreakdown = breakdown

	// Approved spend across the group (approved + completed requests)
	var spend struct {
		Value decimal.Decimal
	}
	s.db.WithContext(ctx).Table("resource_requests").
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("school_group_id = ? AND status IN ? AND created_at >= ? AND created_at <= ?",
			groupID, []string{model.RequestStatusApproved, model.RequestStatusCompleted}, startDate, endDate).
		Scan(&spend)
	response.ApprovedSpend = spend.Value

	// Top schools by approved spend
	var topSchools []model.SchoolSpend
	s.db.WithContext(ctx).Table("resource_requests").
		Select("schools.id as school_id, schools.name as school_name, COALESCE(SUM(resource_requests.total_amount), 0) as total_spend, COUNT(*) as requests").
		Joins("JOIN schools ON schools.id = resource_requests.school_id").
		Where("resource_requests.school_group_id = ? AND resource_requests.status IN ? AND resource_requests.created_at >= ? AND resource_requests.created_at <= ?",
			groupID, []string{model.RequestStatusApproved, model.RequestStatusCompleted}, startDate, endDate).
		Group("schools.id, schools.name").
		Order("total_spend DESC").
		Limit(5).
		Scan(&topSchools)
	response.TopSchools = topSchools

	// Recent requests for the activity feed
	var recent []model.ResourceRequest
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Requester").
		Preload("School").
		Where("school_group_id = ?", groupID).
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		return response, err
	}
	for i := range recent {
		recent[i].Normalize()
	}
	response.RecentRequests = recent

	return response, nil
}
