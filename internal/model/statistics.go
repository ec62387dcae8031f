package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusCount is one slice of the dashboard status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// SchoolSpend ranks schools by approved procurement spend.
type SchoolSpend struct {
	SchoolID   string          `json:"school_id"`
	SchoolName string          `json:"school_name"`
	TotalSpend decimal.Decimal `json:"total_spend"`
	Requests   int64           `json:"requests"`
}

// DashboardResponse is the aggregated view served to the admin dashboard.
type DashboardResponse struct {
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
	TotalRequests      int64             `json:"total_requests"`
	StatusBreakdown    []StatusCount     `json:"status_breakdown"`
	ApprovedSpend      decimal.Decimal   `json:"approved_spend"`
	TopSchools         []SchoolSpend     `json:"top_schools"`
	RecentRequests     []ResourceRequest `json:"recent_requests"`
}
