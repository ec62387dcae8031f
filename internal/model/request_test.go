package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{RequestStatusPending, RequestStatusApproved, true},
		{RequestStatusPending, RequestStatusRejected, true},
		{RequestStatusApproved, RequestStatusCompleted, true},
		{RequestStatusPending, RequestStatusCompleted, false},
		{RequestStatusApproved, RequestStatusRejected, false},
		{RequestStatusApproved, RequestStatusPending, false},
		{RequestStatusRejected, RequestStatusApproved, false},
		{RequestStatusRejected, RequestStatusCompleted, false},
		{RequestStatusCompleted, RequestStatusPending, false},
		{RequestStatusCompleted, RequestStatusApproved, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatus(t *testing.T) {
	if TerminalStatus(RequestStatusPending) || TerminalStatus(RequestStatusApproved) {
		t.Error("pending and approved must not be terminal")
	}
	if !TerminalStatus(RequestStatusRejected) || !TerminalStatus(RequestStatusCompleted) {
		t.Error("rejected and completed must be terminal")
	}
}

func TestValidStatusAndPriority(t *testing.T) {
	for _, s := range []string{RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("archived") || ValidStatus("") {
		t.Error("unknown statuses must be invalid")
	}

	for _, p := range []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%s) = false", p)
		}
	}
	if ValidPriority("critical") {
		t.Error("unknown priority must be invalid")
	}
}

func TestNormalizeFillsDisplayFields(t *testing.T) {
	req := ResourceRequest{
		Requester: &User{FullName: "Amina Yusuf", Role: RoleStaff},
		School:    &School{Name: "Northside Primary"},
		Priority:  "bogus",
	}
	req.Normalize()

	if req.RequesterName != "Amina Yusuf" || req.RequesterRole != RoleStaff {
		t.Errorf("requester display fields not filled: %+v", req)
	}
	if req.SchoolName != "Northside Primary" {
		t.Errorf("school name not filled: %q", req.SchoolName)
	}
	if req.Items == nil {
		t.Error("items must be coalesced to an empty slice")
	}
	if req.Priority != PriorityNormal {
		t.Errorf("invalid priority must fall back to normal, got %q", req.Priority)
	}
}

func TestNormalizeWithoutRelations(t *testing.T) {
	req := ResourceRequest{Priority: PriorityHigh}
	req.Normalize()

	if req.RequesterName != "" || req.SchoolName != "" {
		t.Error("missing relations must leave display fields empty")
	}
	if req.Priority != PriorityHigh {
		t.Error("valid priority must be kept")
	}
}

func TestComputeTotal(t *testing.T) {
	items := []RequestItem{
		{Quantity: 3, UnitPrice: decimal.NewFromInt(1000)},
		{Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
	}

	total := ComputeTotal(items, decimal.NewFromInt(999))
	if !total.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("ComputeTotal = %s, want 8000", total)
	}
}

func TestComputeTotalFallback(t *testing.T) {
	fallback := decimal.NewFromInt(4200)

	if got := ComputeTotal(nil, fallback); !got.Equal(fallback) {
		t.Errorf("ComputeTotal(nil) = %s, want fallback %s", got, fallback)
	}
	if got := ComputeTotal([]RequestItem{}, fallback); !got.Equal(fallback) {
		t.Errorf("ComputeTotal(empty) = %s, want fallback %s", got, fallback)
	}
}

func TestComputeTotalOrderIndependent(t *testing.T) {
	a := RequestItem{Quantity: 2, UnitPrice: decimal.NewFromFloat(12.50)}
	b := RequestItem{Quantity: 7, UnitPrice: decimal.NewFromFloat(3.99)}
	c := RequestItem{Quantity: 1, UnitPrice: decimal.NewFromInt(150)}

	first := ComputeTotal([]RequestItem{a, b, c}, decimal.Zero)
	second := ComputeTotal([]RequestItem{c, a, b}, decimal.Zero)

	if !first.Equal(second) {
		t.Errorf("total depends on item order: %s vs %s", first, second)
	}
}

func TestComputeTotalZeroPrices(t *testing.T) {
	items := []RequestItem{
		{Quantity: 10, UnitPrice: decimal.Zero},
	}
	if got := ComputeTotal(items, decimal.NewFromInt(7)); !got.Equal(decimal.Zero) {
		t.Errorf("non-empty items must not use the fallback, got %s", got)
	}
}
