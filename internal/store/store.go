// Package store holds the in-memory session view of resource requests: what
// the server currently believes about the collection, independent of backend
// latency. It is the target of every optimistic mutation and is reconciled
// from the backend whenever a remote write fails.
package store

import (
	"sync"
	"time"

	"schoolhub/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Observer is notified after every mutation so readers stay consistent with
// the last change applied. Callbacks must not mutate the store re-entrantly.
type Observer func([]model.ResourceRequest)

// Fields is a partial update merged into a stored request by Patch and
// Transition. Nil pointers mean "leave unchanged".
type Fields struct {
	Title       *string
	Description *string
	Notes       *string
	Priority    *string
	Status      *string
	TotalAmount *decimal.Decimal
	Items       []model.RequestItem
	ApprovedBy  *uuid.UUID
	ApprovedAt  *time.Time
	CompletedAt *time.Time
}

// RequestStore is an observable cache of resource requests. Mutations are
// applied in call order and never perform I/O; the lock makes the call-order
// contract hold when the coordinator serves concurrent sessions.
type RequestStore struct {
	mu        sync.RWMutex
	requests  []model.ResourceRequest
	observers []Observer
}

func New() *RequestStore {
	return &RequestStore{requests: []model.ResourceRequest{}}
}

// Subscribe registers an observer invoked after each mutation with a snapshot
// of the collection.
func (s *RequestStore) Subscribe(obs Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, obs)
	s.mu.Unlock()
}

// ReplaceAll bulk-loads the collection, preserving the source order. Used
// after a full fetch or a reconciliation.
func (s *RequestStore) ReplaceAll(requests []model.ResourceRequest) {
	s.mu.Lock()
	s.requests = make([]model.ResourceRequest, len(requests))
	copy(s.requests, requests)
	s.mu.Unlock()
	s.notify()
}

// Insert prepends a request so optimistic creates show up newest first.
func (s *RequestStore) Insert(req model.ResourceRequest) {
	s.mu.Lock()
	s.requests = append([]model.ResourceRequest{req}, s.requests...)
	s.mu.Unlock()
	s.notify()
}

// Patch shallow-merges fields into the matching request and stamps UpdatedAt.
// No-op when the id is not present.
func (s *RequestStore) Patch(id uuid.UUID, fields Fields) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	applyFields(&s.requests[idx], fields)
	s.requests[idx].UpdatedAt = time.Now()
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the entry. Idempotent: removing an absent id is a no-op.
func (s *RequestStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.requests = append(s.requests[:idx], s.requests[idx+1:]...)
	s.mu.Unlock()
	s.notify()
}

// Transition is Patch plus the status-specific actor/timestamp fields:
// approving stamps ApprovedBy/ApprovedAt, completing stamps CompletedAt.
func (s *RequestStore) Transition(id uuid.UUID, newStatus string, actorID uuid.UUID) {
	now := time.Now()
	fields := Fields{Status: &newStatus}
	switch newStatus {
	case model.RequestStatusApproved, model.RequestStatusRejected:
		fields.ApprovedBy = &actorID
		fields.ApprovedAt = &now
	case model.RequestStatusCompleted:
		fields.CompletedAt = &now
	}
	s.Patch(id, fields)
}

// Get returns a copy of the request with the given id.
func (s *RequestStore) Get(id uuid.UUID) (model.ResourceRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.requests[idx], true
	}
	return model.ResourceRequest{}, false
}

// Snapshot returns a copy of the full collection in display order.
func (s *RequestStore) Snapshot() []model.ResourceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ResourceRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Len returns the number of cached requests.
func (s *RequestStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

// indexOf must be called with the lock held.
func (s *RequestStore) indexOf(id uuid.UUID) int {
	for i := range s.requests {
		if s.requests[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *RequestStore) notify() {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	snapshot := make([]model.ResourceRequest, len(s.requests))
	copy(snapshot, s.requests)
	s.mu.RUnlock()

	for _, obs := range observers {
		obs(snapshot)
	}
}

func applyFields(req *model.ResourceRequest, fields Fields) {
	if fields.Title != nil {
		req.Title = *fields.Title
	}
	if fields.Description != nil {
		req.Description = *fields.Description
	}
	if fields.Notes != nil {
		req.Notes = *fields.Notes
	}
	if fields.Priority != nil {
		req.Priority = *fields.Priority
	}
	if fields.Status != nil {
		req.Status = *fields.Status
	}
	if fields.TotalAmount != nil {
		req.TotalAmount = *fields.TotalAmount
	}
	if fields.Items != nil {
		req.Items = fields.Items
	}
	if fields.ApprovedBy != nil {
		req.ApprovedBy = fields.ApprovedBy
	}
	if fields.ApprovedAt != nil {
		req.ApprovedAt = fields.ApprovedAt
	}
	if fields.CompletedAt != nil {
		req.CompletedAt = fields.CompletedAt
	}
}
