package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"schoolhub/internal/identity"
	"schoolhub/internal/model"
	"schoolhub/internal/notify"
	"schoolhub/internal/permission"
	"schoolhub/internal/repository"
	"schoolhub/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type ItemDraft struct {
	ResourceName  string          `json:"resource_name" binding:"required"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity" binding:"required"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Justification string          `json:"justification"`
}

type RequestDraft struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description"`
	Notes       string      `json:"notes"`
	Priority    string      `json:"priority"`
	Items       []ItemDraft `json:"items" binding:"required"`
}

// RequestService coordinates the request lifecycle: every user intent becomes
// a permission check, an optimistic store mutation, a backend call, and a
// reload-based reconciliation when the backend call fails. It is the only
// component that talks to the backend about requests.
type RequestService interface {
	Load(ctx context.Context) error
	List(ctx context.Context, status string) ([]model.ResourceRequest, error)
	Get(ctx context.Context, id string) (*model.ResourceRequest, error)
	Create(ctx context.Context, draft RequestDraft) (*model.ResourceRequest, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string, note string) error
	Complete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, draft RequestDraft) error
	Delete(ctx context.Context, id string) error
}

type requestService struct {
	backend  repository.RequestBackend
	store    *store.RequestStore
	identity identity.Provider
	notifier notify.Notifier
	audit    repository.AuditRepository
	txm      repository.TransactionManager

	// Operations on the same request id are serialized so the state-machine
	// guard cannot be raced by concurrent sessions.
	idLocks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewRequestService wires the coordinator. audit and txm may be nil: without
// a transaction manager the multi-step writes fall back to sequential calls
// with compensating cleanup.
func NewRequestService(
	backend repository.RequestBackend,
	st *store.RequestStore,
	idp identity.Provider,
	notifier notify.Notifier,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) RequestService {
	return &requestService{
		backend:  backend,
		store:    st,
		identity: idp,
		notifier: notifier,
		audit:    audit,
		txm:      txm,
	}
}

func (s *requestService) lockID(id uuid.UUID) func() {
	v, _ := s.idLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// loadScope is the store-fill filter. The store is shared by every session,
// so it is always filled with the whole group regardless of who triggered the
// load; visibility narrowing happens read-side through the permission gate.
// A school-scoped fill would leave other schools' rows missing for actors
// whose scope includes them.
func loadScope(actor model.Actor) repository.Scope {
	return repository.Scope{SchoolGroupID: actor.SchoolGroupID}
}

// Load fetches the actor's whole group from the backend, normalizes the rows
// and replaces the store contents. On failure the store keeps its previous
// state.
func (s *requestService) Load(ctx context.Context) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return s.load(ctx, actor)
}

func (s *requestService) load(ctx context.Context, actor model.Actor) error {
	requests, err := s.backend.ListRequests(ctx, loadScope(actor))
	if err != nil {
		s.notifier.Notify(notify.KindError, "Load failed", "Could not load resource requests")
		return fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}
	for i := range requests {
		requests[i].Normalize()
	}
	s.store.ReplaceAll(requests)
	return nil
}

// fetch reads the request from the store, falling back to a backend load when
// the id is not cached yet (cold store, or a row created by another process).
func (s *requestService) fetch(ctx context.Context, actor model.Actor, reqID uuid.UUID, id string) (model.ResourceRequest, error) {
	if req, ok := s.store.Get(reqID); ok {
		return req, nil
	}
	if err := s.load(ctx, actor); err != nil {
		return model.ResourceRequest{}, err
	}
	req, ok := s.store.Get(reqID)
	if !ok {
		return model.ResourceRequest{}, fmt.Errorf("%w: request %s not found", ErrInvalidReference, id)
	}
	return req, nil
}

// reconcile discards optimistic state by reloading server truth. Reload
// failures here are logged, not surfaced: the caller already has an error.
func (s *requestService) reconcile(ctx context.Context, actor model.Actor) {
	if err := s.load(ctx, actor); err != nil {
		log.Printf("request service: reconciliation reload failed: %v", err)
	}
}

// List reads the store, filtered to what the actor may see. A cold (empty)
// store is filled from the backend first; afterwards reads are served from
// the cache and only refreshed explicitly or on reconciliation.
func (s *requestService) List(ctx context.Context, status string) ([]model.ResourceRequest, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	if s.store.Len() == 0 {
		if err := s.load(ctx, actor); err != nil {
			return nil, err
		}
	}

	var visible []model.ResourceRequest
	for _, req := range s.store.Snapshot() {
		if status != "" && req.Status != status {
			continue
		}
		if d := permission.CanViewScope(actor, req); d.Allowed {
			visible = append(visible, req)
		}
	}
	return visible, nil
}

func (s *requestService) Get(ctx context.Context, id string) (*model.ResourceRequest, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	reqID, err := parseRequestID(id)
	if err != nil {
		return nil, err
	}
	req, err := s.fetch(ctx, actor, reqID, id)
	if err != nil {
		return nil, err
	}
	if d := permission.CanViewScope(actor, req); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, d.Reason)
	}
	return &req, nil
}

func validateDraft(draft RequestDraft) error {
	if draft.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	if len(draft.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidDraft)
	}
	if draft.Priority != "" && !model.ValidPriority(draft.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidDraft, draft.Priority)
	}
	for _, it := range draft.Items {
		if it.ResourceName == "" {
			return fmt.Errorf("%w: item resource name is required", ErrInvalidDraft)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", ErrInvalidDraft)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item unit price must be non-negative", ErrInvalidDraft)
		}
	}
	return nil
}

func draftItems(draft RequestDraft) []model.RequestItem {
	items := make([]model.RequestItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		items = append(items, model.RequestItem{
			ResourceName:  it.ResourceName,
			Category:      it.Category,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.UnitPrice.Mul(qty),
			Justification: it.Justification,
		})
	}
	return items
}

// Create validates the draft, computes the aggregate total and writes the
// request with its items as one logical unit. Without a transaction manager
// the parent row is written first and compensated away when the item insert
// fails; only a failed compensation leaves a partial write behind.
func (s *requestService) Create(ctx context.Context, draft RequestDraft) (*model.ResourceRequest, error) {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	items := draftItems(draft)
	priority := draft.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	req := &model.ResourceRequest{
		SchoolID:      actor.SchoolID,
		SchoolGroupID: actor.SchoolGroupID,
		RequesterID:   actor.ID,
		Title:         draft.Title,
		Description:   draft.Description,
		Notes:         draft.Notes,
		Priority:      priority,
		Status:        model.RequestStatusPending,
		TotalAmount:   model.ComputeTotal(items, decimal.Zero),
	}

	if s.txm != nil {
		err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if insErr := s.backend.InsertRequest(txCtx, req); insErr != nil {
				return insErr
			}
			return s.backend.InsertItems(txCtx, req.ID, items)
		})
		if err != nil {
			s.notifier.Notify(notify.KindError, "Create failed", "Could not save the resource request")
			return nil, fmt.Errorf("%w: %v", ErrRemoteFailure, err)
		}
	} else {
		if err := s.backend.InsertRequest(ctx, req); err != nil {
			s.notifier.Notify(notify.KindError, "Create failed", "Could not save the resource request")
			return nil, fmt.Errorf("%w: %v", ErrRemoteFailure, err)
		}
		if err := s.backend.InsertItems(ctx, req.ID, items); err != nil {
			// Compensate: remove the parent row so no item-less request
			// lingers on the server.
			if _, delErr := s.backend.DeleteRequest(ctx, req.ID); delErr != nil {
				log.Printf("request service: compensating delete failed for %s: %v", req.ID, delErr)
				s.notifier.Notify(notify.KindError, "Create failed", "Request was partially saved; contact an administrator")
				return nil, fmt.Errorf("%w: items insert failed (%v), cleanup failed (%v)", ErrPartialWrite, err, delErr)
			}
			s.notifier.Notify(notify.KindError, "Create failed", "Could not save the request items")
			return nil, fmt.Errorf("%w: %v", ErrRemoteFailure, err)
		}
	}

	req.Items = items
	req.Normalize()
	s.store.Insert(*req)

	s.auditLog(ctx, actor, model.ActionCreateRequest, req.ID.String(), req.Title, map[string]interface{}{
		"total_amount": req.TotalAmount.StringFixed(2),
		"items":        len(items),
	})
	s.notifier.Notify(notify.KindSuccess, "Request created", fmt.Sprintf("%q submitted for approval", req.Title))
	return req, nil
}

// Approve moves a pending request to approved.
func (s *requestService) Approve(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.RequestStatusApproved, "")
}

// Reject moves a pending request to rejected. The optional note is appended
// to the request notes so the requester can see why.
func (s *requestService) Reject(ctx context.Context, id string, note string) error {
	return s.transition(ctx, id, model.RequestStatusRejected, note)
}

// Complete moves an approved request to completed.
func (s *requestService) Complete(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.RequestStatusCompleted, "")
}

// transition is the shared gate-check -> optimistic mutation -> remote update
// -> reconcile-on-failure sequence behind Approve, Reject and Complete.
func (s *requestService) transition(ctx context.Context, id, newStatus, note string) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	reqID, err := parseRequestID(id)
	if err != nil {
		return err
	}

	unlock := s.lockID(reqID)
	defer unlock()

	req, err := s.fetch(ctx, actor, reqID, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(req.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, newStatus)
	}

	var decision permission.Decision
	switch newStatus {
	case model.RequestStatusApproved, model.RequestStatusRejected:
		decision = permission.CanApproveOrReject(actor, req)
	case model.RequestStatusCompleted:
		decision = permission.CanComplete(actor, req)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, decision.Reason)
	}

	// Optimistic local change first, remote write second.
	s.store.Transition(reqID, newStatus, actor.ID)

	fields := map[string]interface{}{"status": newStatus}
	updated, _ := s.store.Get(reqID)
	switch newStatus {
	case model.RequestStatusApproved, model.RequestStatusRejected:
		fields["approved_by"] = actor.ID
		fields["approved_at"] = updated.ApprovedAt
	case model.RequestStatusCompleted:
		fields["completed_at"] = updated.CompletedAt
	}
	if note != "" {
		notes := req.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += note
		fields["notes"] = notes
		s.store.Patch(reqID, store.Fields{Notes: &notes})
	}

	if err := s.backend.UpdateRequest(ctx, reqID, fields); err != nil {
		s.reconcile(ctx, actor)
		s.notifier.Notify(notify.KindError, "Update failed", fmt.Sprintf("Could not mark request as %s", newStatus))
		return fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}

	s.auditLog(ctx, actor, transitionAction(newStatus), reqID.String(), req.Title, map[string]interface{}{
		"from": req.Status,
		"to":   newStatus,
	})
	s.notifier.Notify(notify.KindSuccess, "Request "+newStatus, fmt.Sprintf("%q is now %s", req.Title, newStatus))
	return nil
}

func transitionAction(status string) string {
	switch status {
	case model.RequestStatusApproved:
		return model.ActionApproveRequest
	case model.RequestStatusRejected:
		return model.ActionRejectRequest
	default:
		return model.ActionCompleteRequest
	}
}

// Update replaces the request fields and its whole item set, then reloads from
// the backend instead of patching locally: item replacement changes the
// aggregate in ways the optimistic path does not model.
func (s *requestService) Update(ctx context.Context, id string, draft RequestDraft) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	reqID, err := parseRequestID(id)
	if err != nil {
		return err
	}
	if err := validateDraft(draft); err != nil {
		return err
	}

	unlock := s.lockID(reqID)
	defer unlock()

	req, err := s.fetch(ctx, actor, reqID, id)
	if err != nil {
		return err
	}
	if d := permission.CanEdit(actor, req); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, d.Reason)
	}

	items := draftItems(draft)
	priority := draft.Priority
	if priority == "" {
		priority = req.Priority
	}
	fields := map[string]interface{}{
		"title":        draft.Title,
		"description":  draft.Description,
		"notes":        draft.Notes,
		"priority":     priority,
		"total_amount": model.ComputeTotal(items, req.TotalAmount),
	}

	replaceItems := func(opCtx context.Context) error {
		if err := s.backend.UpdateRequest(opCtx, reqID, fields); err != nil {
			return err
		}
		if err := s.backend.DeleteItems(opCtx, reqID); err != nil {
			return err
		}
		return s.backend.InsertItems(opCtx, reqID, items)
	}

	if s.txm != nil {
		err = s.txm.RunInTx(ctx, replaceItems)
	} else {
		err = replaceItems(ctx)
	}
	if err != nil {
		s.reconcile(ctx, actor)
		s.notifier.Notify(notify.KindError, "Update failed", "Could not save the request changes")
		return fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}

	// Full reload, not a local patch.
	if err := s.load(ctx, actor); err != nil {
		return err
	}

	s.auditLog(ctx, actor, model.ActionUpdateRequest, reqID.String(), draft.Title, map[string]interface{}{
		"items": len(items),
	})
	s.notifier.Notify(notify.KindSuccess, "Request updated", fmt.Sprintf("%q saved", draft.Title))
	return nil
}

// Delete removes the request and its items. Degenerate ids are rejected
// before any store mutation or network call.
func (s *requestService) Delete(ctx context.Context, id string) error {
	actor, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	reqID, err := parseRequestID(id)
	if err != nil {
		return err
	}

	unlock := s.lockID(reqID)
	defer unlock()

	req, err := s.fetch(ctx, actor, reqID, id)
	if err != nil {
		return err
	}
	if d := permission.CanDelete(actor, req); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, d.Reason)
	}

	// Optimistic removal; the reload on failure restores the row.
	s.store.Remove(reqID)

	deleted, err := s.backend.DeleteRequest(ctx, reqID)
	if err != nil {
		s.reconcile(ctx, actor)
		s.notifier.Notify(notify.KindError, "Delete failed", fmt.Sprintf("Could not delete %q", req.Title))
		return fmt.Errorf("%w: %v", ErrRemoteFailure, err)
	}
	if deleted == 0 {
		log.Printf("request service: delete of %s affected no rows", reqID)
	}

	s.auditLog(ctx, actor, model.ActionDeleteRequest, reqID.String(), req.Title, nil)
	s.notifier.Notify(notify.KindSuccess, "Request deleted", fmt.Sprintf("%q removed", req.Title))
	return nil
}

// parseRequestID guards against the degenerate ids a client can produce
// ("", "undefined", "null") and malformed uuids, before any backend contact.
func parseRequestID(id string) (uuid.UUID, error) {
	switch id {
	case "", "undefined", "null":
		return uuid.Nil, fmt.Errorf("%w: missing request id", ErrInvalidReference)
	}
	reqID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed request id %q", ErrInvalidReference, id)
	}
	return reqID, nil
}

func (s *requestService) auditLog(ctx context.Context, actor model.Actor, action, entityID, entityName string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	actorID := actor.ID
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		log.Printf("request service: failed to write audit log: %v", err)
	}
}
