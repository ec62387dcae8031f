package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"schoolhub/internal/identity"
	"schoolhub/internal/model"
	"schoolhub/internal/notify"
	"schoolhub/internal/repository"
	"schoolhub/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Fakes ---

// fakeBackend is an in-memory RequestBackend so coordinator behavior can be
// exercised without a database, including targeted failures.
type fakeBackend struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.ResourceRequest
	order    []uuid.UUID
	items    map[uuid.UUID][]model.RequestItem

	failList        bool
	failInsertItems bool
	failUpdate      bool
	failDelete      bool

	listCalls   int
	updateCalls int
	deleteCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		requests: map[uuid.UUID]model.ResourceRequest{},
		items:    map[uuid.UUID][]model.RequestItem{},
	}
}

func (f *fakeBackend) seed(req model.ResourceRequest, items []model.RequestItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = req
	f.order = append([]uuid.UUID{req.ID}, f.order...)
	f.items[req.ID] = items
}

func (f *fakeBackend) ListRequests(ctx context.Context, scope repository.Scope) ([]model.ResourceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList {
		return nil, errors.New("list unavailable")
	}

	var out []model.ResourceRequest
	for _, id := range f.order {
		req := f.requests[id]
		if req.SchoolGroupID != scope.SchoolGroupID {
			continue
		}
		if scope.SchoolID != nil && req.SchoolID != *scope.SchoolID {
			continue
		}
		req.Items = append([]model.RequestItem{}, f.items[id]...)
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeBackend) InsertRequest(ctx context.Context, req *model.ResourceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	stored := *req
	stored.Items = nil
	f.requests[req.ID] = stored
	f.order = append([]uuid.UUID{req.ID}, f.order...)
	return nil
}

func (f *fakeBackend) InsertItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertItems {
		return errors.New("items insert refused")
	}
	f.items[requestID] = append([]model.RequestItem{}, items...)
	return nil
}

func (f *fakeBackend) UpdateRequest(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate {
		return errors.New("update refused")
	}
	req, ok := f.requests[id]
	if !ok {
		return errors.New("not found")
	}
	if status, ok := fields["status"].(string); ok {
		req.Status = status
	}
	if title, ok := fields["title"].(string); ok {
		req.Title = title
	}
	if by, ok := fields["approved_by"].(uuid.UUID); ok {
		req.ApprovedBy = &by
	}
	if total, ok := fields["total_amount"].(decimal.Decimal); ok {
		req.TotalAmount = total
	}
	f.requests[id] = req
	return nil
}

func (f *fakeBackend) DeleteItems(ctx context.Context, requestID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, requestID)
	return nil
}

func (f *fakeBackend) DeleteRequest(ctx context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete {
		return 0, errors.New("delete refused")
	}
	if _, ok := f.requests[id]; !ok {
		return 0, nil
	}
	delete(f.requests, id)
	delete(f.items, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *recordingNotifier) Notify(kind, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notify.Notification{Kind: kind, Title: title, Message: message})
}

func (r *recordingNotifier) countKind(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notif := range r.notifications {
		if notif.Kind == kind {
			n++
		}
	}
	return n
}

// --- Shared fixture ---

var (
	testGroupID  = uuid.New()
	testSchoolID = uuid.New()
)

func testActor(role string) model.Actor {
	return model.Actor{ID: uuid.New(), Role: role, SchoolID: testSchoolID, SchoolGroupID: testGroupID}
}

func pendingRequest(requesterID uuid.UUID) model.ResourceRequest {
	return model.ResourceRequest{
		ID:            uuid.New(),
		SchoolID:      testSchoolID,
		SchoolGroupID: testGroupID,
		RequesterID:   requesterID,
		Title:         "classroom supplies",
		Priority:      model.PriorityNormal,
		Status:        model.RequestStatusPending,
		TotalAmount:   decimal.NewFromInt(8000),
	}
}

func newService(t *testing.T, backend repository.RequestBackend, actor model.Actor) (RequestService, *store.RequestStore, *recordingNotifier) {
	t.Helper()
	st := store.New()
	rec := &recordingNotifier{}
	svc := NewRequestService(backend, st, identity.StaticProvider{Actor: actor}, rec, nil, nil)
	return svc, st, rec
}

// --- Tests ---

func TestLoadFillsStore(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, []model.RequestItem{{ResourceName: "chalk", Quantity: 10, UnitPrice: decimal.NewFromInt(50)}})

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, ok := st.Get(req.ID)
	if !ok {
		t.Fatal("request not loaded into store")
	}
	if len(got.Items) != 1 || got.Items[0].ResourceName != "chalk" {
		t.Errorf("items not loaded: %+v", got.Items)
	}
}

func TestLoadFailureKeepsStore(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, rec := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	fb.failList = true
	err := svc.Load(context.Background())
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}
	if st.Len() != 1 {
		t.Error("store must keep its previous state when a reload fails")
	}
	if rec.countKind(notify.KindError) == 0 {
		t.Error("a failed load must surface an error notification")
	}
}

func TestCreateComputesTotal(t *testing.T) {
	// A requester creates a request with two items: 3 x 1000 and 1 x 5000.
	fb := newFakeBackend()
	requester := testActor(model.RoleStaff)
	svc, st, rec := newService(t, fb, requester)

	req, err := svc.Create(context.Background(), RequestDraft{
		Title: "science lab restock",
		Items: []ItemDraft{
			{ResourceName: "beakers", Quantity: 3, UnitPrice: decimal.NewFromInt(1000)},
			{ResourceName: "burner", Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !req.TotalAmount.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("total = %s, want 8000", req.TotalAmount)
	}
	if req.Status != model.RequestStatusPending {
		t.Errorf("new requests must start pending, got %s", req.Status)
	}
	if req.RequesterID != requester.ID {
		t.Error("requester must be the acting user")
	}
	if st.Len() != 1 {
		t.Error("created request must be inserted into the store")
	}
	if rec.countKind(notify.KindSuccess) != 1 {
		t.Error("a successful create must notify")
	}
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	fb := newFakeBackend()
	svc, st, _ := newService(t, fb, testActor(model.RoleStaff))

	cases := []struct {
		name  string
		draft RequestDraft
	}{
		{"missing title", RequestDraft{Items: []ItemDraft{{ResourceName: "pens", Quantity: 1}}}},
		{"no items", RequestDraft{Title: "empty"}},
		{"zero quantity", RequestDraft{Title: "bad", Items: []ItemDraft{{ResourceName: "pens", Quantity: 0}}}},
		{"negative price", RequestDraft{Title: "bad", Items: []ItemDraft{{ResourceName: "pens", Quantity: 1, UnitPrice: decimal.NewFromInt(-5)}}}},
		{"unknown priority", RequestDraft{Title: "bad", Priority: "asap", Items: []ItemDraft{{ResourceName: "pens", Quantity: 1}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.draft); !errors.Is(err, ErrInvalidDraft) {
				t.Errorf("expected ErrInvalidDraft, got %v", err)
			}
		})
	}
	if st.Len() != 0 {
		t.Error("invalid drafts must not reach the store")
	}
}

func TestCreateCompensatesFailedItemInsert(t *testing.T) {
	fb := newFakeBackend()
	fb.failInsertItems = true
	svc, st, _ := newService(t, fb, testActor(model.RoleStaff))

	_, err := svc.Create(context.Background(), RequestDraft{
		Title: "doomed",
		Items: []ItemDraft{{ResourceName: "globes", Quantity: 2, UnitPrice: decimal.NewFromInt(300)}},
	})
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}
	if fb.deleteCalls != 1 {
		t.Error("a failed items insert must trigger a compensating parent delete")
	}
	if len(fb.requests) != 0 {
		t.Error("no orphaned parent row may remain after compensation")
	}
	if st.Len() != 0 {
		t.Error("failed creates must not reach the store")
	}
}

func TestCreateReportsPartialWrite(t *testing.T) {
	fb := newFakeBackend()
	fb.failInsertItems = true
	fb.failDelete = true
	svc, _, _ := newService(t, fb, testActor(model.RoleStaff))

	_, err := svc.Create(context.Background(), RequestDraft{
		Title: "stuck",
		Items: []ItemDraft{{ResourceName: "maps", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	if !errors.Is(err, ErrPartialWrite) {
		t.Fatalf("expected ErrPartialWrite when compensation also fails, got %v", err)
	}
}

func TestApproveHappyPath(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleSchoolAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, rec := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := svc.Approve(context.Background(), req.ID.String()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusApproved {
		t.Errorf("store status = %s, want approved", got.Status)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != admin.ID {
		t.Error("approver must be stamped in the store")
	}
	if fb.requests[req.ID].Status != model.RequestStatusApproved {
		t.Error("backend must reflect the approval")
	}
	if rec.countKind(notify.KindSuccess) != 1 {
		t.Error("a successful approval must notify")
	}
}

func TestApproveDeniedForStaff(t *testing.T) {
	// A non-admin staff member attempts approval: denied, store untouched.
	fb := newFakeBackend()
	staff := testActor(model.RoleStaff)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, staff)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := svc.Approve(context.Background(), req.ID.String())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusPending {
		t.Error("a denied approval must leave the store unchanged")
	}
	if fb.updateCalls != 0 {
		t.Error("a denied approval must not reach the backend")
	}
}

func TestApproveRemoteFailureReconciles(t *testing.T) {
	// The optimistic approval must be visible transiently, then rolled back
	// to server truth when the remote update fails.
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, rec := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var statusHistory []string
	st.Subscribe(func(snapshot []model.ResourceRequest) {
		for _, r := range snapshot {
			if r.ID == req.ID {
				statusHistory = append(statusHistory, r.Status)
			}
		}
	})

	fb.failUpdate = true
	err := svc.Approve(context.Background(), req.ID.String())
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusPending {
		t.Errorf("after reconciliation status = %s, want pending", got.Status)
	}
	if got.ApprovedBy != nil {
		t.Error("reconciliation must clear the optimistic approver stamp")
	}

	sawOptimistic := false
	for _, s := range statusHistory {
		if s == model.RequestStatusApproved {
			sawOptimistic = true
		}
	}
	if !sawOptimistic {
		t.Error("the optimistic approved state must have been applied before reconciliation")
	}
	if rec.countKind(notify.KindError) == 0 {
		t.Error("a failed approval must surface an error notification")
	}
}

func TestCompleteRequiresApprovedState(t *testing.T) {
	// Completing a pending request must fail on the source-state guard.
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := svc.Complete(context.Background(), req.ID.String())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusPending {
		t.Error("a guarded transition must not mutate the store")
	}
	if fb.updateCalls != 0 {
		t.Error("a guarded transition must not reach the backend")
	}
}

func TestRejectAppendsNote(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleSchoolAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := svc.Reject(context.Background(), req.ID.String(), "budget exhausted"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusRejected {
		t.Errorf("status = %s, want rejected", got.Status)
	}
	if got.Notes != "budget exhausted" {
		t.Errorf("note not recorded: %q", got.Notes)
	}
}

func TestDeleteRejectsSentinelIDs(t *testing.T) {
	// Degenerate ids must be rejected before any store mutation or call.
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	listCallsBefore := fb.listCalls

	for _, id := range []string{"", "undefined", "null", "not-a-uuid"} {
		if err := svc.Delete(context.Background(), id); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("Delete(%q): expected ErrInvalidReference, got %v", id, err)
		}
	}

	if st.Len() != 1 {
		t.Error("sentinel ids must not mutate the store")
	}
	if fb.deleteCalls != 0 {
		t.Error("sentinel ids must not reach the backend")
	}
	if fb.listCalls != listCallsBefore {
		t.Error("sentinel ids must not trigger reconciliation")
	}
}

func TestDeleteOptimisticWithReconcileOnFailure(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, rec := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fb.failDelete = true
	err := svc.Delete(context.Background(), req.ID.String())
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected ErrRemoteFailure, got %v", err)
	}

	if _, ok := st.Get(req.ID); !ok {
		t.Error("a failed delete must restore the row via reconciliation")
	}
	if rec.countKind(notify.KindError) == 0 {
		t.Error("a failed delete must surface an error notification")
	}
}

func TestDeleteHappyPath(t *testing.T) {
	fb := newFakeBackend()
	requester := testActor(model.RoleStaff)
	req := pendingRequest(requester.ID)
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, requester)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := svc.Delete(context.Background(), req.ID.String()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if st.Len() != 0 {
		t.Error("deleted request must leave the store")
	}
	if len(fb.requests) != 0 {
		t.Error("deleted request must leave the backend")
	}
}

func TestUpdateReloadsInsteadOfPatching(t *testing.T) {
	fb := newFakeBackend()
	requester := testActor(model.RoleStaff)
	req := pendingRequest(requester.ID)
	fb.seed(req, []model.RequestItem{{ResourceName: "old", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}})

	svc, st, _ := newService(t, fb, requester)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	listCallsBefore := fb.listCalls

	err := svc.Update(context.Background(), req.ID.String(), RequestDraft{
		Title: "updated supplies",
		Items: []ItemDraft{
			{ResourceName: "markers", Quantity: 4, UnitPrice: decimal.NewFromInt(250)},
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if fb.listCalls <= listCallsBefore {
		t.Error("Update must be followed by a full reload, not a local patch")
	}

	got, _ := st.Get(req.ID)
	if got.Title != "updated supplies" {
		t.Errorf("title after reload = %q", got.Title)
	}
	if len(got.Items) != 1 || got.Items[0].ResourceName != "markers" {
		t.Errorf("item set must be replaced wholesale: %+v", got.Items)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("total after update = %s, want 1000", got.TotalAmount)
	}
}

func TestUpdateDeniedForOtherStaff(t *testing.T) {
	fb := newFakeBackend()
	stranger := testActor(model.RoleStaff)
	req := pendingRequest(uuid.New()) // someone else's request
	fb.seed(req, nil)

	svc, _, _ := newService(t, fb, stranger)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := svc.Update(context.Background(), req.ID.String(), RequestDraft{
		Title: "hijack",
		Items: []ItemDraft{{ResourceName: "pens", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if fb.updateCalls != 0 {
		t.Error("a denied edit must not reach the backend")
	}
}

func TestListFiltersByScopeAndStatus(t *testing.T) {
	fb := newFakeBackend()
	staff := testActor(model.RoleStaff)

	mine := pendingRequest(staff.ID)
	foreign := pendingRequest(uuid.New())
	foreign.SchoolID = uuid.New() // another school in the same group
	approved := pendingRequest(staff.ID)
	approved.Status = model.RequestStatusApproved

	groupAdmin := testActor(model.RoleGroupAdmin)
	adminSvc, adminStore, _ := newService(t, fb, groupAdmin)
	fb.seed(mine, nil)
	fb.seed(foreign, nil)
	fb.seed(approved, nil)
	if err := adminSvc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Group admin sees everything in the group.
	all, err := adminSvc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("group admin sees %d requests, want 3", len(all))
	}

	// Staff sharing the same store only see their own school.
	staffSvc := NewRequestService(fb, adminStore, identity.StaticProvider{Actor: staff}, &recordingNotifier{}, nil, nil)
	visible, err := staffSvc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, r := range visible {
		if r.SchoolID != staff.SchoolID {
			t.Errorf("staff can see request for school %s", r.SchoolID)
		}
	}
	if len(visible) != 2 {
		t.Errorf("staff sees %d requests, want 2", len(visible))
	}

	// Status filter narrows further.
	pendingOnly, err := staffSvc.List(context.Background(), model.RequestStatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pendingOnly) != 1 {
		t.Errorf("pending filter returned %d, want 1", len(pendingOnly))
	}
}

func TestSharedStoreServesEveryScope(t *testing.T) {
	// The store is one process-wide cache. A school admin's load must not
	// narrow it to their school: a group admin sharing the store still sees
	// the whole group and can act on another school's requests.
	fb := newFakeBackend()
	schoolAdmin := testActor(model.RoleSchoolAdmin)

	mine := pendingRequest(uuid.New())
	elsewhere := pendingRequest(uuid.New())
	elsewhere.SchoolID = uuid.New() // another school in the same group
	fb.seed(mine, nil)
	fb.seed(elsewhere, nil)

	svc, st, _ := newService(t, fb, schoolAdmin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.Len() != 2 {
		t.Fatalf("store holds %d requests after a school admin's load, want the whole group (2)", st.Len())
	}

	// Read-side scope still applies: the school admin sees only their school.
	visible, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != mine.ID {
		t.Errorf("school admin sees %d requests, want only their own school's", len(visible))
	}

	groupAdmin := testActor(model.RoleGroupAdmin)
	adminSvc := NewRequestService(fb, st, identity.StaticProvider{Actor: groupAdmin}, &recordingNotifier{}, nil, nil)

	all, err := adminSvc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("group admin sees %d requests after a school-scoped load, want 2", len(all))
	}

	if err := adminSvc.Approve(context.Background(), elsewhere.ID.String()); err != nil {
		t.Fatalf("group admin could not approve another school's request: %v", err)
	}
	got, _ := st.Get(elsewhere.ID)
	if got.Status != model.RequestStatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
}

func TestTransitionLoadsUncachedRequest(t *testing.T) {
	// A transition on an id the cache has never seen resolves it from the
	// backend instead of failing on the cold store.
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Approve(context.Background(), req.ID.String()); err != nil {
		t.Fatalf("Approve on uncached request failed: %v", err)
	}

	got, ok := st.Get(req.ID)
	if !ok || got.Status != model.RequestStatusApproved {
		t.Errorf("store after approve: present=%v status=%s, want approved", ok, got.Status)
	}
	if fb.requests[req.ID].Status != model.RequestStatusApproved {
		t.Error("backend must reflect the approval")
	}
}

func TestTransitionUnknownRequest(t *testing.T) {
	fb := newFakeBackend()
	svc, _, _ := newService(t, fb, testActor(model.RoleGroupAdmin))

	err := svc.Approve(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for unknown id, got %v", err)
	}
}

func TestSequentialTransitionsFollowStateMachine(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	id := req.ID.String()

	if err := svc.Approve(context.Background(), id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := svc.Complete(context.Background(), id); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Completed is terminal: nothing more is allowed.
	for name, op := range map[string]func() error{
		"approve":  func() error { return svc.Approve(context.Background(), id) },
		"reject":   func() error { return svc.Reject(context.Background(), id, "") },
		"complete": func() error { return svc.Complete(context.Background(), id) },
	} {
		if err := op(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s on completed request: expected ErrInvalidTransition, got %v", name, err)
		}
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusCompleted {
		t.Errorf("final status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completion timestamp must be stamped")
	}
}

func TestConcurrentTransitionsOnSameID(t *testing.T) {
	// Rapid double-submission: exactly one approval may win; the loser must
	// fail the source-state guard, and the store must stay consistent.
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Approve(context.Background(), req.ID.String())
		}()
	}
	wg.Wait()
	close(results)

	var successes, guarded int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvalidTransition):
			guarded++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || guarded != 1 {
		t.Errorf("got %d successes and %d guard rejections, want 1 and 1", successes, guarded)
	}

	got, _ := st.Get(req.ID)
	if got.Status != model.RequestStatusApproved {
		t.Errorf("final status = %s, want approved", got.Status)
	}
}

func TestGetChecksScope(t *testing.T) {
	fb := newFakeBackend()
	admin := testActor(model.RoleGroupAdmin)
	req := pendingRequest(uuid.New())
	fb.seed(req, nil)

	svc, st, _ := newService(t, fb, admin)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), req.ID.String()); err != nil {
		t.Fatalf("Get failed for authorized actor: %v", err)
	}

	outsider := model.Actor{ID: uuid.New(), Role: model.RoleStaff, SchoolID: uuid.New(), SchoolGroupID: testGroupID}
	outsiderSvc := NewRequestService(fb, st, identity.StaticProvider{Actor: outsider}, &recordingNotifier{}, nil, nil)
	if _, err := outsiderSvc.Get(context.Background(), req.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for out-of-scope read, got %v", err)
	}
}

func TestErrorMessagesCarrySentinelPrefix(t *testing.T) {
	fb := newFakeBackend()
	svc, _, _ := newService(t, fb, testActor(model.RoleGroupAdmin))

	err := svc.Delete(context.Background(), "undefined")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), ErrInvalidReference.Error()) {
		t.Errorf("error %q must be prefixed by %q", err, ErrInvalidReference)
	}
}
