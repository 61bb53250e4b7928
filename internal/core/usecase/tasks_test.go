package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

var statusIDs = map[domain.TaskStatus]string{
	domain.TaskAwaiting:        "st-1",
	domain.TaskDrafting:        "st-2",
	domain.TaskInReview:        "st-3",
	domain.TaskReadyToProtocol: "st-4",
	domain.TaskProtocolled:     "st-5",
}

type taskRow struct {
	task      domain.Task
	reviewer  *string
	checklist []domain.ChecklistItem
}

type taskStoreFake struct {
	mu        sync.Mutex
	tenant    string
	tasks     map[string]*taskRow
	created   []domain.NewTask
	filter    domain.TaskFilter
	statusErr error
}

func newTaskStoreFake(tenant string) *taskStoreFake {
	return &taskStoreFake{tenant: tenant, tasks: map[string]*taskRow{}}
}

func (f *taskStoreFake) add(id string, status domain.TaskStatus, reviewer *string, due *time.Time, checklist ...domain.ChecklistItem) {
	f.tasks[id] = &taskRow{
		task: domain.Task{
			ID:      id,
			DueDate: due,
			Status:  domain.StatusRef{ID: statusIDs[status], Name: status},
			Lawsuit: domain.LawsuitRef{ID: "proc-1", Number: "0001"},
		},
		reviewer:  reviewer,
		checklist: checklist,
	}
}

func (f *taskStoreFake) row(tenant domain.Tenant, id string) (*taskRow, error) {
	row, ok := f.tasks[id]
	if !ok || tenant.ID() != f.tenant {
		return nil, domain.WrapError(domain.ErrNotFound, "task", fmt.Errorf("task %s", id))
	}
	return row, nil
}

func (f *taskStoreFake) ListTasks(_ context.Context, tenant domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	var out []domain.Task
	if tenant.ID() != f.tenant {
		return out, nil
	}
	for _, row := range f.tasks {
		out = append(out, row.task)
	}
	return out, nil
}

func (f *taskStoreFake) GetTask(_ context.Context, tenant domain.Tenant, taskID string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return nil, err
	}
	task := row.task
	return &task, nil
}

func (f *taskStoreFake) AssignTask(_ context.Context, tenant domain.Tenant, taskID string, assignment domain.TaskAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return err
	}
	if assignment.Reviewer.Set {
		row.reviewer = assignment.Reviewer.Value
	}
	return nil
}

func (f *taskStoreFake) CreateTask(_ context.Context, _ domain.Tenant, task domain.NewTask) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.created {
		if existing.ID == task.ID {
			return false, nil
		}
	}
	f.created = append(f.created, task)
	return true, nil
}

func (f *taskStoreFake) ListChecklist(_ context.Context, tenant domain.Tenant, taskID string) ([]domain.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return nil, err
	}
	return row.checklist, nil
}

func (f *taskStoreFake) CreateChecklistItem(_ context.Context, tenant domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return nil, err
	}
	item := domain.ChecklistItem{ID: fmt.Sprintf("chk-%d", len(row.checklist)+1), TaskID: taskID, Title: draft.Title, Required: draft.Required != nil && *draft.Required}
	row.checklist = append(row.checklist, item)
	return &item, nil
}

func (f *taskStoreFake) UpdateChecklistItem(_ context.Context, tenant domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return nil, err
	}
	for i := range row.checklist {
		if row.checklist[i].ID == itemID {
			row.checklist[i].Done = done
			item := row.checklist[i]
			return &item, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "checklist", errors.New(itemID))
}

func (f *taskStoreFake) DeleteChecklistItem(_ context.Context, tenant domain.Tenant, taskID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.row(tenant, taskID)
	if err != nil {
		return err
	}
	for i := range row.checklist {
		if row.checklist[i].ID == itemID {
			row.checklist = append(row.checklist[:i], row.checklist[i+1:]...)
			return nil
		}
	}
	return domain.WrapError(domain.ErrNotFound, "checklist", errors.New(itemID))
}

func (f *taskStoreFake) WithinTaskTx(ctx context.Context, tenant domain.Tenant, fn func(context.Context, ports.TaskTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &taskTxFake{store: f, tenant: tenant}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, status := range tx.pending {
		f.tasks[id].task.Status = status
	}
	return nil
}

type taskTxFake struct {
	store   *taskStoreFake
	tenant  domain.Tenant
	pending map[string]domain.StatusRef
}

func (tx *taskTxFake) LockTask(_ context.Context, taskID string) (*domain.TaskLock, error) {
	row, err := tx.store.row(tx.tenant, taskID)
	if err != nil {
		return nil, err
	}
	return &domain.TaskLock{ID: taskID, Status: row.task.Status, ReviewerID: row.reviewer, LawsuitID: row.task.Lawsuit.ID, LawsuitNumber: row.task.Lawsuit.Number}, nil
}

func (tx *taskTxFake) ResolveStatus(_ context.Context, change domain.StatusChange) (*domain.StatusRef, error) {
	for name, id := range statusIDs {
		if id == change.StatusID || (change.StatusID == "" && string(name) == change.StatusName) {
			return &domain.StatusRef{ID: id, Name: name}, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "status", errors.New("unknown"))
}

func (tx *taskTxFake) ListChecklist(_ context.Context, taskID string) ([]domain.ChecklistItem, error) {
	row, err := tx.store.row(tx.tenant, taskID)
	if err != nil {
		return nil, err
	}
	return row.checklist, nil
}

func (tx *taskTxFake) SetTaskStatus(_ context.Context, taskID, statusID string) error {
	if tx.store.statusErr != nil {
		return tx.store.statusErr
	}
	if tx.pending == nil {
		tx.pending = map[string]domain.StatusRef{}
	}
	for name, id := range statusIDs {
		if id == statusID {
			tx.pending[taskID] = domain.StatusRef{ID: id, Name: name}
		}
	}
	return nil
}

type storageFake struct {
	calls   int
	err     error
	deleted []string
}

func (f *storageFake) StoreProtocolDocument(_ context.Context, file domain.ProtocolFile, lawsuitNumber, _ string) (domain.DocumentMetadata, error) {
	f.calls++
	if f.err != nil {
		return domain.DocumentMetadata{}, f.err
	}
	return domain.DocumentMetadata{Key: lawsuitNumber + "/" + file.Filename, Filename: file.Filename, Size: int64(len(file.Content))}, nil
}

func (f *storageFake) DeleteProtocolDocument(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type inspectorFake struct {
	pages int
	err   error
}

func (f inspectorFake) Inspect(domain.ProtocolFile) (int, error) { return f.pages, f.err }

func fixedNow() time.Time { return time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC) }

func newTaskFixture() (*taskStoreFake, *storageFake, *TaskUseCase) {
	store := newTaskStoreFake("t1")
	storage := &storageFake{}
	return store, storage, NewTaskUseCase(store, storage, inspectorFake{pages: 2}, nil, nil, fixedNow)
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	reviewer := "rev-1"
	tests := []struct {
		name     string
		from     domain.TaskStatus
		reviewer *string
		to       domain.TaskStatus
		wantErr  error
	}{
		{name: "start drafting", from: domain.TaskAwaiting, to: domain.TaskDrafting},
		{name: "skip review without reviewer", from: domain.TaskDrafting, to: domain.TaskReadyToProtocol},
		{name: "skip review with reviewer", from: domain.TaskDrafting, reviewer: &reviewer, to: domain.TaskReadyToProtocol, wantErr: domain.ErrUnprocessable},
		{name: "review", from: domain.TaskDrafting, reviewer: &reviewer, to: domain.TaskInReview},
		{name: "backwards", from: domain.TaskInReview, to: domain.TaskAwaiting, wantErr: domain.ErrUnprocessable},
		{name: "same state", from: domain.TaskInReview, to: domain.TaskInReview},
		{name: "terminal same state", from: domain.TaskProtocolled, to: domain.TaskProtocolled},
		{name: "terminal", from: domain.TaskProtocolled, to: domain.TaskDrafting, wantErr: domain.ErrUnprocessable},
		{name: "protocolado only through protocol", from: domain.TaskReadyToProtocol, to: domain.TaskProtocolled, wantErr: domain.ErrUnprocessable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, uc := newTaskFixture()
			store.add("task-1", tt.from, tt.reviewer, nil)

			task, err := uc.UpdateStatus(context.Background(), testTenant("t1"), "task-1", domain.StatusChange{StatusName: string(tt.to)})
			if tt.wantErr != nil {
				if !domain.IsKind(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if store.tasks["task-1"].task.Status.Name != tt.from {
					t.Fatalf("status changed on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
			if task.Status.Name != tt.to {
				t.Fatalf("expected %s, got %s", tt.to, task.Status.Name)
			}
		})
	}
}

func TestUpdateStatusByIDAndUnknownName(t *testing.T) {
	store, _, uc := newTaskFixture()
	store.add("task-1", domain.TaskAwaiting, nil, nil)

	task, err := uc.UpdateStatus(context.Background(), testTenant("t1"), "task-1", domain.StatusChange{StatusID: statusIDs[domain.TaskDrafting]})
	if err != nil || task.Status.Name != domain.TaskDrafting {
		t.Fatalf("unexpected result %+v (%v)", task, err)
	}

	_, err = uc.UpdateStatus(context.Background(), testTenant("t1"), "task-1", domain.StatusChange{StatusName: "Arquivado"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = uc.UpdateStatus(context.Background(), testTenant("t2"), "task-1", domain.StatusChange{StatusName: "em revisão"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
}

func TestProtocolTaskChecksRequiredChecklistFirst(t *testing.T) {
	store, storage, uc := newTaskFixture()
	store.add("task-1", domain.TaskReadyToProtocol, nil, nil,
		domain.ChecklistItem{ID: "c1", Title: "Revisar", Required: true},
		domain.ChecklistItem{ID: "c2", Title: "Opcional", Done: true},
	)

	for _, file := range []*domain.ProtocolFile{nil, {Filename: "p.pdf", Content: []byte("%PDF")}} {
		_, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", file)
		if !domain.IsKind(err, domain.ErrUnprocessable) {
			t.Fatalf("expected unprocessable, got %v", err)
		}
	}
	if storage.calls != 0 {
		t.Fatalf("storage must not be called with an incomplete checklist")
	}
}

func TestProtocolTaskStoresDocument(t *testing.T) {
	store, storage, uc := newTaskFixture()
	store.add("task-1", domain.TaskReadyToProtocol, nil, nil,
		domain.ChecklistItem{ID: "c1", Title: "Revisar", Required: true, Done: true},
	)

	_, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", nil)
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected unprocessable without file, got %v", err)
	}

	result, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", &domain.ProtocolFile{Filename: "p.pdf", Content: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("ProtocolTask() error = %v", err)
	}
	if result.Task.Status.Name != domain.TaskProtocolled {
		t.Fatalf("expected Protocolado, got %s", result.Task.Status.Name)
	}
	if result.Document.Pages != 2 || result.Document.Key != "0001/p.pdf" || storage.calls != 1 {
		t.Fatalf("unexpected document %+v (calls=%d)", result.Document, storage.calls)
	}

	_, err = uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", &domain.ProtocolFile{Filename: "p.pdf", Content: []byte("%PDF-1.4")})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second protocol, got %v", err)
	}
}

func TestProtocolTaskRejectsInvalidPDFBeforeLocking(t *testing.T) {
	store := newTaskStoreFake("t1")
	store.add("task-1", domain.TaskReadyToProtocol, nil, nil)
	uc := NewTaskUseCase(store, &storageFake{}, inspectorFake{err: errors.New("not a pdf")}, nil, nil, fixedNow)

	_, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", &domain.ProtocolFile{Filename: "x.pdf", Content: []byte("oops")})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProtocolTaskRollsBackWhenStorageFails(t *testing.T) {
	store, storage, uc := newTaskFixture()
	store.add("task-1", domain.TaskReadyToProtocol, nil, nil)
	storage.err = domain.WrapError(domain.ErrTemporary, "store", errors.New("disk full"))

	_, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", &domain.ProtocolFile{Filename: "p.pdf", Content: []byte("%PDF")})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if store.tasks["task-1"].task.Status.Name != domain.TaskReadyToProtocol {
		t.Fatalf("status must not change when storage fails")
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("nothing stored, nothing to discard: %v", storage.deleted)
	}
}

func TestProtocolTaskDiscardsDocumentWhenStatusUpdateFails(t *testing.T) {
	store, storage, uc := newTaskFixture()
	store.add("task-1", domain.TaskReadyToProtocol, nil, nil)
	store.statusErr = domain.WrapError(domain.ErrTemporary, "set status", errors.New("connection reset"))

	_, err := uc.ProtocolTask(context.Background(), testTenant("t1"), "task-1", &domain.ProtocolFile{Filename: "p.pdf", Content: []byte("%PDF")})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if storage.calls != 1 || len(storage.deleted) != 1 || storage.deleted[0] != "0001/p.pdf" {
		t.Fatalf("stored document must be discarded, calls=%d deleted=%v", storage.calls, storage.deleted)
	}
	if store.tasks["task-1"].task.Status.Name != domain.TaskReadyToProtocol {
		t.Fatalf("status must not change")
	}
}

func TestListTasksDerivesPriority(t *testing.T) {
	store, _, uc := newTaskFixture()
	day := func(d int) *time.Time {
		v := time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	store.add("overdue", domain.TaskDrafting, nil, day(9))
	store.add("today", domain.TaskDrafting, nil, day(10))
	store.add("soon", domain.TaskDrafting, nil, day(13))
	store.add("later", domain.TaskDrafting, nil, day(14))
	store.add("none", domain.TaskDrafting, nil, nil)

	tasks, err := uc.ListTasks(context.Background(), testTenant("t1"), domain.TaskFilter{StatusName: "em elaboração"})
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	want := map[string]domain.TaskPriority{
		"overdue": domain.PriorityCritical,
		"today":   domain.PriorityCritical,
		"soon":    domain.PriorityWarning,
		"later":   domain.PriorityOK,
		"none":    domain.PriorityOK,
	}
	for _, task := range tasks {
		if task.Priority != want[task.ID] {
			t.Fatalf("task %s: expected %s, got %s", task.ID, want[task.ID], task.Priority)
		}
	}
	if store.filter.StatusName != string(domain.TaskDrafting) {
		t.Fatalf("expected canonical status name, got %q", store.filter.StatusName)
	}

	if _, err := uc.ListTasks(context.Background(), testTenant("t1"), domain.TaskFilter{AssigneeID: "x"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignTaskEnablesReviewGate(t *testing.T) {
	store, _, uc := newTaskFixture()
	store.add("task-1", domain.TaskDrafting, nil, nil)
	reviewer := "6f1c2b9e-8a51-4c8e-9d2c-3f8a1b7e5d40"

	if _, err := uc.AssignTask(context.Background(), testTenant("t1"), "task-1", domain.TaskAssignment{
		Reviewer: domain.OptionalID{Set: true, Value: &reviewer},
	}); err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}
	_, err := uc.UpdateStatus(context.Background(), testTenant("t1"), "task-1", domain.StatusChange{StatusName: string(domain.TaskReadyToProtocol)})
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected review gate, got %v", err)
	}

	if _, err := uc.AssignTask(context.Background(), testTenant("t1"), "task-1", domain.TaskAssignment{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error for empty assignment, got %v", err)
	}
}

func TestChecklistLifecycle(t *testing.T) {
	store, _, uc := newTaskFixture()
	store.add("task-1", domain.TaskDrafting, nil, nil)
	ctx := context.Background()
	tenant := testTenant("t1")
	required := true

	if _, err := uc.CreateChecklistItem(ctx, tenant, "task-1", domain.ChecklistDraft{Title: "  "}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	item, err := uc.CreateChecklistItem(ctx, tenant, "task-1", domain.ChecklistDraft{Title: "Anexar procuração", Required: &required})
	if err != nil {
		t.Fatalf("CreateChecklistItem() error = %v", err)
	}
	updated, err := uc.UpdateChecklistItem(ctx, tenant, "task-1", item.ID, true)
	if err != nil || !updated.Done {
		t.Fatalf("unexpected update %+v (%v)", updated, err)
	}
	items, err := uc.ListChecklist(ctx, tenant, "task-1")
	if err != nil || len(items) != 1 {
		t.Fatalf("unexpected checklist %+v (%v)", items, err)
	}
	if err := uc.DeleteChecklistItem(ctx, tenant, "task-1", item.ID); err != nil {
		t.Fatalf("DeleteChecklistItem() error = %v", err)
	}
	if err := uc.DeleteChecklistItem(ctx, tenant, "task-1", item.ID); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
