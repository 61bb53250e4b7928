package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// TaskObserver receives one call per status transition attempt.
type TaskObserver interface {
	ObserveTransition(to, outcome string)
}

type noopTaskObserver struct{}

func (noopTaskObserver) ObserveTransition(string, string) {}

type TaskUseCase struct {
	store     ports.TaskStore
	storage   ports.ProtocolStorage
	inspector ports.DocumentInspector
	observer  TaskObserver
	logger    *slog.Logger
	now       func() time.Time
}

func NewTaskUseCase(
	store ports.TaskStore,
	storage ports.ProtocolStorage,
	inspector ports.DocumentInspector,
	observer TaskObserver,
	logger *slog.Logger,
	now func() time.Time,
) *TaskUseCase {
	if observer == nil {
		observer = noopTaskObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &TaskUseCase{
		store:     store,
		storage:   storage,
		inspector: inspector,
		observer:  observer,
		logger:    logger,
		now:       now,
	}
}

func (uc *TaskUseCase) ListTasks(ctx context.Context, tenant domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateTaskFilter(filter); err != nil {
		return nil, err
	}
	if filter.StatusName != "" {
		status, _ := domain.ParseTaskStatus(filter.StatusName)
		filter.StatusName = string(status)
	}

	tasks, err := uc.store.ListTasks(ctx, tenant, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	now := uc.now()
	for i := range tasks {
		tasks[i].Priority = domain.PriorityFor(tasks[i].DueDate, now)
	}
	return tasks, nil
}

func (uc *TaskUseCase) GetTask(ctx context.Context, tenant domain.Tenant, taskID string) (*domain.Task, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, domain.NewValidationError("id da tarefa é obrigatório.")
	}
	task, err := uc.store.GetTask(ctx, tenant, taskID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, taskNotFound()
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, taskNotFound()
	}
	task.Priority = domain.PriorityFor(task.DueDate, uc.now())
	return task, nil
}

func (uc *TaskUseCase) AssignTask(ctx context.Context, tenant domain.Tenant, taskID string, assignment domain.TaskAssignment) (*domain.Task, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	var details []string
	if !assignment.Assignee.Set && !assignment.Reviewer.Set {
		details = append(details, "informe responsavel_id e/ou revisor_id.")
	}
	if !validOptionalUUID(assignment.Assignee) {
		details = append(details, "responsavel_id deve ser um UUID válido.")
	}
	if !validOptionalUUID(assignment.Reviewer) {
		details = append(details, "revisor_id deve ser um UUID válido.")
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError(details...)
	}

	if err := uc.store.AssignTask(ctx, tenant, taskID, assignment); err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, taskNotFound()
		}
		return nil, fmt.Errorf("assign task: %w", err)
	}
	return uc.GetTask(ctx, tenant, taskID)
}

func (uc *TaskUseCase) ListChecklist(ctx context.Context, tenant domain.Tenant, taskID string) ([]domain.ChecklistItem, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	items, err := uc.store.ListChecklist(ctx, tenant, taskID)
	if err != nil {
		return nil, checklistError("list checklist", err)
	}
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	return items, nil
}

func (uc *TaskUseCase) CreateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	var details []string
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		details = append(details, "titulo é obrigatório.")
	}
	if draft.Order != nil && *draft.Order < 0 {
		details = append(details, "ordem não pode ser negativa.")
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError(details...)
	}

	item, err := uc.store.CreateChecklistItem(ctx, tenant, taskID, draft)
	if err != nil {
		return nil, checklistError("create checklist item", err)
	}
	return item, nil
}

func (uc *TaskUseCase) UpdateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	item, err := uc.store.UpdateChecklistItem(ctx, tenant, taskID, itemID, done)
	if err != nil {
		return nil, checklistError("update checklist item", err)
	}
	return item, nil
}

func (uc *TaskUseCase) DeleteChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string) error {
	if err := requireTenant(tenant); err != nil {
		return err
	}
	if err := uc.store.DeleteChecklistItem(ctx, tenant, taskID, itemID); err != nil {
		return checklistError("delete checklist item", err)
	}
	return nil
}

// UpdateStatus moves a task along TaskTransitions. Targeting the current
// status is a no-op. Protocolado is reached only through ProtocolTask.
func (uc *TaskUseCase) UpdateStatus(ctx context.Context, tenant domain.Tenant, taskID string, change domain.StatusChange) (*domain.Task, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	change.StatusID = strings.TrimSpace(change.StatusID)
	change.StatusName = strings.TrimSpace(change.StatusName)
	if change.StatusID == "" && change.StatusName == "" {
		return nil, domain.NewValidationError("informe status_id ou status.")
	}
	if change.StatusID == "" {
		status, ok := domain.ParseTaskStatus(change.StatusName)
		if !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("status %q não existe.", change.StatusName))
		}
		change.StatusName = string(status)
	}

	var target domain.TaskStatus
	changed := false
	err := uc.store.WithinTaskTx(ctx, tenant, func(ctx context.Context, tx ports.TaskTx) error {
		lock, err := lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		resolved, err := tx.ResolveStatus(ctx, change)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				return domain.NewValidationError("status informado não existe.")
			}
			return fmt.Errorf("resolve status: %w", err)
		}
		target = resolved.Name

		if lock.Status.Name == target {
			return nil
		}
		if target == domain.TaskProtocolled {
			return domain.NewError(domain.ErrUnprocessable, "Use o protocolo da tarefa para marcá-la como Protocolado.")
		}
		if !domain.CanTransition(lock.Status.Name, target, lock.ReviewerID != nil) {
			return transitionNotAllowed(lock.Status.Name, target)
		}
		if err := tx.SetTaskStatus(ctx, taskID, resolved.ID); err != nil {
			return fmt.Errorf("set task status: %w", err)
		}
		changed = true
		return nil
	})
	uc.observer.ObserveTransition(string(target), outcomeLabel(err))
	if err != nil {
		return nil, err
	}
	if changed {
		uc.logger.Info("task_status_changed", "tenant_id", tenant.ID(), "task_id", taskID, "status", target)
	}
	return uc.GetTask(ctx, tenant, taskID)
}

// ProtocolTask stores the protocol document and moves the task from
// Pronto para Protocolo to Protocolado. Required checklist items are checked
// before the file, so an incomplete checklist is always reported first.
func (uc *TaskUseCase) ProtocolTask(ctx context.Context, tenant domain.Tenant, taskID string, file *domain.ProtocolFile) (*domain.ProtocolResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	pages := 0
	if hasContent(file) && uc.inspector != nil {
		n, err := uc.inspector.Inspect(*file)
		if err != nil {
			return nil, domain.NewValidationError("arquivo deve ser um PDF válido.")
		}
		pages = n
	}

	var document domain.DocumentMetadata
	err := uc.store.WithinTaskTx(ctx, tenant, func(ctx context.Context, tx ports.TaskTx) error {
		lock, err := lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if lock.Status.Name == domain.TaskProtocolled {
			return domain.NewError(domain.ErrConflict, "Tarefa já protocolada.")
		}
		if !domain.CanTransition(lock.Status.Name, domain.TaskProtocolled, lock.ReviewerID != nil) {
			return transitionNotAllowed(lock.Status.Name, domain.TaskProtocolled)
		}

		checklist, err := tx.ListChecklist(ctx, taskID)
		if err != nil {
			return fmt.Errorf("list checklist: %w", err)
		}
		if pending := domain.PendingRequired(checklist); len(pending) > 0 {
			titles := make([]string, 0, len(pending))
			for _, item := range pending {
				titles = append(titles, item.Title)
			}
			return domain.NewError(domain.ErrUnprocessable,
				"Checklist obrigatório incompleto: "+strings.Join(titles, ", ")+".")
		}
		if !hasContent(file) {
			return domain.NewError(domain.ErrUnprocessable, "Arquivo do protocolo é obrigatório.")
		}
		if uc.storage == nil {
			return domain.NewError(domain.ErrTemporary, "Armazenamento de documentos indisponível.")
		}

		document, err = uc.storage.StoreProtocolDocument(ctx, *file, lock.LawsuitNumber, lock.LawsuitID)
		if err != nil {
			return fmt.Errorf("store protocol document: %w", err)
		}
		if document.Pages == 0 {
			document.Pages = pages
		}

		status, err := tx.ResolveStatus(ctx, domain.StatusChange{StatusName: string(domain.TaskProtocolled)})
		if err != nil {
			return fmt.Errorf("resolve status %s: %w", domain.TaskProtocolled, err)
		}
		if err := tx.SetTaskStatus(ctx, taskID, status.ID); err != nil {
			return fmt.Errorf("set task status: %w", err)
		}
		return nil
	})
	uc.observer.ObserveTransition(string(domain.TaskProtocolled), outcomeLabel(err))
	if err != nil {
		if document.Key != "" {
			uc.discardDocument(ctx, taskID, document.Key)
		}
		return nil, err
	}

	uc.logger.Info("task_protocolled", "tenant_id", tenant.ID(), "task_id", taskID, "document", document.Key)
	task, err := uc.GetTask(ctx, tenant, taskID)
	if err != nil {
		return nil, err
	}
	return &domain.ProtocolResult{Task: task, Document: document}, nil
}

func lockTask(ctx context.Context, tx ports.TaskTx, taskID string) (*domain.TaskLock, error) {
	lock, err := tx.LockTask(ctx, taskID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, taskNotFound()
		}
		return nil, fmt.Errorf("lock task: %w", err)
	}
	if lock == nil {
		return nil, taskNotFound()
	}
	return lock, nil
}

func validateTaskFilter(filter domain.TaskFilter) error {
	var details []string
	if filter.AssigneeID != "" {
		if _, err := uuid.Parse(filter.AssigneeID); err != nil {
			details = append(details, "responsavel_id deve ser um UUID válido.")
		}
	}
	if filter.StatusID != "" {
		if _, err := uuid.Parse(filter.StatusID); err != nil {
			details = append(details, "status_id deve ser um UUID válido.")
		}
	}
	if filter.StatusName != "" {
		if _, ok := domain.ParseTaskStatus(filter.StatusName); !ok {
			details = append(details, fmt.Sprintf("status %q não existe.", filter.StatusName))
		}
	}
	if len(details) > 0 {
		return domain.NewValidationError(details...)
	}
	return nil
}

func validOptionalUUID(id domain.OptionalID) bool {
	if !id.Set || id.Value == nil {
		return true
	}
	_, err := uuid.Parse(*id.Value)
	return err == nil
}

func hasContent(file *domain.ProtocolFile) bool {
	return file != nil && len(file.Content) > 0
}

func transitionNotAllowed(from, to domain.TaskStatus) error {
	return domain.NewError(domain.ErrUnprocessable,
		fmt.Sprintf("Transição de status não permitida: %s -> %s.", from, to))
}

func taskNotFound() error {
	return domain.NewError(domain.ErrNotFound, "Tarefa não encontrada.")
}

func checklistError(op string, err error) error {
	if domain.IsKind(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrNotFound, "Tarefa ou item de checklist não encontrado.")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// discardDocument removes a document stored by a protocol whose transaction
// did not commit.
func (uc *TaskUseCase) discardDocument(ctx context.Context, taskID, key string) {
	if err := uc.storage.DeleteProtocolDocument(context.WithoutCancel(ctx), key); err != nil {
		uc.logger.Error("protocol_document_orphaned", "task_id", taskID, "document", key, "error", err)
		return
	}
	uc.logger.Warn("protocol_document_discarded", "task_id", taskID, "document", key)
}
