package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

var taskNamespace = uuid.MustParse("6c1f6a52-3f0e-4d0a-9a57-0f4f3b8b2d11")

// TaskIDForAudit derives a stable task id so replays of the same decision
// never create a second task.
func TaskIDForAudit(auditID string) string {
	return uuid.NewSHA1(taskNamespace, []byte(auditID)).String()
}

type TaskSeedUseCase struct {
	store    ports.TaskStore
	location *time.Location
	logger   *slog.Logger
}

func NewTaskSeedUseCase(store ports.TaskStore, location *time.Location, logger *slog.Logger) *TaskSeedUseCase {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskSeedUseCase{store: store, location: location, logger: logger}
}

// Seed creates the Aguardando task of a confirmed decision and reports
// whether it was new; a redelivered decision returns false without error.
func (uc *TaskSeedUseCase) Seed(ctx context.Context, event domain.DecisionConfirmed) (bool, error) {
	tenant, err := domain.NewTenant(event.TenantID)
	if err != nil {
		return false, err
	}
	if event.AuditID == "" || event.EventID == "" || event.ActionID == "" {
		return false, domain.NewValidationError("evento de decisão incompleto.")
	}

	task := domain.NewTask{
		ID:         TaskIDForAudit(event.AuditID),
		SourceID:   event.AuditID,
		ItemID:     event.ItemID,
		EventID:    event.EventID,
		ActionID:   event.ActionID,
		AssigneeID: event.AssigneeID,
	}
	if event.Deadline != nil && event.Deadline.DueDate != "" {
		due, err := time.ParseInLocation(domain.DateLayout, event.Deadline.DueDate, uc.location)
		if err != nil {
			uc.logger.Warn("task_seed_due_date_invalid", "audit_id", event.AuditID, "data_vencimento", event.Deadline.DueDate)
		} else {
			task.DueDate = &due
		}
	}

	created, err := uc.store.CreateTask(ctx, tenant, task)
	if err != nil {
		return false, fmt.Errorf("create task for audit %s: %w", event.AuditID, err)
	}
	if !created {
		uc.logger.Info("task_seed_skipped", "audit_id", event.AuditID, "task_id", task.ID)
		return false, nil
	}
	uc.logger.Info("task_seeded", "tenant_id", tenant.ID(), "audit_id", event.AuditID, "task_id", task.ID)
	return true, nil
}
