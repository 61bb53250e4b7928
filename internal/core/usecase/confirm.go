package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

const (
	FlowEvent       = "evento"
	FlowPublication = "similaridade"
)

// DecisionObserver receives one call per confirmation attempt.
type DecisionObserver interface {
	ObserveDecision(flow, outcome string)
}

type noopDecisionObserver struct{}

func (noopDecisionObserver) ObserveDecision(string, string) {}

// DecisionUseCase commits user decisions. Every mutation locks the item row
// first and checks its status under that lock.
type DecisionUseCase struct {
	suggestions ports.SuggestionService
	store       ports.DecisionStore
	publisher   ports.DecisionPublisher
	observer    DecisionObserver
	logger      *slog.Logger
	now         func() time.Time
}

func NewDecisionUseCase(
	suggestions ports.SuggestionService,
	store ports.DecisionStore,
	publisher ports.DecisionPublisher,
	observer DecisionObserver,
	logger *slog.Logger,
) *DecisionUseCase {
	if observer == nil {
		observer = noopDecisionObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionUseCase{
		suggestions: suggestions,
		store:       store,
		publisher:   publisher,
		observer:    observer,
		logger:      logger,
		now:         time.Now,
	}
}

// ConfirmEvent commits the event and action chosen for a pending item.
func (uc *DecisionUseCase) ConfirmEvent(ctx context.Context, tenant domain.Tenant, userID string, decision domain.EventDecision) (*domain.ConfirmResult, error) {
	result, err := uc.confirmEvent(ctx, tenant, userID, decision)
	uc.observer.ObserveDecision(FlowEvent, outcomeLabel(err))
	return result, err
}

func (uc *DecisionUseCase) confirmEvent(ctx context.Context, tenant domain.Tenant, userID string, decision domain.EventDecision) (*domain.ConfirmResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateEventDecision(userID, decision); err != nil {
		return nil, err
	}

	suggestion, err := uc.suggestions.GetSuggestion(ctx, tenant, decision.ItemID, "")
	if err != nil {
		return nil, err
	}

	payload := buildAuditPayload(suggestion, decision)
	decisionJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal decision payload: %w", err)
	}
	var suggestedDeadline json.RawMessage
	if payload.Suggested.Deadline != nil {
		if suggestedDeadline, err = json.Marshal(payload.Suggested.Deadline); err != nil {
			return nil, fmt.Errorf("marshal suggested deadline: %w", err)
		}
	}

	var auditID string
	err = uc.store.WithinTx(ctx, tenant, func(ctx context.Context, tx ports.DecisionTx) error {
		item, err := tx.LockItem(ctx, decision.ItemID)
		if err != nil {
			return lockItemError(err)
		}
		if item == nil {
			return itemNotFound()
		}
		if item.Status != domain.ItemStatusPending {
			return domain.NewError(domain.ErrConflict, "Item já foi decidido.")
		}

		auditID, err = tx.InsertAudit(ctx, domain.AuditRecord{
			PublicationID:     decision.ItemID,
			SuggestedEventID:  payload.Suggested.EventID,
			SuggestedActionID: payload.Suggested.ActionID,
			SuggestedDeadline: suggestedDeadline,
			DecisionJSON:      string(decisionJSON),
			UserID:            userID,
		})
		if err != nil {
			return fmt.Errorf("insert audit: %w", err)
		}
		if err := tx.UpdateItemStatus(ctx, decision.ItemID, domain.ItemStatusAnalyzed); err != nil {
			return fmt.Errorf("update item status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("decision_confirmed",
		"flow", FlowEvent,
		"tenant_id", tenant.ID(),
		"item_id", decision.ItemID,
		"audit_id", auditID,
		"evento_alterado", payload.Diff.EventChanged,
		"providencia_alterada", payload.Diff.ActionChanged,
	)
	uc.publish(ctx, domain.DecisionConfirmed{
		TenantID:   tenant.ID(),
		AuditID:    auditID,
		ItemID:     decision.ItemID,
		EventID:    decision.EventID,
		ActionID:   decision.ActionID,
		Deadline:   decision.Deadline,
		AssigneeID: decision.AssigneeID,
		UserID:     userID,
		OccurredAt: uc.now().UTC(),
	})

	return &domain.ConfirmResult{Message: "Decisão registrada com sucesso.", AuditID: auditID}, nil
}

// ConfirmPublication commits the final deadline of an item registered
// without one.
func (uc *DecisionUseCase) ConfirmPublication(ctx context.Context, tenant domain.Tenant, userID string, decision domain.PublicationDecision) (*domain.ConfirmResult, error) {
	result, err := uc.confirmPublication(ctx, tenant, userID, decision)
	uc.observer.ObserveDecision(FlowPublication, outcomeLabel(err))
	return result, err
}

func (uc *DecisionUseCase) confirmPublication(ctx context.Context, tenant domain.Tenant, userID string, decision domain.PublicationDecision) (*domain.ConfirmResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validatePublicationDecision(userID, decision); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(decision.Deadline.Description)
	if description == "" {
		description = domain.DefaultDeadlineDescription
	}

	var auditID string
	err := uc.store.WithinTx(ctx, tenant, func(ctx context.Context, tx ports.DecisionTx) error {
		item, err := tx.LockItem(ctx, decision.ItemID)
		if err != nil {
			return lockItemError(err)
		}
		if item == nil {
			return itemNotFound()
		}
		if item.Status != domain.ItemStatusRegisteredNoDue {
			return domain.NewError(domain.ErrConflict, "Item não está aguardando definição de prazo.")
		}

		linkedID, err := tx.LinkedPublicationID(ctx, decision.ItemID)
		if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
			return fmt.Errorf("load publication link: %w", err)
		}
		if linkedID == "" {
			return domain.NewError(domain.ErrNotFound, "Vínculo com publicação não encontrado.")
		}
		if linkedID != decision.PublicationID {
			return domain.NewError(domain.ErrConflict, "Publicação informada não corresponde ao item.")
		}

		exists, err := tx.PublicationExists(ctx, decision.PublicationID)
		if err != nil {
			return fmt.Errorf("check publication: %w", err)
		}
		if !exists {
			return domain.NewError(domain.ErrNotFound, "Publicação não encontrada.")
		}

		auditID, err = tx.InsertAudit(ctx, domain.AuditRecord{
			PublicationID: decision.PublicationID,
			DecisionJSON:  decision.Payload,
			UserID:        userID,
		})
		if err != nil {
			return fmt.Errorf("insert audit: %w", err)
		}

		if _, err := tx.InsertDeadline(ctx, domain.Deadline{
			Description:   description,
			StartDate:     item.PublicationDate,
			DueDate:       decision.Deadline.DueDate,
			Days:          decision.Deadline.Days,
			PublicationID: decision.PublicationID,
			AuditID:       auditID,
		}); err != nil {
			return fmt.Errorf("insert deadline: %w", err)
		}

		if err := tx.UpdateItemStatus(ctx, decision.ItemID, domain.ItemStatusAnalyzedWithDue); err != nil {
			return fmt.Errorf("update item status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("decision_confirmed",
		"flow", FlowPublication,
		"tenant_id", tenant.ID(),
		"item_id", decision.ItemID,
		"publicacao_id", decision.PublicationID,
		"audit_id", auditID,
	)
	return &domain.ConfirmResult{Message: "Prazo registrado com sucesso.", AuditID: auditID}, nil
}

func (uc *DecisionUseCase) publish(ctx context.Context, event domain.DecisionConfirmed) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishDecisionConfirmed(ctx, event); err != nil {
		uc.logger.Error("decision_publish_failed", "audit_id", event.AuditID, "error", err)
	}
}

func validateEventDecision(userID string, decision domain.EventDecision) error {
	var details []string
	if strings.TrimSpace(userID) == "" {
		details = append(details, "usuario_id é obrigatório.")
	}
	if strings.TrimSpace(decision.ItemID) == "" {
		details = append(details, "idItem é obrigatório.")
	}
	if strings.TrimSpace(decision.EventID) == "" {
		details = append(details, "evento_id é obrigatório.")
	}
	if strings.TrimSpace(decision.ActionID) == "" {
		details = append(details, "providencia_id é obrigatório.")
	}
	if decision.AssigneeID != nil {
		if _, err := uuid.Parse(*decision.AssigneeID); err != nil {
			details = append(details, "responsavel_id deve ser um UUID válido.")
		}
	}
	if decision.Deadline != nil && decision.Deadline.DueDate != "" {
		if _, err := time.Parse(domain.DateLayout, decision.Deadline.DueDate); err != nil {
			details = append(details, "prazo_final.data_vencimento deve estar no formato AAAA-MM-DD.")
		}
	}
	if len(details) > 0 {
		return domain.NewValidationError(details...)
	}
	return nil
}

func validatePublicationDecision(userID string, decision domain.PublicationDecision) error {
	var details []string
	if strings.TrimSpace(userID) == "" {
		details = append(details, "usuario_id é obrigatório.")
	}
	if strings.TrimSpace(decision.ItemID) == "" {
		details = append(details, "item_similaridade_id é obrigatório.")
	}
	if strings.TrimSpace(decision.PublicationID) == "" {
		details = append(details, "publicacao_id é obrigatório.")
	}
	switch {
	case decision.Deadline == nil || strings.TrimSpace(decision.Deadline.DueDate) == "":
		details = append(details, "prazo_final com data de vencimento é obrigatório.")
	default:
		if _, err := time.Parse(domain.DateLayout, decision.Deadline.DueDate); err != nil {
			details = append(details, "prazo_final.data_vencimento deve estar no formato AAAA-MM-DD.")
		}
	}
	if strings.TrimSpace(decision.Payload) == "" {
		details = append(details, "decisao_final_json é obrigatório.")
	}
	if len(details) > 0 {
		return domain.NewValidationError(details...)
	}
	return nil
}

// buildAuditPayload diffs the fresh suggestion against the caller's decision.
func buildAuditPayload(suggestion *domain.Suggestion, decision domain.EventDecision) domain.AuditPayload {
	var suggested domain.SuggestedSnapshot
	if suggestion != nil {
		if suggestion.Event != nil {
			suggested.EventID = stringPtr(suggestion.Event.ID)
		}
		if action := suggestion.DefaultAction; action != nil {
			suggested.ActionID = stringPtr(action.ID)
			suggested.Deadline = action.Deadline
			if action.Template != nil {
				suggested.TemplateID = stringPtr(action.Template.ID)
			}
		}
	}

	final := domain.DecisionSnapshot{
		EventID:    stringPtr(decision.EventID),
		ActionID:   stringPtr(decision.ActionID),
		Deadline:   decision.Deadline,
		TemplateID: decision.TemplateID,
		Note:       decision.Note,
	}

	return domain.AuditPayload{
		Suggested: suggested,
		Decision:  final,
		Diff: domain.DecisionDiff{
			EventChanged:    !sameOptional(suggested.EventID, final.EventID),
			ActionChanged:   !sameOptional(suggested.ActionID, final.ActionID),
			DeadlineChanged: !sameDeadline(suggested.Deadline, final.Deadline),
			TemplateChanged: !sameOptional(suggested.TemplateID, final.TemplateID),
		},
	}
}

// sameDeadline compares days, kind and due date. A deadline sent as a bare
// date never equals a computed suggestion.
func sameDeadline(suggested *domain.DeadlineSuggestion, final *domain.FinalDeadline) bool {
	switch {
	case suggested == nil || final == nil:
		return suggested == nil && final == nil
	case final.DateOnly:
		return false
	}
	return sameOptionalInt(suggested.Days, final.Days) &&
		suggested.Kind == final.Kind &&
		suggested.DueDate == final.DueDate
}

func sameOptionalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func lockItemError(err error) error {
	if domain.IsKind(err, domain.ErrNotFound) {
		return itemNotFound()
	}
	return fmt.Errorf("lock item: %w", err)
}

func itemNotFound() error {
	return domain.NewError(domain.ErrNotFound, "Item não encontrado.")
}
