package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// CatalogUseCase validates and persists the rule catalog of a tenant.
type CatalogUseCase struct {
	store ports.CatalogStore
}

func NewCatalogUseCase(store ports.CatalogStore) *CatalogUseCase {
	return &CatalogUseCase{store: store}
}

func (uc *CatalogUseCase) ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	events, err := uc.store.ListEvents(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []domain.WorkflowEvent{}
	}
	return events, nil
}

func (uc *CatalogUseCase) CreateEvent(ctx context.Context, tenant domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error) {
	return uc.saveEvent(ctx, tenant, event, true)
}

func (uc *CatalogUseCase) UpdateEvent(ctx context.Context, tenant domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error) {
	return uc.saveEvent(ctx, tenant, event, false)
}

func (uc *CatalogUseCase) saveEvent(ctx context.Context, tenant domain.Tenant, event domain.WorkflowEvent, create bool) (*domain.WorkflowEvent, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	event.Name = strings.TrimSpace(event.Name)
	event.Description = strings.TrimSpace(event.Description)

	var details []string
	if !create && strings.TrimSpace(event.ID) == "" {
		details = append(details, "id do evento é obrigatório.")
	}
	if event.Name == "" {
		details = append(details, "nome é obrigatório.")
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError(details...)
	}

	if create {
		event.ID = uuid.NewString()
		if err := uc.store.CreateEvent(ctx, tenant, &event); err != nil {
			return nil, catalogError("create event", "Já existe um evento com este nome.", err)
		}
		return &event, nil
	}
	if err := uc.store.UpdateEvent(ctx, tenant, &event); err != nil {
		return nil, catalogError("update event", "Já existe um evento com este nome.", err)
	}
	return &event, nil
}

func (uc *CatalogUseCase) DeleteEvent(ctx context.Context, tenant domain.Tenant, eventID string) error {
	if err := requireID(tenant, eventID, "id do evento é obrigatório."); err != nil {
		return err
	}
	if err := uc.store.DeleteEvent(ctx, tenant, eventID); err != nil {
		return catalogError("delete event", "Evento possui vínculos e não pode ser removido.", err)
	}
	return nil
}

func (uc *CatalogUseCase) ListMappings(ctx context.Context, tenant domain.Tenant) ([]domain.MatchRule, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	rules, err := uc.store.ListMappings(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	if rules == nil {
		rules = []domain.MatchRule{}
	}
	return rules, nil
}

func (uc *CatalogUseCase) CreateMapping(ctx context.Context, tenant domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error) {
	return uc.saveMapping(ctx, tenant, rule, true)
}

func (uc *CatalogUseCase) UpdateMapping(ctx context.Context, tenant domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error) {
	return uc.saveMapping(ctx, tenant, rule, false)
}

func (uc *CatalogUseCase) saveMapping(ctx context.Context, tenant domain.Tenant, rule domain.MatchRule, create bool) (*domain.MatchRule, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	rule.Description = strings.TrimSpace(rule.Description)
	if rule.Kind == "" {
		rule.Kind = domain.MatchExact
	}

	var details []string
	if !create && strings.TrimSpace(rule.ID) == "" {
		details = append(details, "id do mapeamento é obrigatório.")
	}
	if _, ok := NormalizeText(rule.Description); !ok {
		details = append(details, "andamento_descricao é obrigatório.")
	}
	if strings.TrimSpace(rule.EventID) == "" {
		details = append(details, "evento_id é obrigatório.")
	}
	if !rule.Kind.Valid() {
		details = append(details, "tipo_match deve ser 'exato' ou 'contem'.")
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError(details...)
	}

	if create {
		rule.ID = uuid.NewString()
		if err := uc.store.CreateMapping(ctx, tenant, &rule); err != nil {
			return nil, catalogError("create mapping", "Já existe um mapeamento para este andamento.", err)
		}
		return &rule, nil
	}
	if err := uc.store.UpdateMapping(ctx, tenant, &rule); err != nil {
		return nil, catalogError("update mapping", "Já existe um mapeamento para este andamento.", err)
	}
	return &rule, nil
}

func (uc *CatalogUseCase) DeleteMapping(ctx context.Context, tenant domain.Tenant, ruleID string) error {
	if err := requireID(tenant, ruleID, "id do mapeamento é obrigatório."); err != nil {
		return err
	}
	if err := uc.store.DeleteMapping(ctx, tenant, ruleID); err != nil {
		return catalogError("delete mapping", "", err)
	}
	return nil
}

func (uc *CatalogUseCase) ListEventActions(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error) {
	if err := requireID(tenant, eventID, "evento_id é obrigatório."); err != nil {
		return nil, err
	}
	rules, err := uc.store.ListEventActions(ctx, tenant, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event actions: %w", err)
	}
	if rules == nil {
		rules = []domain.ActionRule{}
	}
	return rules, nil
}

func (uc *CatalogUseCase) CreateEventAction(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error) {
	return uc.saveEventAction(ctx, tenant, rule, true)
}

func (uc *CatalogUseCase) UpdateEventAction(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error) {
	return uc.saveEventAction(ctx, tenant, rule, false)
}

// saveEventAction relies on the store to clear the previous default of the
// event in the same transaction. Updates of unknown rules are not found.
func (uc *CatalogUseCase) saveEventAction(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule, create bool) (*domain.ActionRule, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateActionRule(rule, create); err != nil {
		return nil, err
	}
	if rule.DueKind != "" {
		kind, _ := domain.ParseDeadlineKind(string(rule.DueKind))
		rule.DueKind = kind
	}
	rule.LegalNote = strings.TrimSpace(rule.LegalNote)
	save, op := uc.store.UpdateEventAction, "update event action"
	if create {
		rule.ID = uuid.NewString()
		save, op = uc.store.CreateEventAction, "create event action"
	}

	if err := save(ctx, tenant, &rule); err != nil {
		return nil, catalogError(op, "Providência já vinculada a este evento.", err)
	}
	return &rule, nil
}

func validateActionRule(rule domain.ActionRule, create bool) error {
	var details []string
	if !create && strings.TrimSpace(rule.ID) == "" {
		details = append(details, "id da regra é obrigatório.")
	}
	if strings.TrimSpace(rule.EventID) == "" {
		details = append(details, "evento_id é obrigatório.")
	}
	if strings.TrimSpace(rule.ActionID) == "" {
		details = append(details, "providencia_id é obrigatório.")
	}
	if rule.Priority < 0 {
		details = append(details, "prioridade não pode ser negativa.")
	}
	if rule.DueKind != "" {
		if _, ok := domain.ParseDeadlineKind(string(rule.DueKind)); !ok {
			details = append(details, "tipo_prazo deve ser 'util', 'corrido' ou 'data_fixa'.")
		}
	}
	if rule.DueDays != nil && *rule.DueDays <= 0 {
		details = append(details, "prazo_dias deve ser maior que zero.")
	}
	if rule.GeneratesDue {
		kind, ok := domain.ParseDeadlineKind(string(rule.DueKind))
		switch {
		case !ok:
			details = append(details, "tipo_prazo é obrigatório quando gera_prazo é verdadeiro.")
		case kind != domain.DeadlineFixed && rule.DueDays == nil:
			details = append(details, "prazo_dias é obrigatório quando gera_prazo é verdadeiro.")
		}
	}
	if len(details) > 0 {
		return domain.NewValidationError(details...)
	}
	return nil
}

func (uc *CatalogUseCase) DeleteEventAction(ctx context.Context, tenant domain.Tenant, ruleID string) error {
	if err := requireID(tenant, ruleID, "id da regra é obrigatório."); err != nil {
		return err
	}
	if err := uc.store.DeleteEventAction(ctx, tenant, ruleID); err != nil {
		return catalogError("delete event action", "", err)
	}
	return nil
}

func (uc *CatalogUseCase) ListActions(ctx context.Context, tenant domain.Tenant) ([]domain.Action, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	actions, err := uc.store.ListActions(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	if actions == nil {
		actions = []domain.Action{}
	}
	return actions, nil
}

func (uc *CatalogUseCase) CreateAction(ctx context.Context, tenant domain.Tenant, action domain.Action) (*domain.Action, error) {
	return uc.saveAction(ctx, tenant, action, true)
}

func (uc *CatalogUseCase) UpdateAction(ctx context.Context, tenant domain.Tenant, action domain.Action) (*domain.Action, error) {
	return uc.saveAction(ctx, tenant, action, false)
}

func (uc *CatalogUseCase) saveAction(ctx context.Context, tenant domain.Tenant, action domain.Action, create bool) (*domain.Action, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	action.Name = strings.TrimSpace(action.Name)
	action.Description = strings.TrimSpace(action.Description)

	var details []string
	if !create && strings.TrimSpace(action.ID) == "" {
		details = append(details, "id da providência é obrigatório.")
	}
	if action.Name == "" {
		details = append(details, "nome é obrigatório.")
	}
	if len(details) > 0 {
		return nil, domain.NewValidationError(details...)
	}

	if create {
		action.ID = uuid.NewString()
		if err := uc.store.CreateAction(ctx, tenant, &action); err != nil {
			return nil, catalogError("create action", "Já existe uma providência com este nome.", err)
		}
		return &action, nil
	}
	if err := uc.store.UpdateAction(ctx, tenant, &action); err != nil {
		return nil, catalogError("update action", "Já existe uma providência com este nome.", err)
	}
	return &action, nil
}

func (uc *CatalogUseCase) DeleteAction(ctx context.Context, tenant domain.Tenant, actionID string) error {
	if err := requireID(tenant, actionID, "id da providência é obrigatório."); err != nil {
		return err
	}
	if err := uc.store.DeleteAction(ctx, tenant, actionID); err != nil {
		return catalogError("delete action", "Providência possui vínculos e não pode ser removida.", err)
	}
	return nil
}

func requireID(tenant domain.Tenant, id, message string) error {
	if err := requireTenant(tenant); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError(message)
	}
	return nil
}

// catalogError gives store conflicts and misses a client-safe message.
func catalogError(op, conflictMessage string, err error) error {
	switch {
	case domain.PublicMessage(err) != "":
		return err
	case domain.IsKind(err, domain.ErrNotFound):
		return domain.NewError(domain.ErrNotFound, "Registro não encontrado.")
	case domain.IsKind(err, domain.ErrConflict) && conflictMessage != "":
		return domain.NewError(domain.ErrConflict, conflictMessage)
	case domain.IsKind(err, domain.ErrConflict):
		return domain.NewError(domain.ErrConflict, "Registro em conflito com dados existentes.")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
