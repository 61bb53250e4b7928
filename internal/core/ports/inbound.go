package ports

import (
	"context"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// SuggestionService answers "what should happen next" for a pending item.
type SuggestionService interface {
	GetSuggestion(ctx context.Context, tenant domain.Tenant, itemID, overrideEventID string) (*domain.Suggestion, error)
}

// DecisionService commits user decisions. Each flow has its own entry point.
type DecisionService interface {
	ConfirmEvent(ctx context.Context, tenant domain.Tenant, userID string, decision domain.EventDecision) (*domain.ConfirmResult, error)
	ConfirmPublication(ctx context.Context, tenant domain.Tenant, userID string, decision domain.PublicationDecision) (*domain.ConfirmResult, error)
}

// ConciliationService moves new items out of pendente without a full decision.
type ConciliationService interface {
	Register(ctx context.Context, tenant domain.Tenant, userID, itemID string) (*domain.RegistrationResult, error)
	Discard(ctx context.Context, tenant domain.Tenant, userID, itemID, reason string) (*domain.ConfirmResult, error)
	ListPendingByUpload(ctx context.Context, tenant domain.Tenant, uploadID string) ([]domain.Item, error)
	LinkedPublication(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.LinkedPublication, error)
}

// TaskService drives the work queue.
type TaskService interface {
	ListTasks(ctx context.Context, tenant domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, tenant domain.Tenant, taskID string) (*domain.Task, error)
	AssignTask(ctx context.Context, tenant domain.Tenant, taskID string, assignment domain.TaskAssignment) (*domain.Task, error)
	ListChecklist(ctx context.Context, tenant domain.Tenant, taskID string) ([]domain.ChecklistItem, error)
	CreateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error)
	DeleteChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string) error
	UpdateStatus(ctx context.Context, tenant domain.Tenant, taskID string, change domain.StatusChange) (*domain.Task, error)
	ProtocolTask(ctx context.Context, tenant domain.Tenant, taskID string, file *domain.ProtocolFile) (*domain.ProtocolResult, error)
}

// CatalogService manages events, mappings, action rules and actions.
type CatalogService interface {
	ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error)
	CreateEvent(ctx context.Context, tenant domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error)
	UpdateEvent(ctx context.Context, tenant domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error)
	DeleteEvent(ctx context.Context, tenant domain.Tenant, eventID string) error

	ListMappings(ctx context.Context, tenant domain.Tenant) ([]domain.MatchRule, error)
	CreateMapping(ctx context.Context, tenant domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error)
	UpdateMapping(ctx context.Context, tenant domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error)
	DeleteMapping(ctx context.Context, tenant domain.Tenant, ruleID string) error

	ListEventActions(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error)
	CreateEventAction(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error)
	UpdateEventAction(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error)
	DeleteEventAction(ctx context.Context, tenant domain.Tenant, ruleID string) error

	ListActions(ctx context.Context, tenant domain.Tenant) ([]domain.Action, error)
	CreateAction(ctx context.Context, tenant domain.Tenant, action domain.Action) (*domain.Action, error)
	UpdateAction(ctx context.Context, tenant domain.Tenant, action domain.Action) (*domain.Action, error)
	DeleteAction(ctx context.Context, tenant domain.Tenant, actionID string) error
}

// TaskSeeder creates the queue task of a committed decision. created is
// false when the decision already has its task.
type TaskSeeder interface {
	Seed(ctx context.Context, event domain.DecisionConfirmed) (created bool, err error)
}
