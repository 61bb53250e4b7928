package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// RuleStore reads the classification and recommendation catalog.
type RuleStore interface {
	ListActiveEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error)
	GetEvent(ctx context.Context, tenant domain.Tenant, eventID string) (*domain.WorkflowEvent, error)
	FindEventByName(ctx context.Context, tenant domain.Tenant, name string) (*domain.WorkflowEvent, error)
	ListMatchRules(ctx context.Context, tenant domain.Tenant, kind domain.MatchKind) ([]domain.MatchRule, error)
	ListActionRules(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error)
	OldestActiveTemplate(ctx context.Context, tenant domain.Tenant, actionID string) (*domain.DocumentTemplate, error)
}

// ItemReader reads pending docket items without taking locks.
type ItemReader interface {
	GetItem(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.Item, error)
	ListPendingByUpload(ctx context.Context, tenant domain.Tenant, uploadID string) ([]domain.Item, error)
	LinkedPublication(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.LinkedPublication, error)
}

// DecisionStore runs decision writes inside one tenant-scoped transaction.
// The transaction is rolled back when fn returns an error.
type DecisionStore interface {
	WithinTx(ctx context.Context, tenant domain.Tenant, fn func(ctx context.Context, tx DecisionTx) error) error
}

// DecisionTx is bound to the tenant of the enclosing transaction.
type DecisionTx interface {
	// LockItem reads the item with SELECT ... FOR UPDATE.
	LockItem(ctx context.Context, itemID string) (*domain.Item, error)
	UpdateItemStatus(ctx context.Context, itemID string, status domain.ItemStatus) error
	InsertAudit(ctx context.Context, record domain.AuditRecord) (string, error)
	LinkedPublicationID(ctx context.Context, itemID string) (string, error)
	PublicationExists(ctx context.Context, publicationID string) (bool, error)
	InsertDeadline(ctx context.Context, deadline domain.Deadline) (string, error)
	EnsureLawsuit(ctx context.Context, number string) (string, error)
	InsertPublication(ctx context.Context, publication domain.Publication) (string, error)
	InsertPublicationEmbedding(ctx context.Context, publication domain.Publication) error
	InsertAndamento(ctx context.Context, lawsuitID, description, date string) error
	LinkPublication(ctx context.Context, itemID, publicationID string) error
	InsertDiscard(ctx context.Context, discard domain.Discard) error
}

// CatalogStore persists the tenant-configurable rule catalog.
type CatalogStore interface {
	ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error)
	CreateEvent(ctx context.Context, tenant domain.Tenant, event *domain.WorkflowEvent) error
	UpdateEvent(ctx context.Context, tenant domain.Tenant, event *domain.WorkflowEvent) error
	DeleteEvent(ctx context.Context, tenant domain.Tenant, eventID string) error

	ListMappings(ctx context.Context, tenant domain.Tenant) ([]domain.MatchRule, error)
	CreateMapping(ctx context.Context, tenant domain.Tenant, rule *domain.MatchRule) error
	UpdateMapping(ctx context.Context, tenant domain.Tenant, rule *domain.MatchRule) error
	DeleteMapping(ctx context.Context, tenant domain.Tenant, ruleID string) error

	ListEventActions(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error)
	// CreateEventAction and UpdateEventAction clear any previous default of
	// the same event in the same transaction when rule is the default.
	// UpdateEventAction never creates a rule.
	CreateEventAction(ctx context.Context, tenant domain.Tenant, rule *domain.ActionRule) error
	UpdateEventAction(ctx context.Context, tenant domain.Tenant, rule *domain.ActionRule) error
	DeleteEventAction(ctx context.Context, tenant domain.Tenant, ruleID string) error

	ListActions(ctx context.Context, tenant domain.Tenant) ([]domain.Action, error)
	CreateAction(ctx context.Context, tenant domain.Tenant, action *domain.Action) error
	UpdateAction(ctx context.Context, tenant domain.Tenant, action *domain.Action) error
	DeleteAction(ctx context.Context, tenant domain.Tenant, actionID string) error
}

// TaskStore persists the work queue.
type TaskStore interface {
	ListTasks(ctx context.Context, tenant domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, tenant domain.Tenant, taskID string) (*domain.Task, error)
	AssignTask(ctx context.Context, tenant domain.Tenant, taskID string, assignment domain.TaskAssignment) error
	CreateTask(ctx context.Context, tenant domain.Tenant, task domain.NewTask) (bool, error)

	ListChecklist(ctx context.Context, tenant domain.Tenant, taskID string) ([]domain.ChecklistItem, error)
	CreateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error)
	DeleteChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string) error

	WithinTaskTx(ctx context.Context, tenant domain.Tenant, fn func(ctx context.Context, tx TaskTx) error) error
}

// TaskTx is bound to the tenant of the enclosing transaction.
type TaskTx interface {
	// LockTask reads the task with SELECT ... FOR UPDATE.
	LockTask(ctx context.Context, taskID string) (*domain.TaskLock, error)
	ResolveStatus(ctx context.Context, change domain.StatusChange) (*domain.StatusRef, error)
	ListChecklist(ctx context.Context, taskID string) ([]domain.ChecklistItem, error)
	SetTaskStatus(ctx context.Context, taskID, statusID string) error
}

// BusinessCalendar adds business days honoring weekends and holidays.
type BusinessCalendar interface {
	AddBusinessDays(ctx context.Context, start time.Time, days int) (time.Time, error)
}

// Embedder turns publication text into a vector.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ProtocolStorage stores protocol documents.
type ProtocolStorage interface {
	StoreProtocolDocument(ctx context.Context, file domain.ProtocolFile, lawsuitNumber, lawsuitID string) (domain.DocumentMetadata, error)
	DeleteProtocolDocument(ctx context.Context, key string) error
}

// DocumentInspector checks a protocol document before it is stored.
type DocumentInspector interface {
	Inspect(file domain.ProtocolFile) (pages int, err error)
}

// DecisionPublisher announces committed decisions.
type DecisionPublisher interface {
	PublishDecisionConfirmed(ctx context.Context, event domain.DecisionConfirmed) error
}

// DecisionSubscriber consumes committed decisions.
type DecisionSubscriber interface {
	SubscribeDecisionConfirmed(ctx context.Context, handler func(context.Context, domain.DecisionConfirmed) error) error
}

// TaskExporter renders the task queue as a spreadsheet.
type TaskExporter interface {
	WriteTasks(w io.Writer, tasks []domain.Task) error
}
