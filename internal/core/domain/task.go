package domain

import (
	"strings"
	"time"
)

// TaskStatus is the closed set of workflow states of a task.
type TaskStatus string

const (
	TaskAwaiting        TaskStatus = "Aguardando"
	TaskDrafting        TaskStatus = "Em Elaboração"
	TaskInReview        TaskStatus = "Em Revisão"
	TaskReadyToProtocol TaskStatus = "Pronto para Protocolo"
	TaskProtocolled     TaskStatus = "Protocolado"
)

// TaskStatusFlow is the happy path in order.
var TaskStatusFlow = []TaskStatus{
	TaskAwaiting,
	TaskDrafting,
	TaskInReview,
	TaskReadyToProtocol,
	TaskProtocolled,
}

// TaskTransitions maps each state to the states it may move to. The
// Drafting -> ReadyToProtocol edge is conditional, see CanTransition.
var TaskTransitions = map[TaskStatus][]TaskStatus{
	TaskAwaiting:        {TaskDrafting},
	TaskDrafting:        {TaskInReview, TaskReadyToProtocol},
	TaskInReview:        {TaskReadyToProtocol},
	TaskReadyToProtocol: {TaskProtocolled},
	TaskProtocolled:     {},
}

// ParseTaskStatus resolves a status name case-insensitively.
func ParseTaskStatus(name string) (TaskStatus, bool) {
	name = strings.TrimSpace(name)
	for _, status := range TaskStatusFlow {
		if strings.EqualFold(string(status), name) {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether a task in from may move to to.
//
// Skipping review (Em Elaboração -> Pronto para Protocolo) is a business rule:
// it is allowed only while the task has no reviewer assigned. A task with a
// reviewer must pass through Em Revisão.
func CanTransition(from, to TaskStatus, hasReviewer bool) bool {
	if from == TaskDrafting && to == TaskReadyToProtocol {
		return !hasReviewer
	}
	for _, next := range TaskTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityCritical TaskPriority = "Crítico"
	PriorityWarning  TaskPriority = "Atenção"
	PriorityOK       TaskPriority = "Tranquilo"
)

// PriorityFor derives a task priority from its due date; it is never stored.
func PriorityFor(due *time.Time, now time.Time) TaskPriority {
	if due == nil {
		return PriorityOK
	}
	today := truncateDay(now)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case !dueDay.After(today):
		return PriorityCritical
	case !dueDay.After(today.AddDate(0, 0, 3)):
		return PriorityWarning
	default:
		return PriorityOK
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type StatusRef struct {
	ID    string     `json:"id"`
	Name  TaskStatus `json:"nome"`
	Color string     `json:"cor_hex,omitempty"`
}

type LawsuitRef struct {
	ID      string `json:"id"`
	Number  string `json:"numero"`
	Subject string `json:"assunto,omitempty"`
	Folder  string `json:"pasta,omitempty"`
}

type NamedRef struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Description string `json:"descricao,omitempty"`
}

// Task is a unit of work derived from a confirmed action.
type Task struct {
	ID        string       `json:"id"`
	DueDate   *time.Time   `json:"data_limite"`
	Priority  TaskPriority `json:"prioridade"`
	Status    StatusRef    `json:"status"`
	Lawsuit   LawsuitRef   `json:"processo"`
	Event     NamedRef     `json:"evento"`
	Action    NamedRef     `json:"providencia"`
	Assignee  *NamedRef    `json:"responsavel"`
	Reviewer  *NamedRef    `json:"revisor"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TaskFilter narrows the task queue listing.
type TaskFilter struct {
	AssigneeID string
	StatusID   string
	StatusName string
	Search     string
}

// OptionalID distinguishes "absent" from "explicitly cleared".
type OptionalID struct {
	Set   bool
	Value *string
}

type TaskAssignment struct {
	Assignee OptionalID
	Reviewer OptionalID
}

// StatusChange targets a status by id or by name.
type StatusChange struct {
	StatusID   string
	StatusName string
}

// TaskLock is the row-locked view of a task used to validate transitions.
type TaskLock struct {
	ID            string
	Status        StatusRef
	ReviewerID    *string
	LawsuitID     string
	LawsuitNumber string
}

type ChecklistItem struct {
	ID       string `json:"id"`
	TaskID   string `json:"tarefa_id"`
	Title    string `json:"titulo"`
	Order    int    `json:"ordem"`
	Required bool   `json:"obrigatorio"`
	Done     bool   `json:"concluido"`
}

type ChecklistDraft struct {
	Title    string
	Order    *int
	Required *bool
}

// PendingRequired lists required checklist items that are not done.
func PendingRequired(items []ChecklistItem) []ChecklistItem {
	var pending []ChecklistItem
	for _, item := range items {
		if item.Required && !item.Done {
			pending = append(pending, item)
		}
	}
	return pending
}

// ProtocolFile is the document submitted with a protocol request.
type ProtocolFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentMetadata describes a stored protocol document.
type DocumentMetadata struct {
	Key         string    `json:"chave"`
	Filename    string    `json:"nome_arquivo"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"tamanho"`
	Pages       int       `json:"paginas,omitempty"`
	StoredAt    time.Time `json:"armazenado_em"`
}

type ProtocolResult struct {
	Task     *Task            `json:"tarefa"`
	Document DocumentMetadata `json:"documento"`
}

// NewTask is the seed for a task created from a confirmed decision.
type NewTask struct {
	ID         string
	SourceID   string
	ItemID     string
	EventID    string
	ActionID   string
	AssigneeID *string
	DueDate    *time.Time
}
