package domain

import (
	"encoding/json"
	"time"
)

// EventDecision confirms the event and action for a pending item.
type EventDecision struct {
	ItemID     string         `json:"idItem"`
	EventID    string         `json:"evento_id"`
	ActionID   string         `json:"providencia_id"`
	Deadline   *FinalDeadline `json:"prazo_final"`
	TemplateID *string        `json:"modelo_id"`
	Note       *string        `json:"observacao"`
	AssigneeID *string        `json:"-"`
}

// PublicationDecision sets the final deadline of an item that was
// registered without one.
type PublicationDecision struct {
	ItemID        string
	PublicationID string
	Deadline      *FinalDeadline
	Payload       string
}

// ConfirmResult is returned by every confirmation flow.
type ConfirmResult struct {
	Message string `json:"message"`
	AuditID string `json:"auditoriaSugestaoId,omitempty"`
}

type SuggestedSnapshot struct {
	EventID    *string             `json:"evento_id"`
	ActionID   *string             `json:"providencia_id"`
	Deadline   *DeadlineSuggestion `json:"prazo_sugerido"`
	TemplateID *string             `json:"modelo_id"`
}

type DecisionSnapshot struct {
	EventID    *string        `json:"evento_id"`
	ActionID   *string        `json:"providencia_id"`
	Deadline   *FinalDeadline `json:"prazo_final"`
	TemplateID *string        `json:"modelo_id"`
	Note       *string        `json:"observacao"`
}

type DecisionDiff struct {
	EventChanged    bool `json:"evento_alterado"`
	ActionChanged   bool `json:"providencia_alterada"`
	DeadlineChanged bool `json:"prazo_alterado"`
	TemplateChanged bool `json:"modelo_alterado"`
}

// AuditPayload is serialized into the decision JSON of an audit record.
type AuditPayload struct {
	Suggested SuggestedSnapshot `json:"sugestao_original"`
	Decision  DecisionSnapshot  `json:"decisao_final"`
	Diff      DecisionDiff      `json:"diff"`
}

// AuditRecord is append-only; it is written once per confirmation.
type AuditRecord struct {
	ID                string          `json:"id,omitempty"`
	PublicationID     string          `json:"publicacao_id"`
	SuggestedEventID  *string         `json:"evento_sugerido_id"`
	SuggestedActionID *string         `json:"providencia_sugerida_id"`
	SuggestedDeadline json.RawMessage `json:"prazo_sugerido"`
	DecisionJSON      string          `json:"decisao_final_json"`
	UserID            string          `json:"usuario_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

// DecisionConfirmed is published after a Flow A confirmation commits.
type DecisionConfirmed struct {
	TenantID   string         `json:"tenant_id"`
	AuditID    string         `json:"auditoria_id"`
	ItemID     string         `json:"item_id"`
	EventID    string         `json:"evento_id"`
	ActionID   string         `json:"providencia_id"`
	Deadline   *FinalDeadline `json:"prazo_final,omitempty"`
	AssigneeID *string        `json:"responsavel_id,omitempty"`
	UserID     string         `json:"usuario_id"`
	OccurredAt time.Time      `json:"occurred_at"`
}
