package domain

import "time"

// UnclassifiedEventName names the sentinel event returned when no rule matches.
const UnclassifiedEventName = "EVENTO_NAO_CLASSIFICADO"

// WorkflowEvent is a procedural event ("evento processual").
type WorkflowEvent struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"nome"`
	Description string `json:"descricao,omitempty"`
	Active      bool   `json:"ativo"`
}

// UnclassifiedEvent is the synthetic placeholder used when the tenant has no
// backing row for the sentinel event.
func UnclassifiedEvent() *WorkflowEvent {
	return &WorkflowEvent{
		Name:        UnclassifiedEventName,
		Description: "Evento não classificado",
	}
}

type MatchKind string

const (
	MatchExact    MatchKind = "exato"
	MatchContains MatchKind = "contem"
)

func (k MatchKind) Valid() bool {
	return k == MatchExact || k == MatchContains
}

// MatchRule maps andamento text to a WorkflowEvent.
type MatchRule struct {
	ID          string    `json:"id"`
	Description string    `json:"andamento_descricao"`
	EventID     string    `json:"evento_id"`
	Kind        MatchKind `json:"tipo_match"`
	CreatedAt   time.Time `json:"created_at"`
}

// Action is a legal action ("providência jurídica").
type Action struct {
	ID               string `json:"id"`
	Name             string `json:"nome"`
	Description      string `json:"descricao,omitempty"`
	Active           bool   `json:"ativo"`
	RequiresPetition bool   `json:"exige_peticao"`
}

// ActionRule links an event to a recommended action.
type ActionRule struct {
	ID           string       `json:"id"`
	EventID      string       `json:"evento_id"`
	ActionID     string       `json:"providencia_id"`
	Priority     int          `json:"prioridade"`
	Default      bool         `json:"padrao"`
	GeneratesDue bool         `json:"gera_prazo"`
	DueDays      *int         `json:"prazo_dias,omitempty"`
	DueKind      DeadlineKind `json:"tipo_prazo,omitempty"`
	LegalNote    string       `json:"observacao_juridica,omitempty"`
	Action       *Action      `json:"providencia_juridica,omitempty"`
}

// DocumentTemplate is the lightweight view of a petition template.
type DocumentTemplate struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
}
