package domain

import (
	"encoding/json"
	"strings"
)

type DeadlineKind string

const (
	DeadlineBusiness DeadlineKind = "util"
	DeadlineCalendar DeadlineKind = "corrido"
	DeadlineFixed    DeadlineKind = "data_fixa"
)

// ParseDeadlineKind normalizes a raw kind label; ok is false for unknown kinds.
func ParseDeadlineKind(raw string) (DeadlineKind, bool) {
	kind := DeadlineKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case DeadlineBusiness, DeadlineCalendar, DeadlineFixed:
		return kind, true
	default:
		return "", false
	}
}

// DateLayout is the wire format of every date in this domain.
const DateLayout = "2006-01-02"

// DeadlineSuggestion is computed on demand and never persisted on its own.
type DeadlineSuggestion struct {
	Days    *int         `json:"dias"`
	Kind    DeadlineKind `json:"tipo"`
	DueDate string       `json:"data_vencimento"`
}

// DeadlineRequest are the inputs to the due-date computation.
type DeadlineRequest struct {
	StartDate string
	Days      *int
	Kind      string
	FixedDate string
}

// FinalDeadline is the deadline chosen by the user. It decodes from either a
// bare due-date string or an object; DateOnly records the string form.
type FinalDeadline struct {
	Days        *int         `json:"dias"`
	Kind        DeadlineKind `json:"tipo"`
	DueDate     string       `json:"data_vencimento"`
	Description string       `json:"descricao,omitempty"`
	DateOnly    bool         `json:"-"`
}

// DueDateOnly is the deadline a caller sends as a plain date.
func DueDateOnly(dueDate string) *FinalDeadline {
	return &FinalDeadline{DueDate: dueDate, DateOnly: true}
}

// MarshalJSON writes a date-only deadline as {"data_vencimento": ...}.
func (d FinalDeadline) MarshalJSON() ([]byte, error) {
	if d.DateOnly {
		return json.Marshal(struct {
			DueDate string `json:"data_vencimento"`
		}{d.DueDate})
	}
	type plain FinalDeadline
	return json.Marshal(plain(d))
}

func (d *FinalDeadline) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*d = *DueDateOnly(asString)
		return nil
	}
	var raw struct {
		Days        json.Number  `json:"dias"`
		Kind        DeadlineKind `json:"tipo"`
		DueDate     string       `json:"data_vencimento"`
		DueLimit    string       `json:"data_limite"`
		Description string       `json:"descricao"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := FinalDeadline{
		Kind:        raw.Kind,
		DueDate:     raw.DueDate,
		Description: raw.Description,
	}
	if out.DueDate == "" {
		out.DueDate = raw.DueLimit
	}
	if n, err := raw.Days.Int64(); err == nil && n > 0 {
		days := int(n)
		out.Days = &days
	}
	*d = out
	return nil
}

// Deadline is the committed deadline ("Prazo").
type Deadline struct {
	ID            string `json:"id,omitempty"`
	Description   string `json:"descricao"`
	StartDate     string `json:"data_inicio,omitempty"`
	DueDate       string `json:"data_limite"`
	Days          *int   `json:"dias,omitempty"`
	PublicationID string `json:"publicacaoid"`
	AuditID       string `json:"auditoria_sugestao_id"`
}

const DefaultDeadlineDescription = "Prazo definido na análise"
