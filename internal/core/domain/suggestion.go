package domain

// ActionSuggestion is one recommended action for a classified event.
type ActionSuggestion struct {
	ID               string              `json:"id"`
	Name             string              `json:"nome"`
	Description      string              `json:"descricao,omitempty"`
	RequiresPetition bool                `json:"exige_peticao"`
	Deadline         *DeadlineSuggestion `json:"prazo_sugerido"`
	Template         *DocumentTemplate   `json:"modelo_sugerido"`
	LegalNote        *string             `json:"observacao_juridica"`
}

// Recommendation partitions suggestions into the default and the alternatives.
type Recommendation struct {
	Default      *ActionSuggestion  `json:"providencia_padrao"`
	Alternatives []ActionSuggestion `json:"alternativas"`
}

// Suggestion answers "what should happen next" for one pending item.
type Suggestion struct {
	AvailableEvents []WorkflowEvent    `json:"eventos"`
	Event           *WorkflowEvent     `json:"evento"`
	DefaultAction   *ActionSuggestion  `json:"providencia_padrao"`
	Alternatives    []ActionSuggestion `json:"alternativas"`
}
