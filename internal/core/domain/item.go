package domain

import (
	"encoding/json"
	"time"
)

type ItemStatus string

const (
	ItemStatusPending         ItemStatus = "pendente"
	ItemStatusRegisteredNoDue ItemStatus = "cadastrado_sem_prazo"
	ItemStatusAnalyzedWithDue ItemStatus = "analisado_com_prazo"
	ItemStatusAnalyzed        ItemStatus = "analisado"
	ItemStatusCanceled        ItemStatus = "cancelado"
)

// Item is a docket publication awaiting classification. Items are never
// deleted; they only move forward through ItemStatus.
type Item struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	UploadID        string          `json:"upload_documento_id,omitempty"`
	LawsuitNumber   string          `json:"numero_processo,omitempty"`
	Text            string          `json:"texto_publicacao,omitempty"`
	AndamentoType   string          `json:"tipo_andamento,omitempty"`
	PublicationDate string          `json:"data_publicacao,omitempty"`
	PublicationHash string          `json:"hash_publicacao,omitempty"`
	Embedding       string          `json:"embedding,omitempty"`
	OriginalData    json.RawMessage `json:"dados_originais,omitempty"`
	Status          ItemStatus      `json:"status_decisao"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PublicationText picks the best text available for registering the item.
func (i Item) PublicationText() string {
	if i.Text != "" {
		return i.Text
	}
	if len(i.OriginalData) > 0 {
		var original struct {
			Text            string `json:"texto"`
			PublicationText string `json:"texto_publicacao"`
		}
		if err := json.Unmarshal(i.OriginalData, &original); err == nil {
			if original.Text != "" {
				return original.Text
			}
			if original.PublicationText != "" {
				return original.PublicationText
			}
		}
	}
	return "Publicação cadastrada via similaridade"
}

// RegistrationResult is returned by the auto-register operation.
type RegistrationResult struct {
	Message       string `json:"message"`
	LawsuitID     string `json:"processoId"`
	PublicationID string `json:"publicacaoId"`
}

// LinkedPublication points an item to the publication created for it.
type LinkedPublication struct {
	PublicationID string `json:"publicacaoId"`
}

// Discard is the audit snapshot written when an item is canceled.
type Discard struct {
	ItemID   string          `json:"item_similaridade_id"`
	Snapshot json.RawMessage `json:"dados_descartados"`
	Reason   string          `json:"motivo"`
}

const DefaultDiscardReason = "Descartado pelo usuário na conciliação"

// Publication is the registered docket entry created from an item.
type Publication struct {
	ID              string
	LawsuitID       string
	LawsuitNumber   string
	PublicationDate string
	Text            string
	Hash            string
	Embedding       string
}
