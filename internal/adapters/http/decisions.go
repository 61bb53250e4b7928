package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

func (rt *Router) getSuggestion(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	overrideEventID, err := queryParam(r, "evento_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	suggestion, err := rt.services.Suggestions.GetSuggestion(r.Context(), p.Tenant, pathParam(r, "idItem"), overrideEventID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// confirmRequest is either an eventConfirmation (Flow A) or a
// publicationConfirmation (Flow B).
type confirmRequest interface {
	confirmFlow() string
}

type eventConfirmation struct {
	decision domain.EventDecision
}

func (eventConfirmation) confirmFlow() string { return "evento" }

type publicationConfirmation struct {
	decision domain.PublicationDecision
}

func (publicationConfirmation) confirmFlow() string { return "similaridade" }

// parseConfirmRequest picks the flow once: any of item_similaridade_id or
// publicacao_id selects the publication flow.
func parseConfirmRequest(body []byte) (confirmRequest, error) {
	var keys struct {
		SimilarityItemID *string `json:"item_similaridade_id"`
		PublicationID    *string `json:"publicacao_id"`
	}
	if err := unmarshalBody(body, &keys); err != nil {
		return nil, err
	}

	if keys.SimilarityItemID != nil || keys.PublicationID != nil {
		var payload struct {
			ItemID        string                `json:"item_similaridade_id"`
			PublicationID string                `json:"publicacao_id"`
			Deadline      *domain.FinalDeadline `json:"prazo_final"`
			DecisionJSON  json.RawMessage       `json:"decisao_final_json"`
		}
		if err := unmarshalBody(body, &payload); err != nil {
			return nil, err
		}
		decisionJSON, err := decisionPayload(payload.DecisionJSON)
		if err != nil {
			return nil, err
		}
		return publicationConfirmation{decision: domain.PublicationDecision{
			ItemID:        payload.ItemID,
			PublicationID: payload.PublicationID,
			Deadline:      payload.Deadline,
			Payload:       decisionJSON,
		}}, nil
	}

	var payload struct {
		domain.EventDecision
		Assignee *string `json:"responsavel_id"`
	}
	if err := unmarshalBody(body, &payload); err != nil {
		return nil, err
	}
	decision := payload.EventDecision
	decision.AssigneeID = payload.Assignee
	return eventConfirmation{decision: decision}, nil
}

// decisionPayload flattens decisao_final_json into the text stored on the
// audit record: a string is kept verbatim, an object or array keeps its JSON.
// Absent or null yields "" and is rejected by the use case.
func decisionPayload(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", domain.NewValidationError("decisao_final_json deve ser string ou objeto.")
		}
		return text, nil
	case '{', '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return "", domain.NewValidationError("decisao_final_json deve ser string ou objeto.")
		}
		return compact.String(), nil
	default:
		return "", domain.NewValidationError("decisao_final_json deve ser string ou objeto.")
	}
}

func (rt *Router) confirmDecision(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := parseConfirmRequest(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var result *domain.ConfirmResult
	switch req := req.(type) {
	case eventConfirmation:
		result, err = rt.services.Decisions.ConfirmEvent(r.Context(), p.Tenant, p.UserID, req.decision)
	case publicationConfirmation:
		result, err = rt.services.Decisions.ConfirmPublication(r.Context(), p.Tenant, p.UserID, req.decision)
	}
	if err != nil {
		rt.logger.Warn("decision_rejected",
			"request_id", requestIDFromContext(r.Context()),
			"flow", req.confirmFlow(),
			"error", err,
		)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type conciliationRequest struct {
	ItemID string `json:"item_similaridade_id"`
	Reason string `json:"motivo"`
}

func (rt *Router) registerItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req conciliationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := rt.services.Conciliation.Register(r.Context(), p.Tenant, p.UserID, req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) discardItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req conciliationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := rt.services.Conciliation.Discard(r.Context(), p.Tenant, p.UserID, req.ItemID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listPendingByUpload(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := rt.services.Conciliation.ListPendingByUpload(r.Context(), p.Tenant, pathParam(r, "uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) linkedPublication(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	link, err := rt.services.Conciliation.LinkedPublication(r.Context(), p.Tenant, pathParam(r, "idItem"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
