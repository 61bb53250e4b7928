package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const temporaryMessage = "serviço de dados temporariamente indisponível, tente novamente"

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody never exposes internal error text; only messages built with
// domain.NewError or validation details reach the client.
func errorBody(status int, err error) errorResponse {
	if details := domain.ValidationDetails(err); len(details) > 0 {
		return errorResponse{Error: "Payload inválido.", Details: details}
	}
	if status == http.StatusServiceUnavailable {
		return errorResponse{Error: temporaryMessage}
	}
	if msg := domain.PublicMessage(err); msg != "" {
		return errorResponse{Error: msg}
	}
	switch status {
	case http.StatusBadRequest:
		return errorResponse{Error: "Requisição inválida."}
	case http.StatusUnauthorized:
		return errorResponse{Error: "Não autorizado."}
	case http.StatusNotFound:
		return errorResponse{Error: "Recurso não encontrado."}
	case http.StatusConflict:
		return errorResponse{Error: "Conflito com o estado atual do recurso."}
	case http.StatusUnprocessableEntity:
		return errorResponse{Error: "Operação não permitida no estado atual."}
	default:
		return errorResponse{Error: "Erro interno do servidor."}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody(status, err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
