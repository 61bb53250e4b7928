package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const maxJSONBodyBytes = 1 << 20

func principal(r *http.Request) (Principal, error) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		return Principal{}, domain.NewError(domain.ErrUnauthorized, "Autenticação obrigatória.")
	}
	return p, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewValidationError("corpo da requisição excede o tamanho máximo.")
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read body", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.NewValidationError("corpo da requisição é obrigatório.")
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return unmarshalBody(body, dst)
}

func unmarshalBody(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.NewValidationError(typeErr.Field + " possui tipo inválido.")
		}
		return domain.NewValidationError("JSON inválido.")
	}
	return nil
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

func queryParam(r *http.Request, name string) (string, error) {
	var value string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &value); err != nil {
		return "", domain.NewValidationError("parâmetro " + name + " inválido.")
	}
	return strings.TrimSpace(value), nil
}

// optionalID reads a nullable id field: absent leaves it unset, null clears it.
func optionalID(fields map[string]json.RawMessage, name string) (domain.OptionalID, error) {
	raw, ok := fields[name]
	if !ok {
		return domain.OptionalID{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return domain.OptionalID{Set: true}, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return domain.OptionalID{}, domain.NewValidationError(name + " deve ser texto ou null.")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.OptionalID{Set: true}, nil
	}
	return domain.OptionalID{Set: true, Value: &value}, nil
}
