package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func taskFilterFromQuery(r *http.Request) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	var err error
	if filter.AssigneeID, err = queryParam(r, "responsavel_id"); err != nil {
		return filter, err
	}
	if filter.StatusID, err = queryParam(r, "status_id"); err != nil {
		return filter, err
	}
	if filter.StatusName, err = queryParam(r, "status"); err != nil {
		return filter, err
	}
	if filter.Search, err = queryParam(r, "busca"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (rt *Router) listTasks(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := taskFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tasks, err := rt.services.Tasks.ListTasks(r.Context(), p.Tenant, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// exportTasks renders the whole sheet before writing so a failed export
// still answers with a JSON error.
func (rt *Router) exportTasks(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.services.Exporter == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "Exportação indisponível."})
		return
	}
	filter, err := taskFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tasks, err := rt.services.Tasks.ListTasks(r.Context(), p.Tenant, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := rt.services.Exporter.WriteTasks(&buf, tasks); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="tarefas.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) getTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := rt.services.Tasks.GetTask(r.Context(), p.Tenant, pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) assignTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, r, err)
		return
	}
	var assignment domain.TaskAssignment
	if assignment.Assignee, err = optionalID(fields, "responsavel_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if assignment.Reviewer, err = optionalID(fields, "revisor_id"); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := rt.services.Tasks.AssignTask(r.Context(), p.Tenant, pathParam(r, "id"), assignment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		StatusID   string `json:"status_id"`
		StatusName string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := rt.services.Tasks.UpdateStatus(r.Context(), p.Tenant, pathParam(r, "id"), domain.StatusChange{
		StatusID:   req.StatusID,
		StatusName: req.StatusName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (rt *Router) listChecklist(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := rt.services.Tasks.ListChecklist(r.Context(), p.Tenant, pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rt *Router) createChecklistItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Title    string `json:"titulo"`
		Order    *int   `json:"ordem"`
		Required *bool  `json:"obrigatorio"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := rt.services.Tasks.CreateChecklistItem(r.Context(), p.Tenant, pathParam(r, "id"), domain.ChecklistDraft{
		Title:    req.Title,
		Order:    req.Order,
		Required: req.Required,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) updateChecklistItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Done *bool `json:"concluido"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Done == nil {
		writeError(w, r, domain.NewValidationError("concluido é obrigatório."))
		return
	}

	item, err := rt.services.Tasks.UpdateChecklistItem(r.Context(), p.Tenant, pathParam(r, "id"), pathParam(r, "itemId"), *req.Done)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) deleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.services.Tasks.DeleteChecklistItem(r.Context(), p.Tenant, pathParam(r, "id"), pathParam(r, "itemId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) protocolTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := rt.readProtocolFile(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := rt.services.Tasks.ProtocolTask(r.Context(), p.Tenant, pathParam(r, "id"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readProtocolFile returns a nil file when the multipart field is absent; the
// task service decides whether that is acceptable.
func (rt *Router) readProtocolFile(w http.ResponseWriter, r *http.Request) (*domain.ProtocolFile, error) {
	limit := rt.opts.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewValidationError("arquivo excede o tamanho máximo permitido.")
		}
		return nil, domain.NewValidationError("requisição deve ser multipart/form-data.")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	part, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewValidationError("campo 'file' inválido.")
	}
	defer part.Close()

	content, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read protocol file", err)
	}
	if int64(len(content)) > limit {
		return nil, domain.NewValidationError("arquivo excede o tamanho máximo permitido.")
	}
	return &domain.ProtocolFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
