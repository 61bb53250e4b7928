package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

type eventRequest struct {
	Name        string `json:"nome"`
	Description string `json:"descricao"`
	Active      *bool  `json:"ativo"`
}

func (req eventRequest) event(id string) domain.WorkflowEvent {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return domain.WorkflowEvent{ID: id, Name: req.Name, Description: req.Description, Active: active}
}

type actionRequest struct {
	Name             string `json:"nome"`
	Description      string `json:"descricao"`
	Active           *bool  `json:"ativo"`
	RequiresPetition bool   `json:"exige_peticao"`
}

func (req actionRequest) action(id string) domain.Action {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return domain.Action{
		ID:               id,
		Name:             req.Name,
		Description:      req.Description,
		Active:           active,
		RequiresPetition: req.RequiresPetition,
	}
}

type mappingRequest struct {
	Description string           `json:"andamento_descricao"`
	EventID     string           `json:"evento_id"`
	Kind        domain.MatchKind `json:"tipo_match"`
}

func (rt *Router) listEvents(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := rt.services.Catalog.ListEvents(r.Context(), p.Tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (rt *Router) createEvent(w http.ResponseWriter, r *http.Request) {
	rt.saveEvent(w, r, true)
}

func (rt *Router) updateEvent(w http.ResponseWriter, r *http.Request) {
	rt.saveEvent(w, r, false)
}

func (rt *Router) saveEvent(w http.ResponseWriter, r *http.Request, create bool) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var event *domain.WorkflowEvent
	if create {
		event, err = rt.services.Catalog.CreateEvent(r.Context(), p.Tenant, req.event(""))
	} else {
		event, err = rt.services.Catalog.UpdateEvent(r.Context(), p.Tenant, req.event(pathParam(r, "id")))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, createdOrOK(create), event)
}

func (rt *Router) deleteEvent(w http.ResponseWriter, r *http.Request) {
	rt.deleteByID(w, r, rt.services.Catalog.DeleteEvent)
}

func (rt *Router) listMappings(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rules, err := rt.services.Catalog.ListMappings(r.Context(), p.Tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (rt *Router) createMapping(w http.ResponseWriter, r *http.Request) {
	rt.saveMapping(w, r, true)
}

func (rt *Router) updateMapping(w http.ResponseWriter, r *http.Request) {
	rt.saveMapping(w, r, false)
}

func (rt *Router) saveMapping(w http.ResponseWriter, r *http.Request, create bool) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rule := domain.MatchRule{Description: req.Description, EventID: req.EventID, Kind: req.Kind}

	var saved *domain.MatchRule
	if create {
		saved, err = rt.services.Catalog.CreateMapping(r.Context(), p.Tenant, rule)
	} else {
		rule.ID = pathParam(r, "id")
		saved, err = rt.services.Catalog.UpdateMapping(r.Context(), p.Tenant, rule)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, createdOrOK(create), saved)
}

func (rt *Router) deleteMapping(w http.ResponseWriter, r *http.Request) {
	rt.deleteByID(w, r, rt.services.Catalog.DeleteMapping)
}

func (rt *Router) listEventActions(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rules, err := rt.services.Catalog.ListEventActions(r.Context(), p.Tenant, pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (rt *Router) createEventAction(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rule domain.ActionRule
	if err := decodeJSON(w, r, &rule); err != nil {
		writeError(w, r, err)
		return
	}
	rule.ID = ""
	rule.EventID = pathParam(r, "id")
	rule.Action = nil

	saved, err := rt.services.Catalog.CreateEventAction(r.Context(), p.Tenant, rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (rt *Router) updateEventAction(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rule domain.ActionRule
	if err := decodeJSON(w, r, &rule); err != nil {
		writeError(w, r, err)
		return
	}
	rule.ID = pathParam(r, "id")
	rule.Action = nil

	saved, err := rt.services.Catalog.UpdateEventAction(r.Context(), p.Tenant, rule)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (rt *Router) deleteEventAction(w http.ResponseWriter, r *http.Request) {
	rt.deleteByID(w, r, rt.services.Catalog.DeleteEventAction)
}

func (rt *Router) listActions(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actions, err := rt.services.Catalog.ListActions(r.Context(), p.Tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (rt *Router) createAction(w http.ResponseWriter, r *http.Request) {
	rt.saveAction(w, r, true)
}

func (rt *Router) updateAction(w http.ResponseWriter, r *http.Request) {
	rt.saveAction(w, r, false)
}

func (rt *Router) saveAction(w http.ResponseWriter, r *http.Request, create bool) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var action *domain.Action
	if create {
		action, err = rt.services.Catalog.CreateAction(r.Context(), p.Tenant, req.action(""))
	} else {
		action, err = rt.services.Catalog.UpdateAction(r.Context(), p.Tenant, req.action(pathParam(r, "id")))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, createdOrOK(create), action)
}

func (rt *Router) deleteAction(w http.ResponseWriter, r *http.Request) {
	rt.deleteByID(w, r, rt.services.Catalog.DeleteAction)
}

type deleteFunc func(ctx context.Context, tenant domain.Tenant, id string) error

func (rt *Router) deleteByID(w http.ResponseWriter, r *http.Request, del deleteFunc) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := del(r.Context(), p.Tenant, pathParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func createdOrOK(create bool) int {
	if create {
		return http.StatusCreated
	}
	return http.StatusOK
}
