package httpadapter

import (
	"context"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/legal-workflow/internal/config"
	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

const testJWTSecret = "test-secret"

type suggestionFake struct {
	tenant   string
	itemID   string
	override string
	err      error
}

func (f *suggestionFake) GetSuggestion(_ context.Context, tenant domain.Tenant, itemID, overrideEventID string) (*domain.Suggestion, error) {
	f.tenant, f.itemID, f.override = tenant.ID(), itemID, overrideEventID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Suggestion{
		AvailableEvents: []domain.WorkflowEvent{},
		Event:           &domain.WorkflowEvent{ID: "ev-1", Name: "SENTENCA", Active: true},
		Alternatives:    []domain.ActionSuggestion{},
	}, nil
}

type decisionFake struct {
	userID      string
	event       *domain.EventDecision
	publication *domain.PublicationDecision
	err         error
}

func (f *decisionFake) ConfirmEvent(_ context.Context, _ domain.Tenant, userID string, decision domain.EventDecision) (*domain.ConfirmResult, error) {
	f.userID, f.event = userID, &decision
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ConfirmResult{Message: "ok", AuditID: "audit-1"}, nil
}

func (f *decisionFake) ConfirmPublication(_ context.Context, _ domain.Tenant, userID string, decision domain.PublicationDecision) (*domain.ConfirmResult, error) {
	f.userID, f.publication = userID, &decision
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ConfirmResult{Message: "Prazo registrado com sucesso.", AuditID: "audit-2"}, nil
}

type conciliationFake struct {
	itemID string
	reason string
	err    error
}

func (f *conciliationFake) Register(_ context.Context, _ domain.Tenant, _ string, itemID string) (*domain.RegistrationResult, error) {
	f.itemID = itemID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RegistrationResult{Message: "ok", LawsuitID: "proc-1", PublicationID: "pub-1"}, nil
}

func (f *conciliationFake) Discard(_ context.Context, _ domain.Tenant, _ string, itemID, reason string) (*domain.ConfirmResult, error) {
	f.itemID, f.reason = itemID, reason
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ConfirmResult{Message: "Item descartado com sucesso."}, nil
}

func (f *conciliationFake) ListPendingByUpload(_ context.Context, _ domain.Tenant, uploadID string) ([]domain.Item, error) {
	return []domain.Item{{ID: "item-1", UploadID: uploadID, Status: domain.ItemStatusPending}}, f.err
}

func (f *conciliationFake) LinkedPublication(_ context.Context, _ domain.Tenant, itemID string) (*domain.LinkedPublication, error) {
	f.itemID = itemID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.LinkedPublication{PublicationID: "pub-1"}, nil
}

type taskFake struct {
	filter     domain.TaskFilter
	assignment domain.TaskAssignment
	change     domain.StatusChange
	draft      domain.ChecklistDraft
	done       *bool
	file       *domain.ProtocolFile
	protocoled bool
	err        error
}

func (f *taskFake) task(id string) *domain.Task {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:       id,
		DueDate:  &due,
		Priority: domain.PriorityOK,
		Status:   domain.StatusRef{ID: "st-1", Name: domain.TaskAwaiting},
		Lawsuit:  domain.LawsuitRef{ID: "proc-1", Number: "0001234-56.2024.8.26.0100"},
	}
}

func (f *taskFake) ListTasks(_ context.Context, _ domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Task{*f.task("task-1")}, nil
}

func (f *taskFake) GetTask(_ context.Context, _ domain.Tenant, taskID string) (*domain.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.task(taskID), nil
}

func (f *taskFake) AssignTask(_ context.Context, _ domain.Tenant, taskID string, assignment domain.TaskAssignment) (*domain.Task, error) {
	f.assignment = assignment
	if f.err != nil {
		return nil, f.err
	}
	return f.task(taskID), nil
}

func (f *taskFake) ListChecklist(_ context.Context, _ domain.Tenant, taskID string) ([]domain.ChecklistItem, error) {
	return []domain.ChecklistItem{{ID: "chk-1", TaskID: taskID, Title: "Revisar", Order: 1, Required: true}}, f.err
}

func (f *taskFake) CreateChecklistItem(_ context.Context, _ domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error) {
	f.draft = draft
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChecklistItem{ID: "chk-2", TaskID: taskID, Title: draft.Title}, nil
}

func (f *taskFake) UpdateChecklistItem(_ context.Context, _ domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error) {
	f.done = &done
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChecklistItem{ID: itemID, TaskID: taskID, Done: done}, nil
}

func (f *taskFake) DeleteChecklistItem(context.Context, domain.Tenant, string, string) error {
	return f.err
}

func (f *taskFake) UpdateStatus(_ context.Context, _ domain.Tenant, taskID string, change domain.StatusChange) (*domain.Task, error) {
	f.change = change
	if f.err != nil {
		return nil, f.err
	}
	return f.task(taskID), nil
}

func (f *taskFake) ProtocolTask(_ context.Context, _ domain.Tenant, taskID string, file *domain.ProtocolFile) (*domain.ProtocolResult, error) {
	f.file, f.protocoled = file, true
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProtocolResult{Task: f.task(taskID), Document: domain.DocumentMetadata{Key: "protocolos/x.pdf"}}, nil
}

type catalogFake struct {
	tenant  string
	event   domain.WorkflowEvent
	rule    domain.ActionRule
	deleted string
	err     error
}

func (f *catalogFake) ListEvents(_ context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error) {
	f.tenant = tenant.ID()
	return []domain.WorkflowEvent{}, f.err
}

func (f *catalogFake) CreateEvent(_ context.Context, _ domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error) {
	f.event = event
	if f.err != nil {
		return nil, f.err
	}
	event.ID = "ev-new"
	return &event, nil
}

func (f *catalogFake) UpdateEvent(_ context.Context, _ domain.Tenant, event domain.WorkflowEvent) (*domain.WorkflowEvent, error) {
	f.event = event
	return &event, f.err
}

func (f *catalogFake) DeleteEvent(_ context.Context, _ domain.Tenant, eventID string) error {
	f.deleted = eventID
	return f.err
}

func (f *catalogFake) ListMappings(context.Context, domain.Tenant) ([]domain.MatchRule, error) {
	return []domain.MatchRule{}, f.err
}

func (f *catalogFake) CreateMapping(_ context.Context, _ domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error) {
	return &rule, f.err
}

func (f *catalogFake) UpdateMapping(_ context.Context, _ domain.Tenant, rule domain.MatchRule) (*domain.MatchRule, error) {
	return &rule, f.err
}

func (f *catalogFake) DeleteMapping(_ context.Context, _ domain.Tenant, ruleID string) error {
	f.deleted = ruleID
	return f.err
}

func (f *catalogFake) ListEventActions(context.Context, domain.Tenant, string) ([]domain.ActionRule, error) {
	return []domain.ActionRule{}, f.err
}

func (f *catalogFake) CreateEventAction(_ context.Context, _ domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error) {
	f.rule = rule
	if f.err != nil {
		return nil, f.err
	}
	rule.ID = "rule-new"
	return &rule, nil
}

func (f *catalogFake) UpdateEventAction(_ context.Context, _ domain.Tenant, rule domain.ActionRule) (*domain.ActionRule, error) {
	f.rule = rule
	return &rule, f.err
}

func (f *catalogFake) DeleteEventAction(_ context.Context, _ domain.Tenant, ruleID string) error {
	f.deleted = ruleID
	return f.err
}

func (f *catalogFake) ListActions(context.Context, domain.Tenant) ([]domain.Action, error) {
	return []domain.Action{}, f.err
}

func (f *catalogFake) CreateAction(_ context.Context, _ domain.Tenant, action domain.Action) (*domain.Action, error) {
	return &action, f.err
}

func (f *catalogFake) UpdateAction(_ context.Context, _ domain.Tenant, action domain.Action) (*domain.Action, error) {
	return &action, f.err
}

func (f *catalogFake) DeleteAction(_ context.Context, _ domain.Tenant, actionID string) error {
	f.deleted = actionID
	return f.err
}

type exporterFake struct {
	rows int
}

func (f *exporterFake) WriteTasks(w io.Writer, tasks []domain.Task) error {
	f.rows = len(tasks)
	_, err := io.WriteString(w, "PK-fake-xlsx")
	return err
}

type testServices struct {
	suggestions  *suggestionFake
	decisions    *decisionFake
	conciliation *conciliationFake
	tasks        *taskFake
	catalog      *catalogFake
	exporter     *exporterFake
}

func newTestServices() *testServices {
	return &testServices{
		suggestions:  &suggestionFake{},
		decisions:    &decisionFake{},
		conciliation: &conciliationFake{},
		tasks:        &taskFake{},
		catalog:      &catalogFake{},
		exporter:     &exporterFake{},
	}
}

func (s *testServices) services() Services {
	return Services{
		Suggestions:  s.suggestions,
		Decisions:    s.decisions,
		Conciliation: s.conciliation,
		Tasks:        s.tasks,
		Catalog:      s.catalog,
		Exporter:     s.exporter,
	}
}

func newTestRouter(cfg config.Config, svc *testServices) *Router {
	if cfg.AuthJWTSecret == "" {
		cfg.AuthJWTSecret = testJWTSecret
	}
	return NewRouter(svc.services(), OptionsFromConfig(cfg))
}

func signedToken(secret, tenantID, subject string) string {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: tenantID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return token
}
