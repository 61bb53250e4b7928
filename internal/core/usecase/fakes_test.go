package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

func testTenant(id string) domain.Tenant {
	tenant, err := domain.NewTenant(id)
	if err != nil {
		panic(err)
	}
	return tenant
}

func intPtr(v int) *int { return &v }

type ruleStoreFake struct {
	tenant      string
	events      []domain.WorkflowEvent
	exact       []domain.MatchRule
	contains    []domain.MatchRule
	actionRules map[string][]domain.ActionRule
	templates   map[string]*domain.DocumentTemplate
	listErr     error

	mu          sync.Mutex
	seenTenants []string
}

func (f *ruleStoreFake) owns(tenant domain.Tenant) bool {
	f.mu.Lock()
	f.seenTenants = append(f.seenTenants, tenant.ID())
	f.mu.Unlock()
	return f.tenant == "" || f.tenant == tenant.ID()
}

func (f *ruleStoreFake) ListActiveEvents(_ context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error) {
	if !f.owns(tenant) {
		return nil, nil
	}
	var out []domain.WorkflowEvent
	for _, event := range f.events {
		if event.Active {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *ruleStoreFake) GetEvent(_ context.Context, tenant domain.Tenant, eventID string) (*domain.WorkflowEvent, error) {
	if f.owns(tenant) {
		for _, event := range f.events {
			if event.ID == eventID {
				copyEvent := event
				return &copyEvent, nil
			}
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get event", fmt.Errorf("event %s", eventID))
}

func (f *ruleStoreFake) FindEventByName(_ context.Context, tenant domain.Tenant, name string) (*domain.WorkflowEvent, error) {
	if f.owns(tenant) {
		for _, event := range f.events {
			if event.Name == name {
				copyEvent := event
				return &copyEvent, nil
			}
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "find event", fmt.Errorf("event %s", name))
}

func (f *ruleStoreFake) ListMatchRules(_ context.Context, tenant domain.Tenant, kind domain.MatchKind) ([]domain.MatchRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !f.owns(tenant) {
		return nil, nil
	}
	if kind == domain.MatchExact {
		return f.exact, nil
	}
	return f.contains, nil
}

func (f *ruleStoreFake) ListActionRules(_ context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error) {
	if !f.owns(tenant) {
		return nil, nil
	}
	return f.actionRules[eventID], nil
}

func (f *ruleStoreFake) OldestActiveTemplate(_ context.Context, tenant domain.Tenant, actionID string) (*domain.DocumentTemplate, error) {
	if !f.owns(tenant) {
		return nil, nil
	}
	return f.templates[actionID], nil
}

type calendarFake struct {
	result time.Time
	err    error
	calls  int
}

func (f *calendarFake) AddBusinessDays(_ context.Context, _ time.Time, _ int) (time.Time, error) {
	f.calls++
	return f.result, f.err
}

type embedderStub struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderStub) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vector)
	}
	return out, nil
}

func (f *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// itemStore keeps items in memory and serializes transactions the way a row
// lock would for a single item.
type itemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tenant       string
	items        map[string]domain.Item
	links        map[string]string
	publications map[string]domain.Publication
	lawsuits     map[string]string
	audits       []domain.AuditRecord
	deadlines    []domain.Deadline
	andamentos   []string
	embeddings   []string
	discards     []domain.Discard

	failOn string
}

func newItemStore(tenant string, items ...domain.Item) *itemStore {
	store := &itemStore{
		tenant:       tenant,
		items:        map[string]domain.Item{},
		links:        map[string]string{},
		publications: map[string]domain.Publication{},
		lawsuits:     map[string]string{},
	}
	for _, item := range items {
		item.TenantID = tenant
		store.items[item.ID] = item
	}
	return store
}

func (s *itemStore) item(id string) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *itemStore) GetItem(_ context.Context, tenant domain.Tenant, itemID string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || tenant.ID() != s.tenant {
		return nil, domain.WrapError(domain.ErrNotFound, "get item", fmt.Errorf("item %s", itemID))
	}
	return &item, nil
}

func (s *itemStore) ListPendingByUpload(_ context.Context, tenant domain.Tenant, uploadID string) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Item
	if tenant.ID() != s.tenant {
		return out, nil
	}
	for _, item := range s.items {
		if item.UploadID == uploadID && item.Status == domain.ItemStatusPending {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *itemStore) LinkedPublication(_ context.Context, tenant domain.Tenant, itemID string) (*domain.LinkedPublication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	publicationID, ok := s.links[itemID]
	if !ok || tenant.ID() != s.tenant {
		return nil, domain.WrapError(domain.ErrNotFound, "linked publication", fmt.Errorf("item %s", itemID))
	}
	return &domain.LinkedPublication{PublicationID: publicationID}, nil
}

func (s *itemStore) WithinTx(ctx context.Context, tenant domain.Tenant, fn func(context.Context, ports.DecisionTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &itemTx{store: s, tenant: tenant.ID(), statuses: map[string]domain.ItemStatus{}, links: map[string]string{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, status := range tx.statuses {
		item := s.items[id]
		item.Status = status
		s.items[id] = item
	}
	for itemID, publicationID := range tx.links {
		s.links[itemID] = publicationID
	}
	for _, publication := range tx.publications {
		s.publications[publication.ID] = publication
	}
	for number, id := range tx.lawsuits {
		s.lawsuits[number] = id
	}
	s.audits = append(s.audits, tx.audits...)
	s.deadlines = append(s.deadlines, tx.deadlines...)
	s.andamentos = append(s.andamentos, tx.andamentos...)
	s.embeddings = append(s.embeddings, tx.embeddings...)
	s.discards = append(s.discards, tx.discards...)
	return nil
}

type itemTx struct {
	store  *itemStore
	tenant string

	statuses     map[string]domain.ItemStatus
	links        map[string]string
	lawsuits     map[string]string
	publications []domain.Publication
	audits       []domain.AuditRecord
	deadlines    []domain.Deadline
	andamentos   []string
	embeddings   []string
	discards     []domain.Discard
}

func (tx *itemTx) fail(op string) error {
	if tx.store.failOn == op {
		return domain.WrapError(domain.ErrTemporary, op, fmt.Errorf("connection reset"))
	}
	return nil
}

func (tx *itemTx) LockItem(_ context.Context, itemID string) (*domain.Item, error) {
	if tx.tenant != tx.store.tenant {
		return nil, domain.WrapError(domain.ErrNotFound, "lock item", fmt.Errorf("item %s", itemID))
	}
	item, ok := tx.store.items[itemID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "lock item", fmt.Errorf("item %s", itemID))
	}
	return &item, nil
}

func (tx *itemTx) UpdateItemStatus(_ context.Context, itemID string, status domain.ItemStatus) error {
	if err := tx.fail("status"); err != nil {
		return err
	}
	tx.statuses[itemID] = status
	return nil
}

func (tx *itemTx) InsertAudit(_ context.Context, record domain.AuditRecord) (string, error) {
	if err := tx.fail("audit"); err != nil {
		return "", err
	}
	record.ID = fmt.Sprintf("audit-%d", len(tx.store.audits)+len(tx.audits)+1)
	tx.audits = append(tx.audits, record)
	return record.ID, nil
}

func (tx *itemTx) LinkedPublicationID(_ context.Context, itemID string) (string, error) {
	publicationID, ok := tx.store.links[itemID]
	if !ok {
		return "", domain.WrapError(domain.ErrNotFound, "linked publication", fmt.Errorf("item %s", itemID))
	}
	return publicationID, nil
}

func (tx *itemTx) PublicationExists(_ context.Context, publicationID string) (bool, error) {
	_, ok := tx.store.publications[publicationID]
	return ok, nil
}

func (tx *itemTx) InsertDeadline(_ context.Context, deadline domain.Deadline) (string, error) {
	if err := tx.fail("deadline"); err != nil {
		return "", err
	}
	deadline.ID = fmt.Sprintf("prazo-%d", len(tx.store.deadlines)+len(tx.deadlines)+1)
	tx.deadlines = append(tx.deadlines, deadline)
	return deadline.ID, nil
}

func (tx *itemTx) EnsureLawsuit(_ context.Context, number string) (string, error) {
	if id, ok := tx.store.lawsuits[number]; ok {
		return id, nil
	}
	if tx.lawsuits == nil {
		tx.lawsuits = map[string]string{}
	}
	id := "processo-" + number
	tx.lawsuits[number] = id
	return id, nil
}

func (tx *itemTx) InsertPublication(_ context.Context, publication domain.Publication) (string, error) {
	publication.ID = fmt.Sprintf("pub-%d", len(tx.store.publications)+len(tx.publications)+1)
	tx.publications = append(tx.publications, publication)
	return publication.ID, nil
}

func (tx *itemTx) InsertPublicationEmbedding(_ context.Context, publication domain.Publication) error {
	if err := tx.fail("embedding"); err != nil {
		return err
	}
	tx.embeddings = append(tx.embeddings, publication.Embedding)
	return nil
}

func (tx *itemTx) InsertAndamento(_ context.Context, _ string, description, _ string) error {
	tx.andamentos = append(tx.andamentos, description)
	return nil
}

func (tx *itemTx) LinkPublication(_ context.Context, itemID, publicationID string) error {
	tx.links[itemID] = publicationID
	return nil
}

func (tx *itemTx) InsertDiscard(_ context.Context, discard domain.Discard) error {
	tx.discards = append(tx.discards, discard)
	return nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.DecisionConfirmed
	err    error
}

func (f *publisherFake) PublishDecisionConfirmed(_ context.Context, event domain.DecisionConfirmed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type observerFake struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *observerFake) ObserveDecision(flow, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, flow+":"+outcome)
}

func (f *observerFake) ObserveTransition(to, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, to+":"+outcome)
}
