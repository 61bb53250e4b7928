package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// SuggestionObserver receives one call per computed suggestion.
type SuggestionObserver interface {
	ObserveSuggestion(classified bool)
}

type noopSuggestionObserver struct{}

func (noopSuggestionObserver) ObserveSuggestion(bool) {}

// SuggestionUseCase is read-only: it never locks and never writes.
type SuggestionUseCase struct {
	items       ports.ItemReader
	rules       ports.RuleStore
	matcher     *EventMatcher
	recommender *Recommender
	observer    SuggestionObserver
	logger      *slog.Logger
}

func NewSuggestionUseCase(
	items ports.ItemReader,
	rules ports.RuleStore,
	matcher *EventMatcher,
	recommender *Recommender,
	observer SuggestionObserver,
	logger *slog.Logger,
) *SuggestionUseCase {
	if observer == nil {
		observer = noopSuggestionObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SuggestionUseCase{
		items:       items,
		rules:       rules,
		matcher:     matcher,
		recommender: recommender,
		observer:    observer,
		logger:      logger,
	}
}

func (uc *SuggestionUseCase) GetSuggestion(ctx context.Context, tenant domain.Tenant, itemID, overrideEventID string) (*domain.Suggestion, error) {
	if itemID == "" {
		return nil, domain.NewValidationError("idItem é obrigatório.")
	}

	item, err := uc.items.GetItem(ctx, tenant, itemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, domain.NewError(domain.ErrNotFound, "Item não encontrado.")
	}

	available, err := uc.rules.ListActiveEvents(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	if available == nil {
		available = []domain.WorkflowEvent{}
	}

	event, err := uc.resolveEvent(ctx, tenant, item, overrideEventID)
	if err != nil {
		return nil, err
	}

	out := &domain.Suggestion{
		AvailableEvents: available,
		Event:           event,
		Alternatives:    []domain.ActionSuggestion{},
	}
	if event.ID == "" {
		uc.observer.ObserveSuggestion(false)
		return out, nil
	}

	recommendation, err := uc.recommender.Recommend(ctx, tenant, event.ID, item.PublicationDate)
	if err != nil {
		return nil, err
	}
	out.DefaultAction = recommendation.Default
	out.Alternatives = recommendation.Alternatives
	uc.observer.ObserveSuggestion(event.Name != domain.UnclassifiedEventName)
	return out, nil
}

func (uc *SuggestionUseCase) resolveEvent(ctx context.Context, tenant domain.Tenant, item *domain.Item, overrideEventID string) (*domain.WorkflowEvent, error) {
	if overrideEventID == "" {
		return uc.matcher.ResolveEvent(ctx, tenant, item.AndamentoType)
	}

	event, err := uc.rules.GetEvent(ctx, tenant, overrideEventID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Evento informado não encontrado.")
		}
		return nil, fmt.Errorf("load override event: %w", err)
	}
	if event == nil {
		return nil, domain.NewError(domain.ErrNotFound, "Evento informado não encontrado.")
	}
	return event, nil
}
