package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// Recommender ranks the actions configured for an event.
type Recommender struct {
	rules    ports.RuleStore
	deadline *DeadlineCalculator
}

func NewRecommender(rules ports.RuleStore, deadline *DeadlineCalculator) *Recommender {
	return &Recommender{rules: rules, deadline: deadline}
}

func (r *Recommender) Recommend(ctx context.Context, tenant domain.Tenant, eventID, publicationDate string) (*domain.Recommendation, error) {
	rules, err := r.rules.ListActionRules(ctx, tenant, eventID)
	if err != nil {
		return nil, fmt.Errorf("list action rules: %w", err)
	}

	ordered := make([]domain.ActionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Default != ordered[j].Default {
			return ordered[i].Default
		}
		return ordered[i].Priority < ordered[j].Priority
	})

	suggestions := make([]domain.ActionSuggestion, 0, len(ordered))
	for _, rule := range ordered {
		if rule.Action == nil || !rule.Action.Active {
			continue
		}
		suggestion, err := r.buildSuggestion(ctx, tenant, rule, publicationDate)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}

	out := &domain.Recommendation{Alternatives: []domain.ActionSuggestion{}}
	if len(suggestions) > 0 {
		out.Default = &suggestions[0]
		out.Alternatives = suggestions[1:]
	}
	return out, nil
}

func (r *Recommender) buildSuggestion(ctx context.Context, tenant domain.Tenant, rule domain.ActionRule, publicationDate string) (domain.ActionSuggestion, error) {
	action := rule.Action
	suggestion := domain.ActionSuggestion{
		ID:               action.ID,
		Name:             action.Name,
		Description:      action.Description,
		RequiresPetition: action.RequiresPetition,
	}
	if rule.LegalNote != "" {
		note := rule.LegalNote
		suggestion.LegalNote = &note
	}

	if rule.GeneratesDue {
		suggestion.Deadline = r.deadline.BuildSuggestion(ctx, publicationDate, rule.DueDays, string(rule.DueKind), "")
	}

	if action.RequiresPetition {
		template, err := r.rules.OldestActiveTemplate(ctx, tenant, action.ID)
		if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
			return domain.ActionSuggestion{}, fmt.Errorf("lookup template for action %s: %w", action.ID, err)
		}
		suggestion.Template = template
	}
	return suggestion, nil
}
