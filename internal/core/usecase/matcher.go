package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// MatchRule classifies andamento text against the rule sets. An exact match
// always wins. Among contains matches the longest normalized description
// wins; equal lengths keep the order of containsRules, so the earlier rule
// wins.
func MatchRule(andamento string, exactRules, containsRules []domain.MatchRule) *domain.MatchRule {
	key, ok := NormalizeText(andamento)
	if !ok {
		return nil
	}

	for i := range exactRules {
		ruleKey, ok := NormalizeText(exactRules[i].Description)
		if ok && ruleKey == key {
			return &exactRules[i]
		}
	}

	type candidate struct {
		index int
		size  int
	}
	var matches []candidate
	for i := range containsRules {
		ruleKey, ok := NormalizeText(containsRules[i].Description)
		if ok && strings.Contains(key, ruleKey) {
			matches = append(matches, candidate{index: i, size: len([]rune(ruleKey))})
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].size > matches[b].size
	})
	return &containsRules[matches[0].index]
}

// EventMatcher resolves the workflow event of an andamento for a tenant.
type EventMatcher struct {
	rules  ports.RuleStore
	logger *slog.Logger
}

func NewEventMatcher(rules ports.RuleStore, logger *slog.Logger) *EventMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventMatcher{rules: rules, logger: logger}
}

// ResolveEvent never returns a nil event without an error: a miss falls back
// to the tenant's unclassified event, or to a synthetic placeholder.
func (m *EventMatcher) ResolveEvent(ctx context.Context, tenant domain.Tenant, andamento string) (*domain.WorkflowEvent, error) {
	exactRules, err := m.rules.ListMatchRules(ctx, tenant, domain.MatchExact)
	if err != nil {
		return nil, fmt.Errorf("list exact rules: %w", err)
	}
	if rule := MatchRule(andamento, exactRules, nil); rule != nil {
		return m.eventForRule(ctx, tenant, rule)
	}

	containsRules, err := m.rules.ListMatchRules(ctx, tenant, domain.MatchContains)
	if err != nil {
		return nil, fmt.Errorf("list contains rules: %w", err)
	}
	if rule := MatchRule(andamento, nil, containsRules); rule != nil {
		return m.eventForRule(ctx, tenant, rule)
	}

	m.logger.Warn("event_match_miss", "tenant_id", tenant.ID(), "tipo_andamento", andamento)
	return m.unclassified(ctx, tenant), nil
}

func (m *EventMatcher) eventForRule(ctx context.Context, tenant domain.Tenant, rule *domain.MatchRule) (*domain.WorkflowEvent, error) {
	event, err := m.rules.GetEvent(ctx, tenant, rule.EventID)
	if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get matched event: %w", err)
	}
	if event == nil {
		return m.unclassified(ctx, tenant), nil
	}
	return event, nil
}

func (m *EventMatcher) unclassified(ctx context.Context, tenant domain.Tenant) *domain.WorkflowEvent {
	event, err := m.rules.FindEventByName(ctx, tenant, domain.UnclassifiedEventName)
	if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		m.logger.Warn("unclassified_event_lookup_failed", "tenant_id", tenant.ID(), "error", err)
	}
	if event == nil {
		return domain.UnclassifiedEvent()
	}
	return event
}
