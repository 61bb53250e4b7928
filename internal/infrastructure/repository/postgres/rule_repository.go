package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// RuleRepository reads the classification catalog used by suggestions.
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const eventColumns = `id, nome, COALESCE(descricao, ''), ativo`

func (r *RuleRepository) ListActiveEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT `+eventColumns+`
FROM evento_processual
WHERE tenant_id = $1 AND ativo
ORDER BY nome ASC
`)
	if err != nil {
		return nil, classify("list active events", err)
	}
	return collectEvents(rows)
}

func (r *RuleRepository) GetEvent(ctx context.Context, tenant domain.Tenant, eventID string) (*domain.WorkflowEvent, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !isUUID(eventID) {
		return nil, domain.WrapError(domain.ErrNotFound, "get event", sql.ErrNoRows)
	}
	event, err := scanEvent(s.queryRow(ctx, `
SELECT `+eventColumns+`
FROM evento_processual
WHERE tenant_id = $1 AND id = $2
`, eventID))
	if err != nil {
		return nil, classify("get event", err)
	}
	return &event, nil
}

func (r *RuleRepository) FindEventByName(ctx context.Context, tenant domain.Tenant, name string) (*domain.WorkflowEvent, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	event, err := scanEvent(s.queryRow(ctx, `
SELECT `+eventColumns+`
FROM evento_processual
WHERE tenant_id = $1 AND nome = $2
LIMIT 1
`, name))
	if err != nil {
		return nil, classify("find event by name", err)
	}
	return &event, nil
}

// ListMatchRules returns the rules of active events in insertion order.
func (r *RuleRepository) ListMatchRules(ctx context.Context, tenant domain.Tenant, kind domain.MatchKind) ([]domain.MatchRule, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT a.id, a.andamento_descricao, a.evento_id, a.tipo_match, a.created_at
FROM andamento_evento a
JOIN evento_processual e ON e.id = a.evento_id AND e.tenant_id = a.tenant_id
WHERE a.tenant_id = $1 AND a.tipo_match = $2 AND e.ativo
ORDER BY a.created_at ASC, a.id ASC
`, string(kind))
	if err != nil {
		return nil, classify("list match rules", err)
	}
	return collectMatchRules(rows)
}

func (r *RuleRepository) ListActionRules(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	return listActionRules(ctx, s, eventID)
}

// OldestActiveTemplate returns nil without error when the action has no
// active template.
func (r *RuleRepository) OldestActiveTemplate(ctx context.Context, tenant domain.Tenant, actionID string) (*domain.DocumentTemplate, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	var template domain.DocumentTemplate
	err = s.queryRow(ctx, `
SELECT id, nome
FROM "Modelos_Peticao"
WHERE tenant_id = $1 AND providencia_id = $2 AND ativo
ORDER BY created_at ASC
LIMIT 1
`, actionID).Scan(&template.ID, &template.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("oldest active template", err)
	}
	return &template, nil
}

const actionRuleQuery = `
SELECT ep.id, ep.evento_id, ep.providencia_id, ep.prioridade, ep.padrao, ep.gera_prazo,
	ep.prazo_dias, COALESCE(ep.tipo_prazo, ''), COALESCE(ep.observacao_juridica, ''),
	pj.id, pj.nome, pj.descricao, pj.ativo, pj.exige_peticao
FROM evento_providencia ep
LEFT JOIN providencia_juridica pj ON pj.id = ep.providencia_id AND pj.tenant_id = ep.tenant_id
WHERE ep.tenant_id = $1 AND ep.evento_id = $2
ORDER BY ep.prioridade ASC, ep.created_at ASC
`

func listActionRules(ctx context.Context, s scoped, eventID string) ([]domain.ActionRule, error) {
	rows, err := s.query(ctx, actionRuleQuery, eventID)
	if err != nil {
		return nil, classify("list action rules", err)
	}
	defer rows.Close()

	out := make([]domain.ActionRule, 0)
	for rows.Next() {
		var rule domain.ActionRule
		var dueDays sql.NullInt64
		var kind string
		var actionID, actionName, actionDescription sql.NullString
		var actionActive, requiresPetition sql.NullBool
		if err := rows.Scan(
			&rule.ID, &rule.EventID, &rule.ActionID, &rule.Priority, &rule.Default, &rule.GeneratesDue,
			&dueDays, &kind, &rule.LegalNote,
			&actionID, &actionName, &actionDescription, &actionActive, &requiresPetition,
		); err != nil {
			return nil, fmt.Errorf("scan action rule: %w", err)
		}
		rule.DueDays = intPtr(dueDays)
		rule.DueKind = domain.DeadlineKind(kind)
		if actionID.Valid {
			rule.Action = &domain.Action{
				ID:               actionID.String,
				Name:             actionName.String,
				Description:      actionDescription.String,
				Active:           actionActive.Bool,
				RequiresPetition: requiresPetition.Bool,
			}
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rules: %w", err)
	}
	return out, nil
}

func scanEvent(row rowScanner) (domain.WorkflowEvent, error) {
	var event domain.WorkflowEvent
	err := row.Scan(&event.ID, &event.Name, &event.Description, &event.Active)
	return event, err
}

func collectEvents(rows *sql.Rows) ([]domain.WorkflowEvent, error) {
	defer rows.Close()
	out := make([]domain.WorkflowEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func collectMatchRules(rows *sql.Rows) ([]domain.MatchRule, error) {
	defer rows.Close()
	out := make([]domain.MatchRule, 0)
	for rows.Next() {
		var rule domain.MatchRule
		var kind string
		if err := rows.Scan(&rule.ID, &rule.Description, &rule.EventID, &kind, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match rule: %w", err)
		}
		rule.Kind = domain.MatchKind(kind)
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rules: %w", err)
	}
	return out, nil
}
