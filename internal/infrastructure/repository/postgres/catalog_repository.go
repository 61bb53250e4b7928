package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// CatalogRepository persists events, mappings, action rules and actions.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.WorkflowEvent, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT `+eventColumns+`
FROM evento_processual
WHERE tenant_id = $1
ORDER BY nome ASC
`)
	if err != nil {
		return nil, classify("list events", err)
	}
	return collectEvents(rows)
}

func (r *CatalogRepository) CreateEvent(ctx context.Context, tenant domain.Tenant, event *domain.WorkflowEvent) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO evento_processual (tenant_id, id, nome, descricao, ativo)
VALUES ($1,$2,$3,$4,$5)
`, event.ID, event.Name, nullableString(event.Description), event.Active)
	if err != nil {
		return classify("create event", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateEvent(ctx context.Context, tenant domain.Tenant, event *domain.WorkflowEvent) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "update event", `
UPDATE evento_processual
SET nome = $3, descricao = $4, ativo = $5
WHERE tenant_id = $1 AND id = $2
`, event.ID, event.Name, nullableString(event.Description), event.Active)
}

func (r *CatalogRepository) DeleteEvent(ctx context.Context, tenant domain.Tenant, eventID string) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete event", `
DELETE FROM evento_processual
WHERE tenant_id = $1 AND id = $2
`, eventID)
}

func (r *CatalogRepository) ListMappings(ctx context.Context, tenant domain.Tenant) ([]domain.MatchRule, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT id, andamento_descricao, evento_id, tipo_match, created_at
FROM andamento_evento
WHERE tenant_id = $1
ORDER BY created_at ASC, id ASC
`)
	if err != nil {
		return nil, classify("list mappings", err)
	}
	return collectMatchRules(rows)
}

// CreateMapping only links events of the same tenant.
func (r *CatalogRepository) CreateMapping(ctx context.Context, tenant domain.Tenant, rule *domain.MatchRule) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	err = s.queryRow(ctx, `
INSERT INTO andamento_evento (tenant_id, id, andamento_descricao, evento_id, tipo_match)
SELECT $1, $2, $3, e.id, $5
FROM evento_processual e
WHERE e.tenant_id = $1 AND e.id = $4
RETURNING created_at
`, rule.ID, rule.Description, rule.EventID, string(rule.Kind)).Scan(&rule.CreatedAt)
	if err != nil {
		return classify("create mapping", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateMapping(ctx context.Context, tenant domain.Tenant, rule *domain.MatchRule) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	err = s.queryRow(ctx, `
UPDATE andamento_evento a
SET andamento_descricao = $3, evento_id = e.id, tipo_match = $5
FROM evento_processual e
WHERE a.tenant_id = $1 AND a.id = $2 AND e.tenant_id = $1 AND e.id = $4
RETURNING a.created_at
`, rule.ID, rule.Description, rule.EventID, string(rule.Kind)).Scan(&rule.CreatedAt)
	if err != nil {
		return classify("update mapping", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteMapping(ctx context.Context, tenant domain.Tenant, ruleID string) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete mapping", `
DELETE FROM andamento_evento
WHERE tenant_id = $1 AND id = $2
`, ruleID)
}

func (r *CatalogRepository) ListEventActions(ctx context.Context, tenant domain.Tenant, eventID string) ([]domain.ActionRule, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	return listActionRules(ctx, s, eventID)
}

func (r *CatalogRepository) CreateEventAction(ctx context.Context, tenant domain.Tenant, rule *domain.ActionRule) error {
	return r.saveEventAction(ctx, tenant, rule, "create event action", `
INSERT INTO evento_providencia (
	tenant_id, id, evento_id, providencia_id, prioridade, padrao, gera_prazo, prazo_dias, tipo_prazo, observacao_juridica
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`)
}

func (r *CatalogRepository) UpdateEventAction(ctx context.Context, tenant domain.Tenant, rule *domain.ActionRule) error {
	if !isUUID(rule.ID) {
		return domain.WrapError(domain.ErrNotFound, "update event action", sql.ErrNoRows)
	}
	return r.saveEventAction(ctx, tenant, rule, "update event action", `
UPDATE evento_providencia
SET evento_id = $3, providencia_id = $4, prioridade = $5, padrao = $6,
	gera_prazo = $7, prazo_dias = $8, tipo_prazo = $9, observacao_juridica = $10
WHERE tenant_id = $1 AND id = $2
`)
}

// saveEventAction locks the event row so concurrent default changes of the
// same event are serialized, then clears the previous default before write.
// The partial unique index uq_evento_providencia_padrao backs this up.
func (r *CatalogRepository) saveEventAction(ctx context.Context, tenant domain.Tenant, rule *domain.ActionRule, op, write string) error {
	return withinTx(ctx, r.db, tenant, func(s scoped) error {
		var eventID string
		if err := s.queryRow(ctx, `
SELECT id
FROM evento_processual
WHERE tenant_id = $1 AND id = $2
FOR UPDATE
`, rule.EventID).Scan(&eventID); err != nil {
			return classify("lock event", err)
		}

		var actionID string
		if err := s.queryRow(ctx, `
SELECT id
FROM providencia_juridica
WHERE tenant_id = $1 AND id = $2
`, rule.ActionID).Scan(&actionID); err != nil {
			return classify("find action", err)
		}

		if rule.Default {
			if _, err := s.exec(ctx, `
UPDATE evento_providencia
SET padrao = false
WHERE tenant_id = $1 AND evento_id = $2 AND padrao AND id <> $3
`, rule.EventID, rule.ID); err != nil {
				return classify("clear default action", err)
			}
		}

		return s.execOne(ctx, op, write,
			rule.ID, rule.EventID, rule.ActionID, rule.Priority, rule.Default, rule.GeneratesDue,
			nullableInt(rule.DueDays), nullableString(string(rule.DueKind)), nullableString(rule.LegalNote),
		)
	})
}

func (r *CatalogRepository) DeleteEventAction(ctx context.Context, tenant domain.Tenant, ruleID string) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete event action", `
DELETE FROM evento_providencia
WHERE tenant_id = $1 AND id = $2
`, ruleID)
}

func (r *CatalogRepository) ListActions(ctx context.Context, tenant domain.Tenant) ([]domain.Action, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT id, nome, COALESCE(descricao, ''), ativo, exige_peticao
FROM providencia_juridica
WHERE tenant_id = $1
ORDER BY nome ASC
`)
	if err != nil {
		return nil, classify("list actions", err)
	}
	defer rows.Close()

	out := make([]domain.Action, 0)
	for rows.Next() {
		var action domain.Action
		if err := rows.Scan(&action.ID, &action.Name, &action.Description, &action.Active, &action.RequiresPetition); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) CreateAction(ctx context.Context, tenant domain.Tenant, action *domain.Action) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO providencia_juridica (tenant_id, id, nome, descricao, ativo, exige_peticao)
VALUES ($1,$2,$3,$4,$5,$6)
`, action.ID, action.Name, nullableString(action.Description), action.Active, action.RequiresPetition)
	if err != nil {
		return classify("create action", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateAction(ctx context.Context, tenant domain.Tenant, action *domain.Action) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "update action", `
UPDATE providencia_juridica
SET nome = $3, descricao = $4, ativo = $5, exige_peticao = $6
WHERE tenant_id = $1 AND id = $2
`, action.ID, action.Name, nullableString(action.Description), action.Active, action.RequiresPetition)
}

func (r *CatalogRepository) DeleteAction(ctx context.Context, tenant domain.Tenant, actionID string) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete action", `
DELETE FROM providencia_juridica
WHERE tenant_id = $1 AND id = $2
`, actionID)
}

// StatusSeed is one row of the task status catalog.
type StatusSeed struct {
	Name  string `yaml:"nome"`
	Color string `yaml:"cor_hex"`
	Order int    `yaml:"ordem"`
}

// SeedCatalog upserts the status catalog and the unclassified event of a
// tenant. It is safe to run repeatedly.
func (r *CatalogRepository) SeedCatalog(ctx context.Context, tenant domain.Tenant, statuses []StatusSeed) error {
	return withinTx(ctx, r.db, tenant, func(s scoped) error {
		for _, status := range statuses {
			if _, err := s.exec(ctx, `
INSERT INTO aux_status (tenant_id, nome, cor_hex, ordem)
VALUES ($1,$2,$3,$4)
ON CONFLICT (tenant_id, nome) DO UPDATE SET cor_hex = EXCLUDED.cor_hex, ordem = EXCLUDED.ordem
`, status.Name, nullableString(status.Color), status.Order); err != nil {
				return classify("seed status "+status.Name, err)
			}
		}
		if _, err := s.exec(ctx, `
INSERT INTO evento_processual (tenant_id, nome, descricao, ativo)
VALUES ($1,$2,$3,true)
ON CONFLICT (tenant_id, nome) DO NOTHING
`, domain.UnclassifiedEventName, domain.UnclassifiedEvent().Description); err != nil {
			return classify("seed unclassified event", err)
		}
		return nil
	})
}
