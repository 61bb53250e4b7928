package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskSelect = `
SELECT
	t.id, t.data_limite,
	s.id, s.nome, COALESCE(s.cor_hex, ''),
	COALESCE(p.idprocesso::text, ''), COALESCE(p.numprocesso, ''), COALESCE(p.assunto, ''), COALESCE(p.pasta, ''),
	e.id, e.nome, COALESCE(e.descricao, ''),
	pj.id, pj.nome, COALESCE(pj.descricao, ''),
	t.responsavel_id::text, ru.nome,
	t.revisor_id::text, rv.nome,
	t.created_at, t.updated_at
FROM tarefa_fila_trabalho t
JOIN aux_status s ON s.id = t.status_id
JOIN evento_processual e ON e.id = t.evento_id
JOIN providencia_juridica pj ON pj.id = t.providencia_id
LEFT JOIN processos p ON p.idprocesso = t.processo_id
LEFT JOIN users ru ON ru.id = t.responsavel_id
LEFT JOIN users rv ON rv.id = t.revisor_id
`

func (r *TaskRepository) ListTasks(ctx context.Context, tenant domain.Tenant, filter domain.TaskFilter) ([]domain.Task, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}

	conditions := []string{"t.tenant_id = $1"}
	args := make([]any, 0, 4)
	if filter.AssigneeID != "" {
		args = append(args, filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("t.responsavel_id = $%d", len(args)+1))
	}
	if filter.StatusID != "" {
		args = append(args, filter.StatusID)
		conditions = append(conditions, fmt.Sprintf("t.status_id = $%d", len(args)+1))
	}
	if filter.StatusName != "" {
		args = append(args, filter.StatusName)
		conditions = append(conditions, fmt.Sprintf("lower(s.nome) = lower($%d)", len(args)+1))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("p.numprocesso ILIKE $%d", len(args)+1))
	}

	query := taskSelect + "WHERE " + strings.Join(conditions, " AND ") + "\nORDER BY t.data_limite ASC NULLS LAST, t.created_at ASC"
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

func (r *TaskRepository) GetTask(ctx context.Context, tenant domain.Tenant, taskID string) (*domain.Task, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !isUUID(taskID) {
		return nil, domain.WrapError(domain.ErrNotFound, "get task", sql.ErrNoRows)
	}
	task, err := scanTask(s.queryRow(ctx, taskSelect+"WHERE t.tenant_id = $1 AND t.id = $2", taskID))
	if err != nil {
		return nil, classify("get task", err)
	}
	return &task, nil
}

// AssignTask only touches the fields present in assignment. An explicit
// null clears the field.
func (r *TaskRepository) AssignTask(ctx context.Context, tenant domain.Tenant, taskID string, assignment domain.TaskAssignment) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	if !isUUID(taskID) {
		return domain.WrapError(domain.ErrNotFound, "assign task", sql.ErrNoRows)
	}

	args := []any{taskID}
	sets := make([]string, 0, 3)
	if assignment.Assignee.Set {
		args = append(args, nullableStringPtr(assignment.Assignee.Value))
		sets = append(sets, fmt.Sprintf("responsavel_id = $%d", len(args)+1))
	}
	if assignment.Reviewer.Set {
		args = append(args, nullableStringPtr(assignment.Reviewer.Value))
		sets = append(sets, fmt.Sprintf("revisor_id = $%d", len(args)+1))
	}
	sets = append(sets, "updated_at = now()")

	return s.execOne(ctx, "assign task", `
UPDATE tarefa_fila_trabalho
SET `+strings.Join(sets, ", ")+`
WHERE tenant_id = $1 AND id = $2
`, args...)
}

// CreateTask inserts the task unless one already exists for the same
// source audit. It reports whether a row was created.
func (r *TaskRepository) CreateTask(ctx context.Context, tenant domain.Tenant, task domain.NewTask) (bool, error) {
	created := false
	err := withinTx(ctx, r.db, tenant, func(s scoped) error {
		lawsuitID, err := lawsuitForItem(ctx, s, task.ItemID)
		if err != nil {
			return err
		}

		var statusID string
		err = s.queryRow(ctx, `
SELECT id
FROM aux_status
WHERE tenant_id = $1 AND nome = $2
`, string(domain.TaskAwaiting)).Scan(&statusID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrUnprocessable, "resolve initial task status", err)
		}
		if err != nil {
			return classify("resolve initial task status", err)
		}

		var due any
		if task.DueDate != nil {
			due = task.DueDate.Format(domain.DateLayout)
		}
		result, err := s.exec(ctx, `
INSERT INTO tarefa_fila_trabalho (
	tenant_id, id, origem_id, item_similaridade_id, processo_id, evento_id, providencia_id, responsavel_id, status_id, data_limite
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT DO NOTHING
`, task.ID, task.SourceID, nullableString(task.ItemID), nullableString(lawsuitID), task.EventID, task.ActionID,
			nullableStringPtr(task.AssigneeID), statusID, due)
		if err != nil {
			return classify("insert task", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert task rows affected: %w", err)
		}
		created = rows == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func lawsuitForItem(ctx context.Context, s scoped, itemID string) (string, error) {
	if itemID == "" {
		return "", nil
	}
	var number sql.NullString
	err := s.queryRow(ctx, `
SELECT numero_processo
FROM similaridade_itens
WHERE tenant_id = $1 AND id = $2
`, itemID).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", classify("find item lawsuit", err)
	}
	if strings.TrimSpace(number.String) == "" {
		return "", nil
	}
	return ensureLawsuit(ctx, s, strings.TrimSpace(number.String))
}

const checklistColumns = `id, tarefa_id, titulo, ordem, obrigatorio, concluido`

func (r *TaskRepository) ListChecklist(ctx context.Context, tenant domain.Tenant, taskID string) ([]domain.ChecklistItem, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if err := taskExists(ctx, s, taskID); err != nil {
		return nil, err
	}
	return listChecklist(ctx, s, taskID)
}

func (r *TaskRepository) CreateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID string, draft domain.ChecklistDraft) (*domain.ChecklistItem, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !isUUID(taskID) {
		return nil, domain.WrapError(domain.ErrNotFound, "create checklist item", sql.ErrNoRows)
	}

	var order any
	if draft.Order != nil {
		order = *draft.Order
	}
	required := false
	if draft.Required != nil {
		required = *draft.Required
	}

	item, err := scanChecklistItem(s.queryRow(ctx, `
INSERT INTO tarefa_checklist (tenant_id, id, tarefa_id, titulo, ordem, obrigatorio)
SELECT $1, $2, t.id, $3,
	COALESCE($4::integer, (
		SELECT COALESCE(MAX(c.ordem), 0) + 1
		FROM tarefa_checklist c
		WHERE c.tenant_id = $1 AND c.tarefa_id = t.id
	)),
	$5
FROM tarefa_fila_trabalho t
WHERE t.tenant_id = $1 AND t.id = $6
RETURNING `+checklistColumns,
		uuid.NewString(), draft.Title, order, required, taskID))
	if err != nil {
		return nil, classify("create checklist item", err)
	}
	return &item, nil
}

func (r *TaskRepository) UpdateChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string, done bool) (*domain.ChecklistItem, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !isUUID(taskID) || !isUUID(itemID) {
		return nil, domain.WrapError(domain.ErrNotFound, "update checklist item", sql.ErrNoRows)
	}
	item, err := scanChecklistItem(s.queryRow(ctx, `
UPDATE tarefa_checklist
SET concluido = $4, updated_at = now()
WHERE tenant_id = $1 AND tarefa_id = $2 AND id = $3
RETURNING `+checklistColumns,
		taskID, itemID, done))
	if err != nil {
		return nil, classify("update checklist item", err)
	}
	return &item, nil
}

func (r *TaskRepository) DeleteChecklistItem(ctx context.Context, tenant domain.Tenant, taskID, itemID string) error {
	s, err := scope(r.db, tenant)
	if err != nil {
		return err
	}
	if !isUUID(taskID) || !isUUID(itemID) {
		return domain.WrapError(domain.ErrNotFound, "delete checklist item", sql.ErrNoRows)
	}
	return s.execOne(ctx, "delete checklist item", `
DELETE FROM tarefa_checklist
WHERE tenant_id = $1 AND tarefa_id = $2 AND id = $3
`, taskID, itemID)
}

func (r *TaskRepository) WithinTaskTx(ctx context.Context, tenant domain.Tenant, fn func(context.Context, ports.TaskTx) error) error {
	return withinTx(ctx, r.db, tenant, func(s scoped) error {
		return fn(ctx, &taskTx{s: s})
	})
}

type taskTx struct {
	s scoped
}

func (tx *taskTx) LockTask(ctx context.Context, taskID string) (*domain.TaskLock, error) {
	if !isUUID(taskID) {
		return nil, domain.WrapError(domain.ErrNotFound, "lock task", sql.ErrNoRows)
	}
	var lock domain.TaskLock
	var status string
	var reviewer sql.NullString
	err := tx.s.queryRow(ctx, `
SELECT t.id, s.id, s.nome, COALESCE(s.cor_hex, ''), t.revisor_id::text,
	COALESCE(p.idprocesso::text, ''), COALESCE(p.numprocesso, '')
FROM tarefa_fila_trabalho t
JOIN aux_status s ON s.id = t.status_id
LEFT JOIN processos p ON p.idprocesso = t.processo_id
WHERE t.tenant_id = $1 AND t.id = $2
FOR UPDATE OF t
`, taskID).Scan(
		&lock.ID, &lock.Status.ID, &status, &lock.Status.Color, &reviewer,
		&lock.LawsuitID, &lock.LawsuitNumber,
	)
	if err != nil {
		return nil, classify("lock task", err)
	}
	lock.Status.Name = domain.TaskStatus(status)
	lock.ReviewerID = stringPtr(reviewer)
	return &lock, nil
}

// ResolveStatus looks the status up by id when given, otherwise by name
// ignoring case.
func (tx *taskTx) ResolveStatus(ctx context.Context, change domain.StatusChange) (*domain.StatusRef, error) {
	var row rowScanner
	switch {
	case change.StatusID != "":
		if !isUUID(change.StatusID) {
			return nil, domain.WrapError(domain.ErrNotFound, "resolve status", sql.ErrNoRows)
		}
		row = tx.s.queryRow(ctx, `
SELECT id, nome, COALESCE(cor_hex, '')
FROM aux_status
WHERE tenant_id = $1 AND id = $2
`, change.StatusID)
	default:
		row = tx.s.queryRow(ctx, `
SELECT id, nome, COALESCE(cor_hex, '')
FROM aux_status
WHERE tenant_id = $1 AND lower(nome) = lower($2)
ORDER BY ordem ASC
LIMIT 1
`, change.StatusName)
	}

	var ref domain.StatusRef
	var name string
	if err := row.Scan(&ref.ID, &name, &ref.Color); err != nil {
		return nil, classify("resolve status", err)
	}
	ref.Name = domain.TaskStatus(name)
	return &ref, nil
}

func (tx *taskTx) ListChecklist(ctx context.Context, taskID string) ([]domain.ChecklistItem, error) {
	return listChecklist(ctx, tx.s, taskID)
}

func (tx *taskTx) SetTaskStatus(ctx context.Context, taskID, statusID string) error {
	return tx.s.execOne(ctx, "set task status", `
UPDATE tarefa_fila_trabalho
SET status_id = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2
`, taskID, statusID)
}

func taskExists(ctx context.Context, s scoped, taskID string) error {
	if !isUUID(taskID) {
		return domain.WrapError(domain.ErrNotFound, "find task", sql.ErrNoRows)
	}
	var exists bool
	if err := s.queryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM tarefa_fila_trabalho WHERE tenant_id = $1 AND id = $2
)
`, taskID).Scan(&exists); err != nil {
		return classify("find task", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrNotFound, "find task", sql.ErrNoRows)
	}
	return nil
}

func listChecklist(ctx context.Context, s scoped, taskID string) ([]domain.ChecklistItem, error) {
	rows, err := s.query(ctx, `
SELECT `+checklistColumns+`
FROM tarefa_checklist
WHERE tenant_id = $1 AND tarefa_id = $2
ORDER BY ordem ASC, created_at ASC
`, taskID)
	if err != nil {
		return nil, classify("list checklist", err)
	}
	defer rows.Close()

	out := make([]domain.ChecklistItem, 0)
	for rows.Next() {
		item, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist: %w", err)
	}
	return out, nil
}

func scanChecklistItem(row rowScanner) (domain.ChecklistItem, error) {
	var item domain.ChecklistItem
	err := row.Scan(&item.ID, &item.TaskID, &item.Title, &item.Order, &item.Required, &item.Done)
	return item, err
}

func scanTask(row rowScanner) (domain.Task, error) {
	var task domain.Task
	var due sql.NullTime
	var status string
	var assigneeID, assigneeName, reviewerID, reviewerName sql.NullString
	err := row.Scan(
		&task.ID, &due,
		&task.Status.ID, &status, &task.Status.Color,
		&task.Lawsuit.ID, &task.Lawsuit.Number, &task.Lawsuit.Subject, &task.Lawsuit.Folder,
		&task.Event.ID, &task.Event.Name, &task.Event.Description,
		&task.Action.ID, &task.Action.Name, &task.Action.Description,
		&assigneeID, &assigneeName,
		&reviewerID, &reviewerName,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	task.DueDate = timePtr(due)
	task.Status.Name = domain.TaskStatus(status)
	task.Assignee = namedRef(assigneeID, assigneeName)
	task.Reviewer = namedRef(reviewerID, reviewerName)
	return task, nil
}

func namedRef(id, name sql.NullString) *domain.NamedRef {
	if !id.Valid || id.String == "" {
		return nil
	}
	return &domain.NamedRef{ID: id.String, Name: name.String}
}

// isUUID guards uuid columns so malformed ids read as absent rows instead
// of failing the statement with 22P02.
func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
