package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

// ItemRepository reads docket items and runs decision transactions.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, tenant_id, COALESCE(upload_documento_id, ''), COALESCE(numero_processo, ''),
	COALESCE(texto_publicacao, ''), COALESCE(tipo_andamento, ''), data_publicacao,
	COALESCE(hash_publicacao, ''), COALESCE(embedding, ''), dados_originais, status_decisao,
	created_at, updated_at`

func (r *ItemRepository) GetItem(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.Item, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !isUUID(itemID) {
		return nil, domain.WrapError(domain.ErrNotFound, "get item", sql.ErrNoRows)
	}
	item, err := scanItem(s.queryRow(ctx, `
SELECT `+itemColumns+`
FROM similaridade_itens
WHERE tenant_id = $1 AND id = $2
`, itemID))
	if err != nil {
		return nil, classify("get item", err)
	}
	return &item, nil
}

func (r *ItemRepository) ListPendingByUpload(ctx context.Context, tenant domain.Tenant, uploadID string) ([]domain.Item, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `
SELECT `+itemColumns+`
FROM similaridade_itens
WHERE tenant_id = $1 AND upload_documento_id = $2 AND status_decisao = 'pendente'
ORDER BY created_at ASC
`, uploadID)
	if err != nil {
		return nil, classify("list pending items", err)
	}
	defer rows.Close()

	out := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

func (r *ItemRepository) LinkedPublication(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.LinkedPublication, error) {
	s, err := scope(r.db, tenant)
	if err != nil {
		return nil, err
	}
	publicationID, err := linkedPublicationID(ctx, s, itemID)
	if err != nil {
		return nil, err
	}
	return &domain.LinkedPublication{PublicationID: publicationID}, nil
}

func (r *ItemRepository) WithinTx(ctx context.Context, tenant domain.Tenant, fn func(context.Context, ports.DecisionTx) error) error {
	return withinTx(ctx, r.db, tenant, func(s scoped) error {
		return fn(ctx, &decisionTx{s: s})
	})
}

type decisionTx struct {
	s scoped
}

func (tx *decisionTx) LockItem(ctx context.Context, itemID string) (*domain.Item, error) {
	if !isUUID(itemID) {
		return nil, domain.WrapError(domain.ErrNotFound, "lock item", sql.ErrNoRows)
	}
	item, err := scanItem(tx.s.queryRow(ctx, `
SELECT `+itemColumns+`
FROM similaridade_itens
WHERE tenant_id = $1 AND id = $2
FOR UPDATE
`, itemID))
	if err != nil {
		return nil, classify("lock item", err)
	}
	return &item, nil
}

func (tx *decisionTx) UpdateItemStatus(ctx context.Context, itemID string, status domain.ItemStatus) error {
	return tx.s.execOne(ctx, "update item status", `
UPDATE similaridade_itens
SET status_decisao = $3, updated_at = now()
WHERE tenant_id = $1 AND id = $2
`, itemID, string(status))
}

func (tx *decisionTx) InsertAudit(ctx context.Context, record domain.AuditRecord) (string, error) {
	var suggestedDeadline any
	if len(record.SuggestedDeadline) > 0 {
		suggestedDeadline = string(record.SuggestedDeadline)
	}
	var id string
	err := tx.s.queryRow(ctx, `
INSERT INTO auditoria_sugestao (
	tenant_id, publicacao_id, evento_sugerido_id, providencia_sugerida_id, prazo_sugerido, decisao_final_json, usuario_id
) VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`,
		record.PublicationID, nullableStringPtr(record.SuggestedEventID), nullableStringPtr(record.SuggestedActionID),
		suggestedDeadline, record.DecisionJSON, record.UserID,
	).Scan(&id)
	if err != nil {
		return "", classify("insert audit", err)
	}
	return id, nil
}

func (tx *decisionTx) LinkedPublicationID(ctx context.Context, itemID string) (string, error) {
	return linkedPublicationID(ctx, tx.s, itemID)
}

func (tx *decisionTx) PublicationExists(ctx context.Context, publicationID string) (bool, error) {
	var id string
	err := tx.s.queryRow(ctx, `
SELECT id
FROM "Publicacao"
WHERE tenant_id = $1 AND id = $2
LIMIT 1
`, publicationID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify("check publication", err)
	}
	return true, nil
}

func (tx *decisionTx) InsertDeadline(ctx context.Context, deadline domain.Deadline) (string, error) {
	var id string
	err := tx.s.queryRow(ctx, `
INSERT INTO "Prazo" (
	tenant_id, descricao, data_inicio, data_limite, dias, publicacaoid, auditoria_sugestao_id
) VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`,
		deadline.Description, nullableDate(deadline.StartDate), deadline.DueDate, nullableInt(deadline.Days),
		deadline.PublicationID, deadline.AuditID,
	).Scan(&id)
	if err != nil {
		return "", classify("insert deadline", err)
	}
	return id, nil
}

// EnsureLawsuit returns the lawsuit with number, creating it when absent.
func (tx *decisionTx) EnsureLawsuit(ctx context.Context, number string) (string, error) {
	return ensureLawsuit(ctx, tx.s, number)
}

func (tx *decisionTx) InsertPublication(ctx context.Context, publication domain.Publication) (string, error) {
	var id string
	err := tx.s.queryRow(ctx, `
INSERT INTO "Publicacao" (tenant_id, processoid, data_publicacao, texto_integral, hash_publicacao)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`,
		publication.LawsuitID, nullableDate(publication.PublicationDate), publication.Text, nullableString(publication.Hash),
	).Scan(&id)
	if err != nil {
		return "", classify("insert publication", err)
	}
	return id, nil
}

func (tx *decisionTx) InsertPublicationEmbedding(ctx context.Context, publication domain.Publication) error {
	_, err := tx.s.exec(ctx, `
INSERT INTO publicacao_embeddings (tenant_id, publicacao_id, numero_do_processo, texto, embedding)
VALUES ($1,$2,$3,$4,$5::vector)
`, publication.ID, publication.LawsuitNumber, publication.Text, nullableString(publication.Embedding))
	if err != nil {
		return classify("insert publication embedding", err)
	}
	return nil
}

func (tx *decisionTx) InsertAndamento(ctx context.Context, lawsuitID, description, date string) error {
	_, err := tx.s.exec(ctx, `
INSERT INTO "Andamento" (tenant_id, "processoId", descricao, data_evento)
VALUES ($1,$2,$3,COALESCE($4::date, CURRENT_DATE))
`, lawsuitID, description, nullableDate(date))
	if err != nil {
		return classify("insert andamento", err)
	}
	return nil
}

func (tx *decisionTx) LinkPublication(ctx context.Context, itemID, publicationID string) error {
	_, err := tx.s.exec(ctx, `
INSERT INTO similaridade_item_publicacao (tenant_id, item_similaridade_id, publicacao_id)
VALUES ($1,$2,$3)
`, itemID, publicationID)
	if err != nil {
		return classify("link publication", err)
	}
	return nil
}

func (tx *decisionTx) InsertDiscard(ctx context.Context, discard domain.Discard) error {
	_, err := tx.s.exec(ctx, `
INSERT INTO similaridade_descartes_auditoria (tenant_id, item_similaridade_id, dados_descartados, motivo)
VALUES ($1,$2,$3,$4)
`, discard.ItemID, string(discard.Snapshot), discard.Reason)
	if err != nil {
		return classify("insert discard", err)
	}
	return nil
}

func linkedPublicationID(ctx context.Context, s scoped, itemID string) (string, error) {
	if !isUUID(itemID) {
		return "", domain.WrapError(domain.ErrNotFound, "linked publication", sql.ErrNoRows)
	}
	var publicationID string
	err := s.queryRow(ctx, `
SELECT publicacao_id
FROM similaridade_item_publicacao
WHERE tenant_id = $1 AND item_similaridade_id = $2
LIMIT 1
`, itemID).Scan(&publicationID)
	if err != nil {
		return "", classify("linked publication", err)
	}
	return publicationID, nil
}

func ensureLawsuit(ctx context.Context, s scoped, number string) (string, error) {
	var id string
	err := s.queryRow(ctx, `
SELECT idprocesso
FROM processos
WHERE tenant_id = $1 AND numprocesso = $2
LIMIT 1
`, number).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", classify("find lawsuit", err)
	}

	err = s.queryRow(ctx, `
INSERT INTO processos (tenant_id, numprocesso)
VALUES ($1,$2)
ON CONFLICT (tenant_id, numprocesso) DO UPDATE SET numprocesso = EXCLUDED.numprocesso
RETURNING idprocesso
`, number).Scan(&id)
	if err != nil {
		return "", classify("insert lawsuit", err)
	}
	return id, nil
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	var publicationDate sql.NullTime
	var original []byte
	var status string
	err := row.Scan(
		&item.ID, &item.TenantID, &item.UploadID, &item.LawsuitNumber,
		&item.Text, &item.AndamentoType, &publicationDate,
		&item.PublicationHash, &item.Embedding, &original, &status,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	item.PublicationDate = formatDate(publicationDate)
	if len(original) > 0 {
		item.OriginalData = append([]byte(nil), original...)
	}
	item.Status = domain.ItemStatus(status)
	return item, nil
}
