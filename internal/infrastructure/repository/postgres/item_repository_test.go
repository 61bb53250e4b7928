package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

var itemRowColumns = []string{
	"id", "tenant_id", "upload_documento_id", "numero_processo", "texto_publicacao", "tipo_andamento",
	"data_publicacao", "hash_publicacao", "embedding", "dados_originais", "status_decisao", "created_at", "updated_at",
}

func itemRow(id, status string) *sqlmock.Rows {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(itemRowColumns).AddRow(
		id, "tenant-a", "upload-1", "0001234-56.2024.8.26.0100", "Intimação", "Juntada de Petição",
		time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), "hash", "", []byte(`{"texto":"x"}`), status, now, now,
	)
}

const testItemID = "0b9e4c3a-6f1d-4a2e-8c5b-7d3f2e1a9b8c"

func TestItemRepositoryGetItemReturnsNotFound(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectQuery("FROM similaridade_itens").
		WithArgs("tenant-a", testItemID).
		WillReturnError(sql.ErrNoRows)

	_, err := NewItemRepository(m.db).GetItem(context.Background(), mustTenant(t, "tenant-a"), testItemID)
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryLockAndUpdateInOneTransaction(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectBegin()
	m.mock.ExpectQuery("FOR UPDATE").
		WithArgs("tenant-a", testItemID).
		WillReturnRows(itemRow(testItemID, "pendente"))
	m.mock.ExpectQuery("INSERT INTO auditoria_sugestao").
		WithArgs("tenant-a", "item-1", nil, nil, nil, `{"a":1}`, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("audit-1"))
	m.mock.ExpectExec("UPDATE similaridade_itens").
		WithArgs("tenant-a", "item-1", "analisado").
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.mock.ExpectCommit()

	repo := NewItemRepository(m.db)
	err := repo.WithinTx(context.Background(), mustTenant(t, "tenant-a"), func(ctx context.Context, tx ports.DecisionTx) error {
		item, err := tx.LockItem(ctx, testItemID)
		if err != nil {
			return err
		}
		if item.Status != domain.ItemStatusPending {
			t.Fatalf("unexpected status %q", item.Status)
		}
		if item.PublicationDate != "2024-02-15" {
			t.Fatalf("unexpected publication date %q", item.PublicationDate)
		}
		id, err := tx.InsertAudit(ctx, domain.AuditRecord{PublicationID: "item-1", DecisionJSON: `{"a":1}`, UserID: "user-1"})
		if err != nil {
			return err
		}
		if id != "audit-1" {
			t.Fatalf("unexpected audit id %q", id)
		}
		return tx.UpdateItemStatus(ctx, "item-1", domain.ItemStatusAnalyzed)
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryMalformedItemIDIsNotFound(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	repo := NewItemRepository(m.db)
	tenant := mustTenant(t, "tenant-a")
	if _, err := repo.GetItem(context.Background(), tenant, "item-x"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("GetItem: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.LinkedPublication(context.Background(), tenant, "item-x"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("LinkedPublication: expected ErrNotFound, got %v", err)
	}

	m.mock.ExpectBegin()
	m.mock.ExpectRollback()
	err := repo.WithinTx(context.Background(), tenant, func(ctx context.Context, tx ports.DecisionTx) error {
		_, err := tx.LockItem(ctx, "item-x")
		return err
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("LockItem: expected ErrNotFound, got %v", err)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryRollsBackWhenStatusUpdateMissesRow(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectBegin()
	m.mock.ExpectExec("UPDATE similaridade_itens").
		WithArgs("tenant-a", "item-1", "cancelado").
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.mock.ExpectRollback()

	err := NewItemRepository(m.db).WithinTx(context.Background(), mustTenant(t, "tenant-a"), func(ctx context.Context, tx ports.DecisionTx) error {
		return tx.UpdateItemStatus(ctx, "item-1", domain.ItemStatusCanceled)
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryLinkPublicationConflict(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectBegin()
	m.mock.ExpectExec("INSERT INTO similaridade_item_publicacao").
		WithArgs("tenant-a", "item-1", "pub-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	m.mock.ExpectRollback()

	err := NewItemRepository(m.db).WithinTx(context.Background(), mustTenant(t, "tenant-a"), func(ctx context.Context, tx ports.DecisionTx) error {
		return tx.LinkPublication(ctx, "item-1", "pub-1")
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryEnsureLawsuitCreatesMissing(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectBegin()
	m.mock.ExpectQuery("SELECT idprocesso").
		WithArgs("tenant-a", "0001").
		WillReturnError(sql.ErrNoRows)
	m.mock.ExpectQuery("INSERT INTO processos").
		WithArgs("tenant-a", "0001").
		WillReturnRows(sqlmock.NewRows([]string{"idprocesso"}).AddRow("proc-1"))
	m.mock.ExpectCommit()

	var got string
	err := NewItemRepository(m.db).WithinTx(context.Background(), mustTenant(t, "tenant-a"), func(ctx context.Context, tx ports.DecisionTx) error {
		var err error
		got, err = tx.EnsureLawsuit(ctx, "0001")
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if got != "proc-1" {
		t.Fatalf("expected proc-1, got %q", got)
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestItemRepositoryPublicationExistsIsTenantScoped(t *testing.T) {
	m, done := newMockDB(t)
	defer done()

	m.mock.ExpectBegin()
	m.mock.ExpectQuery(`FROM "Publicacao"`).
		WithArgs("tenant-b", "pub-1").
		WillReturnError(sql.ErrNoRows)
	m.mock.ExpectCommit()

	var exists bool
	err := NewItemRepository(m.db).WithinTx(context.Background(), mustTenant(t, "tenant-b"), func(ctx context.Context, tx ports.DecisionTx) error {
		var err error
		exists, err = tx.PublicationExists(ctx, "pub-1")
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if exists {
		t.Fatalf("publication of another tenant must not be visible")
	}
	if err := m.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
