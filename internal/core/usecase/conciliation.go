package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

const registrationAndamento = "Cadastro automático via similaridade"

// ConciliationUseCase registers or discards items that are still pendente.
type ConciliationUseCase struct {
	items    ports.ItemReader
	store    ports.DecisionStore
	embedder ports.Embedder
	observer DecisionObserver
	logger   *slog.Logger
}

func NewConciliationUseCase(
	items ports.ItemReader,
	store ports.DecisionStore,
	embedder ports.Embedder,
	observer DecisionObserver,
	logger *slog.Logger,
) *ConciliationUseCase {
	if observer == nil {
		observer = noopDecisionObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConciliationUseCase{
		items:    items,
		store:    store,
		embedder: embedder,
		observer: observer,
		logger:   logger,
	}
}

// Register creates the lawsuit, publication and andamento for an item and
// moves it to cadastrado_sem_prazo. A missing embedding is generated before
// the row lock is taken; failure to generate it fails the registration.
func (uc *ConciliationUseCase) Register(ctx context.Context, tenant domain.Tenant, userID, itemID string) (*domain.RegistrationResult, error) {
	result, err := uc.register(ctx, tenant, userID, itemID)
	uc.observer.ObserveDecision("cadastrar", outcomeLabel(err))
	return result, err
}

func (uc *ConciliationUseCase) register(ctx context.Context, tenant domain.Tenant, userID, itemID string) (*domain.RegistrationResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.NewValidationError("item_similaridade_id é obrigatório.")
	}

	current, err := uc.items.GetItem(ctx, tenant, itemID)
	if err != nil {
		return nil, lockItemError(err)
	}
	if current == nil {
		return nil, itemNotFound()
	}
	embedding := strings.TrimSpace(current.Embedding)
	if embedding == "" && current.Status == domain.ItemStatusPending {
		embedding, err = uc.generateEmbedding(ctx, current)
		if err != nil {
			return nil, err
		}
	}

	result := &domain.RegistrationResult{Message: "Publicação cadastrada com sucesso."}
	err = uc.store.WithinTx(ctx, tenant, func(ctx context.Context, tx ports.DecisionTx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return lockItemError(err)
		}
		if item == nil {
			return itemNotFound()
		}
		if item.Status != domain.ItemStatusPending {
			return domain.NewError(domain.ErrConflict, "Item não está pendente.")
		}
		number := strings.TrimSpace(item.LawsuitNumber)
		if number == "" {
			return domain.NewValidationError("numero_processo é obrigatório para cadastrar a publicação.")
		}
		if strings.TrimSpace(item.Embedding) != "" {
			embedding = item.Embedding
		}

		lawsuitID, err := tx.EnsureLawsuit(ctx, number)
		if err != nil {
			return fmt.Errorf("ensure lawsuit: %w", err)
		}

		publication := domain.Publication{
			LawsuitID:       lawsuitID,
			LawsuitNumber:   number,
			PublicationDate: item.PublicationDate,
			Text:            item.PublicationText(),
			Hash:            item.PublicationHash,
			Embedding:       embedding,
		}
		publication.ID, err = tx.InsertPublication(ctx, publication)
		if err != nil {
			return fmt.Errorf("insert publication: %w", err)
		}
		if err := tx.InsertPublicationEmbedding(ctx, publication); err != nil {
			return fmt.Errorf("insert publication embedding: %w", err)
		}
		if err := tx.InsertAndamento(ctx, lawsuitID, registrationAndamento, item.PublicationDate); err != nil {
			return fmt.Errorf("insert andamento: %w", err)
		}
		if err := tx.LinkPublication(ctx, itemID, publication.ID); err != nil {
			return fmt.Errorf("link publication: %w", err)
		}
		if err := tx.UpdateItemStatus(ctx, itemID, domain.ItemStatusRegisteredNoDue); err != nil {
			return fmt.Errorf("update item status: %w", err)
		}

		result.LawsuitID = lawsuitID
		result.PublicationID = publication.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("item_registered",
		"tenant_id", tenant.ID(),
		"item_id", itemID,
		"processo_id", result.LawsuitID,
		"publicacao_id", result.PublicationID,
		"user_id", userID,
	)
	return result, nil
}

func (uc *ConciliationUseCase) generateEmbedding(ctx context.Context, item *domain.Item) (string, error) {
	if uc.embedder == nil {
		return "", domain.NewError(domain.ErrTemporary, "Serviço de embeddings indisponível.")
	}
	uc.logger.Warn("embedding_fallback", "item_id", item.ID)
	vector, err := uc.embedder.EmbedQuery(ctx, item.PublicationText())
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "generate embedding", err)
	}
	if len(vector) == 0 {
		return "", domain.WrapError(domain.ErrTemporary, "generate embedding", fmt.Errorf("empty vector"))
	}
	return FormatVector(vector), nil
}

// Discard cancels a pending item and keeps a snapshot of it.
func (uc *ConciliationUseCase) Discard(ctx context.Context, tenant domain.Tenant, userID, itemID, reason string) (*domain.ConfirmResult, error) {
	result, err := uc.discard(ctx, tenant, userID, itemID, reason)
	uc.observer.ObserveDecision("cancelar", outcomeLabel(err))
	return result, err
}

func (uc *ConciliationUseCase) discard(ctx context.Context, tenant domain.Tenant, userID, itemID, reason string) (*domain.ConfirmResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.NewValidationError("item_similaridade_id é obrigatório.")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.DefaultDiscardReason
	}

	err := uc.store.WithinTx(ctx, tenant, func(ctx context.Context, tx ports.DecisionTx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return lockItemError(err)
		}
		if item == nil {
			return itemNotFound()
		}
		if item.Status != domain.ItemStatusPending {
			return domain.NewError(domain.ErrConflict, "Item não está pendente.")
		}

		snapshot, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item snapshot: %w", err)
		}
		if err := tx.InsertDiscard(ctx, domain.Discard{ItemID: itemID, Snapshot: snapshot, Reason: reason}); err != nil {
			return fmt.Errorf("insert discard: %w", err)
		}
		if err := tx.UpdateItemStatus(ctx, itemID, domain.ItemStatusCanceled); err != nil {
			return fmt.Errorf("update item status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("item_discarded", "tenant_id", tenant.ID(), "item_id", itemID, "user_id", userID)
	return &domain.ConfirmResult{Message: "Item descartado com sucesso."}, nil
}

func (uc *ConciliationUseCase) ListPendingByUpload(ctx context.Context, tenant domain.Tenant, uploadID string) ([]domain.Item, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(uploadID) == "" {
		return nil, domain.NewValidationError("upload_id é obrigatório.")
	}
	items, err := uc.items.ListPendingByUpload(ctx, tenant, uploadID)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

func (uc *ConciliationUseCase) LinkedPublication(ctx context.Context, tenant domain.Tenant, itemID string) (*domain.LinkedPublication, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.NewValidationError("item_similaridade_id é obrigatório.")
	}
	linked, err := uc.items.LinkedPublication(ctx, tenant, itemID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Vínculo com publicação não encontrado.")
		}
		return nil, fmt.Errorf("load linked publication: %w", err)
	}
	if linked == nil || linked.PublicationID == "" {
		return nil, domain.NewError(domain.ErrNotFound, "Vínculo com publicação não encontrado.")
	}
	return linked, nil
}

// FormatVector renders a vector in the pgvector text format.
func FormatVector(vector []float32) string {
	var b strings.Builder
	b.Grow(len(vector) * 10)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
