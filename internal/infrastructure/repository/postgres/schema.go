package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaLockID int64 = 2026021001

const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	nome TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processos (
	idprocesso UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	numprocesso TEXT NOT NULL,
	assunto TEXT,
	pasta TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, numprocesso)
);

CREATE TABLE IF NOT EXISTS similaridade_itens (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	upload_documento_id TEXT,
	numero_processo TEXT,
	texto_publicacao TEXT,
	tipo_andamento TEXT,
	data_publicacao DATE,
	hash_publicacao TEXT,
	embedding TEXT,
	dados_originais JSONB,
	status_decisao TEXT NOT NULL DEFAULT 'pendente'
		CHECK (status_decisao IN ('pendente', 'cadastrado_sem_prazo', 'analisado_com_prazo', 'analisado', 'cancelado')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_similaridade_itens_upload ON similaridade_itens(tenant_id, upload_documento_id, status_decisao);

CREATE TABLE IF NOT EXISTS "Publicacao" (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	processoid UUID NOT NULL REFERENCES processos(idprocesso),
	data_publicacao DATE,
	texto_integral TEXT NOT NULL,
	hash_publicacao TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS publicacao_embeddings (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	publicacao_id UUID NOT NULL REFERENCES "Publicacao"(id),
	numero_do_processo TEXT,
	texto TEXT NOT NULL,
	embedding vector,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS "Andamento" (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	"processoId" UUID NOT NULL REFERENCES processos(idprocesso),
	descricao TEXT NOT NULL,
	data_evento DATE NOT NULL DEFAULT CURRENT_DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS similaridade_item_publicacao (
	item_similaridade_id UUID PRIMARY KEY REFERENCES similaridade_itens(id),
	publicacao_id UUID NOT NULL REFERENCES "Publicacao"(id),
	tenant_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS similaridade_descartes_auditoria (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	item_similaridade_id UUID NOT NULL REFERENCES similaridade_itens(id),
	tenant_id TEXT NOT NULL,
	dados_descartados JSONB NOT NULL,
	motivo TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auditoria_sugestao (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	publicacao_id UUID NOT NULL,
	evento_sugerido_id UUID,
	providencia_sugerida_id UUID,
	prazo_sugerido JSONB,
	decisao_final_json TEXT NOT NULL,
	usuario_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS "Prazo" (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	descricao TEXT NOT NULL,
	data_inicio DATE,
	data_limite DATE NOT NULL,
	dias INTEGER,
	publicacaoid UUID NOT NULL REFERENCES "Publicacao"(id),
	auditoria_sugestao_id UUID NOT NULL REFERENCES auditoria_sugestao(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evento_processual (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	nome TEXT NOT NULL,
	descricao TEXT,
	ativo BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, nome)
);

CREATE TABLE IF NOT EXISTS andamento_evento (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	andamento_descricao TEXT NOT NULL,
	evento_id UUID NOT NULL REFERENCES evento_processual(id) ON DELETE CASCADE,
	tipo_match TEXT NOT NULL DEFAULT 'exato' CHECK (tipo_match IN ('exato', 'contem')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, andamento_descricao, tipo_match)
);

CREATE TABLE IF NOT EXISTS providencia_juridica (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	nome TEXT NOT NULL,
	descricao TEXT,
	ativo BOOLEAN NOT NULL DEFAULT true,
	exige_peticao BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, nome)
);

CREATE TABLE IF NOT EXISTS evento_providencia (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	evento_id UUID NOT NULL REFERENCES evento_processual(id) ON DELETE CASCADE,
	providencia_id UUID NOT NULL REFERENCES providencia_juridica(id),
	prioridade INTEGER NOT NULL DEFAULT 0,
	padrao BOOLEAN NOT NULL DEFAULT false,
	gera_prazo BOOLEAN NOT NULL DEFAULT false,
	prazo_dias INTEGER CHECK (prazo_dias IS NULL OR prazo_dias > 0),
	tipo_prazo TEXT CHECK (tipo_prazo IS NULL OR tipo_prazo IN ('util', 'corrido', 'data_fixa')),
	observacao_juridica TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, evento_id, providencia_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_evento_providencia_padrao
	ON evento_providencia(tenant_id, evento_id) WHERE padrao;

CREATE TABLE IF NOT EXISTS "Modelos_Peticao" (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	providencia_id UUID REFERENCES providencia_juridica(id) ON DELETE SET NULL,
	nome TEXT NOT NULL,
	ativo BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS aux_status (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	tenant_id TEXT NOT NULL,
	nome TEXT NOT NULL,
	cor_hex TEXT,
	ordem INTEGER NOT NULL DEFAULT 0,
	UNIQUE (tenant_id, nome)
);

CREATE TABLE IF NOT EXISTS tarefa_fila_trabalho (
	id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	origem_id TEXT,
	item_similaridade_id UUID,
	processo_id UUID REFERENCES processos(idprocesso),
	evento_id UUID NOT NULL REFERENCES evento_processual(id),
	providencia_id UUID NOT NULL REFERENCES providencia_juridica(id),
	responsavel_id UUID,
	revisor_id UUID,
	status_id UUID NOT NULL REFERENCES aux_status(id),
	data_limite DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, origem_id)
);

CREATE INDEX IF NOT EXISTS idx_tarefa_fila_trabalho_limite ON tarefa_fila_trabalho(tenant_id, data_limite, created_at);

CREATE TABLE IF NOT EXISTS tarefa_checklist (
	id UUID PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	tarefa_id UUID NOT NULL REFERENCES tarefa_fila_trabalho(id) ON DELETE CASCADE,
	titulo TEXT NOT NULL,
	ordem INTEGER NOT NULL DEFAULT 0,
	obrigatorio BOOLEAN NOT NULL DEFAULT false,
	concluido BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates every table this service owns.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
