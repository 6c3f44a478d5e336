package registryrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
)

// uniqueViolation é o código SQLSTATE do Postgres para chave duplicada.
const uniqueViolation = "23505"

// RegistryRepository persiste os registros de categorias e tamanhos na tabela registry_entries.
type RegistryRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRegistryRepository cria e retorna uma nova instância do Repositório de Registros.
func NewRegistryRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *RegistryRepository {
	return &RegistryRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// CreateEntry insere um rótulo. Rótulo repetido no mesmo tipo vira ConflictError.
func (r *RegistryRepository) CreateEntry(ctx context.Context, entry domain.RegistryEntry) (domain.RegistryEntry, error) {
	r.logger.Debug("Iniciando CreateEntry no repositório.", map[string]interface{}{"kind": entry.Kind, "label": entry.Label})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO registry_entries (id, kind, label, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, kind, label, created_at`

	err := r.DB.QueryRowContext(ctxTimeout, query,
		entry.ID, entry.Kind, entry.Label, entry.CreatedAt,
	).Scan(&entry.ID, &entry.Kind, &entry.Label, &entry.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.RegistryEntry{}, apperror.NewConflictError(fmt.Sprintf("%s '%s' já cadastrado.", entry.Kind, entry.Label))
		}
		r.logger.Error("Falha ao inserir registro no DB.", err)
		return domain.RegistryEntry{}, apperror.NewDBError("Falha ao criar registro", err)
	}

	r.logger.Info("Registro criado com sucesso.", map[string]interface{}{"kind": entry.Kind, "label": entry.Label})
	return entry, nil
}

// ListEntries lista os rótulos de um tipo em ordem alfabética.
func (r *RegistryRepository) ListEntries(ctx context.Context, kind domain.RegistryKind) ([]domain.RegistryEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, kind, label, created_at
        FROM registry_entries
        WHERE kind = $1
        ORDER BY label`

	rows, err := r.DB.QueryContext(ctxTimeout, query, kind)
	if err != nil {
		r.logger.Error("Falha ao executar ListEntries query.", err)
		return nil, apperror.NewDBError("Falha ao buscar registros", err)
	}
	defer rows.Close()

	entries := []domain.RegistryEntry{}
	for rows.Next() {
		var e domain.RegistryEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Label, &e.CreatedAt); err != nil {
			r.logger.Error("Falha ao mapear registro em ListEntries.", err)
			return nil, apperror.NewDBError("Falha ao mapear registros do DB", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de registros", err)
	}

	return entries, nil
}

// DeleteEntry remove um rótulo. Produtos que já usam o rótulo não são alterados.
func (r *RegistryRepository) DeleteEntry(ctx context.Context, kind domain.RegistryKind, label string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM registry_entries WHERE kind = $1 AND label = $2`, kind, label)
	if err != nil {
		r.logger.Error("Falha ao deletar registro do DB.", err)
		return apperror.NewDBError("Falha ao deletar registro", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("%s '%s' não cadastrado.", kind, label))
	}

	r.logger.Info("Registro removido.", map[string]interface{}{"kind": kind, "label": label})
	return nil
}
