package orderrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gostore/internal/domain"
	"gostore/internal/errors"
	"gostore/internal/pkg/logger"
)

const orderColumns = `id, customer_name, customer_phone, items, total_value, status, version, created_at, updated_at`

// OrderRepository implementa domain.OrderRepository sobre PostgreSQL.
// Os itens ficam em uma coluna JSONB: o pedido é sempre lido e gravado inteiro.
type OrderRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOrderRepository cria e retorna uma nova instância do Repositório de Pedidos.
func NewOrderRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *OrderRepository {
	return &OrderRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o        domain.Order
		rawItems []byte
		status   string
	)
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.CustomerPhone,
		&rawItems,
		&o.TotalValue,
		&status,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(rawItems, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("items inválidos: %w", err)
	}
	return o, nil
}

// Save insere um pedido novo com versão 1.
func (r *OrderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return domain.Order{}, errors.NewInternalError("Falha ao serializar itens do pedido.", err)
	}

	query := `
        INSERT INTO orders (` + orderColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
        RETURNING ` + orderColumns

	created, err := scanOrder(r.DB.QueryRowContext(ctxTimeout, query,
		order.ID,
		order.CustomerName,
		order.CustomerPhone,
		string(itemsJSON),
		order.TotalValue,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir pedido no DB.", err)
		return domain.Order{}, errors.NewDBError("Falha ao criar pedido", err)
	}
	return created, nil
}

// FindByID busca um pedido pelo ID.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	order, err := scanOrder(r.DB.QueryRowContext(ctxTimeout, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return domain.Order{}, errors.NewNotFoundError(fmt.Sprintf("Pedido com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar pedido no DB.", err)
		return domain.Order{}, errors.NewDBError("Falha ao buscar pedido", err)
	}
	return order, nil
}

// FindAll devolve todos os pedidos do mais recente para o mais antigo.
func (r *OrderRepository) FindAll(ctx context.Context) ([]domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Error("Falha ao executar FindAll de pedidos.", err)
		return nil, errors.NewDBError("Falha ao listar pedidos", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear pedido em FindAll.", err)
			return nil, errors.NewDBError("Falha ao mapear pedidos do DB", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de pedidos", err)
	}
	return orders, nil
}

// Update grava status e itens se a versão ainda for order.Version.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return domain.Order{}, errors.NewInternalError("Falha ao serializar itens do pedido.", err)
	}

	query := `
        UPDATE orders
        SET items = $1, status = $2, version = version + 1, updated_at = $3
        WHERE id = $4 AND version = $5
        RETURNING ` + orderColumns

	updated, err := scanOrder(r.DB.QueryRowContext(ctxTimeout, query,
		string(itemsJSON),
		string(order.Status),
		order.UpdatedAt,
		order.ID,
		order.Version,
	))
	if err == sql.ErrNoRows {
		r.logger.Warn("Atualização de pedido sem efeito (versão divergente ou pedido inexistente).", map[string]interface{}{
			"order_id": order.ID,
			"version":  order.Version,
		})
		return domain.Order{}, errors.NewConflictError("O pedido foi modificado por outra operação. Recarregue e tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar pedido no DB.", err)
		return domain.Order{}, errors.NewDBError("Falha ao atualizar pedido", err)
	}
	return updated, nil
}
