package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"gostore/internal/domain"
	"gostore/internal/errors"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

const productColumns = `id, name, category, price, image_url, sizes, stock_by_size, stock, version, created_at, updated_at`

// ProductRepository implementa domain.ProductRepository sobre PostgreSQL,
// com cache-aside em Redis para leituras por ID.
type ProductRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		imageURL sql.NullString
		rawStock []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Price,
		&imageURL,
		pq.Array(&p.Sizes),
		&rawStock,
		&p.Stock,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	p.ImageURL = imageURL.String
	p.StockBySize = map[string]int{}
	if len(rawStock) > 0 {
		if err := json.Unmarshal(rawStock, &p.StockBySize); err != nil {
			return domain.Product{}, fmt.Errorf("stock_by_size inválido: %w", err)
		}
	}
	return p, nil
}

// Save persiste um novo produto. A versão inicial é 1.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	stockJSON, err := json.Marshal(product.StockBySize)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("Falha ao serializar estoque.", err)
	}

	query := `
        INSERT INTO products (` + productColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
        RETURNING ` + productColumns

	created, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query,
		product.ID,
		product.Name,
		product.Category,
		product.Price,
		product.ImageURL,
		pq.Array(product.Sizes),
		string(stockJSON),
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao criar produto", err)
	}

	r.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)

	// 1. Tentar obter do Cache (Redis)
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		var product domain.Product
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			return product, nil
		}
		r.logger.Warn("Entrada de cache de produto corrompida.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	// 3. Popular o cache para as próximas leituras
	if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
		if err := r.Cache.Set(ctxTimeout, key, productJSON, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	return product, nil
}

// FindAll lista o catálogo com os filtros informados, do mais novo para o mais antigo.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.InStockOnly {
		conditions = append(conditions, "stock > 0")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar FindAll de produtos.", err)
		return nil, errors.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear produto em FindAll.", err)
			return nil, errors.NewDBError("Falha ao mapear produtos do DB", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de produtos", err)
	}

	return products, nil
}

// Update grava o produto se a versão no banco ainda for product.Version
// (controle otimista). Versão divergente resulta em ConflictError.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// A entrada de cache é descartada em qualquer desfecho
	defer r.invalidate(ctx, product.ID)

	stockJSON, err := json.Marshal(product.StockBySize)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("Falha ao serializar estoque.", err)
	}

	query := `
        UPDATE products
        SET name = $1, category = $2, price = $3, image_url = $4, sizes = $5,
            stock_by_size = $6, stock = $7, version = version + 1, updated_at = $8
        WHERE id = $9 AND version = $10
        RETURNING ` + productColumns

	updated, err := scanProduct(r.DB.QueryRowContext(ctxTimeout, query,
		product.Name,
		product.Category,
		product.Price,
		product.ImageURL,
		pq.Array(product.Sizes),
		string(stockJSON),
		product.Stock,
		time.Now().UTC(),
		product.ID,
		product.Version,
	))

	if err == sql.ErrNoRows {
		// Sem linha: ou o produto sumiu, ou a versão mudou
		var exists bool
		if qErr := r.DB.QueryRowContext(ctxTimeout, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, product.ID).Scan(&exists); qErr != nil {
			return domain.Product{}, errors.NewDBError("Falha ao verificar produto", qErr)
		}
		if !exists {
			return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", product.ID))
		}
		return domain.Product{}, errors.NewConflictError("O produto foi modificado por outra operação. Tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao atualizar produto", err)
	}

	return updated, nil
}

// Delete remove o produto definitivamente.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	defer r.invalidate(ctx, id)

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar produto do DB.", err)
		return errors.NewDBError("Falha ao deletar produto", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não encontrado para exclusão.", id))
	}

	r.logger.Info("Produto deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

func (r *ProductRepository) invalidate(ctx context.Context, id string) {
	if err := r.Cache.Delete(ctx, fmt.Sprintf(productCacheKey, id)); err != nil {
		r.logger.Warn("Falha ao invalidar cache do produto.", map[string]interface{}{"id": id, "error": err.Error()})
	}
}
