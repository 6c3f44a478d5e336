package domain

import (
	"context"
	"time"
)

// Product representa o item principal do catálogo (a Entidade).
// O estoque é controlado por tamanho em StockBySize; Stock é a soma cacheada
// e só deve ser alterado pelos métodos do ledger (ver ledger.go).
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Price       float64        `json:"price"`
	ImageURL    string         `json:"image_url,omitempty"`
	Sizes       []string       `json:"sizes"`
	StockBySize map[string]int `json:"stock_by_size"`
	Stock       int            `json:"stock"`
	Version     int            `json:"version"` // Para Controle de Concorrência Otimista (OCC)
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProductInput é o payload de cadastro de produto.
// DeclaredStock é o total informado pelo operador; Distribution precisa fechar com ele.
type ProductInput struct {
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Price         float64        `json:"price"`
	ImageURL      string         `json:"image_url,omitempty"`
	Sizes         []string       `json:"sizes"`
	DeclaredStock int            `json:"stock"`
	Distribution  map[string]int `json:"stock_by_size"`
}

// ProductPatch carrega a edição parcial do produto. Redistribuir o estoque
// exige o total declarado e a distribuição completa, como no cadastro.
type ProductPatch struct {
	Name          *string        `json:"name,omitempty"`
	Category      *string        `json:"category,omitempty"`
	Price         *float64       `json:"price,omitempty"`
	ImageURL      *string        `json:"image_url,omitempty"`
	DeclaredStock *int           `json:"stock,omitempty"`
	Distribution  map[string]int `json:"stock_by_size,omitempty"`
}

// ProductFilter define os parâmetros de busca do catálogo.
type ProductFilter struct {
	Name        string
	Category    string
	InStockOnly bool
}

// ProductRepository é o contrato de persistência de produtos.
// Update aplica controle otimista: falha com ConflictError se p.Version estiver desatualizada.
type ProductRepository interface {
	Save(ctx context.Context, product Product) (Product, error)
	FindByID(ctx context.Context, id string) (Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	Delete(ctx context.Context, id string) error
}

// SortedSizes devolve os tamanhos do produto na ordem canônica de exibição.
func (p Product) SortedSizes() []string {
	return SortSizes(p.Sizes)
}
