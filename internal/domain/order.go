package domain

import (
	"context"
	"sort"
	"time"
)

// OrderStatus é o estado do pedido na máquina de estados do ciclo de vida.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusReturned          OrderStatus = "returned"
	OrderStatusPartiallyReturned OrderStatus = "partially_returned"
)

// Valores usados em pedidos de balcão quando o cliente não é identificado.
const (
	WalkInCustomerName  = "STORE"
	WalkInCustomerPhone = "(00) 00000-0000"
)

// IsValid verifica se o status é conhecido.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusReturned,
		OrderStatusPartiallyReturned:
		return true
	default:
		return false
	}
}

// CanTransitionTo verifica se a transição é permitida.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	case OrderStatusCompleted, OrderStatusPartiallyReturned:
		// Devoluções parciais podem continuar, mas nunca voltam para completed.
		return next == OrderStatusReturned || next == OrderStatusPartiallyReturned
	case OrderStatusCancelled, OrderStatusReturned:
		return false // Estados terminais
	default:
		return false
	}
}

// IsTerminal informa se nenhuma transição sai deste status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

// OrderItem é uma linha do pedido com preço capturado no momento da inclusão.
type OrderItem struct {
	ProductID        string  `json:"product_id"`
	ProductName      string  `json:"product_name"`
	Size             string  `json:"size"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	ReturnedQuantity int     `json:"returned_quantity"`
}

// Subtotal é quantidade x preço unitário.
func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Outstanding é o que ainda pode ser devolvido.
func (i OrderItem) Outstanding() int {
	return i.Quantity - i.ReturnedQuantity
}

// Order é o pedido persistido. TotalValue é histórico: não muda com devoluções.
type Order struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Items         []OrderItem `json:"items"`
	TotalValue    float64     `json:"total_value"`
	Status        OrderStatus `json:"status"`
	Version       int         `json:"version"`
	Sequence      int         `json:"sequence,omitempty"` // Número de exibição, calculado na listagem
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ComputeTotal soma os subtotais das linhas.
func (o Order) ComputeTotal() float64 {
	total := 0.0
	for _, it := range o.Items {
		total += it.Subtotal()
	}
	return total
}

// FullyReturned informa se todas as unidades de todas as linhas voltaram.
func (o Order) FullyReturned() bool {
	for _, it := range o.Items {
		if it.ReturnedQuantity < it.Quantity {
			return false
		}
	}
	return true
}

// Movements converte as linhas em movimentações de estoque (quantidade cheia).
func (o Order) Movements() []StockMovement {
	out := make([]StockMovement, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, StockMovement{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity})
	}
	return out
}

// ApplyWalkInDefaults preenche nome e telefone de balcão quando ausentes.
func (o *Order) ApplyWalkInDefaults() {
	if o.CustomerName == "" {
		o.CustomerName = WalkInCustomerName
	}
	if o.CustomerPhone == "" {
		o.CustomerPhone = WalkInCustomerPhone
	}
}

// OrderFilter restringe a listagem de pedidos. Status vazio lista todos.
type OrderFilter struct {
	Status OrderStatus
}

// Matches informa se o pedido passa pelo filtro.
func (f OrderFilter) Matches(o Order) bool {
	return f.Status == "" || o.Status == f.Status
}

// OrderRepository é o contrato de persistência de pedidos.
// Update aplica controle otimista sobre Version, como em ProductRepository.
type OrderRepository interface {
	Save(ctx context.Context, order Order) (Order, error)
	FindByID(ctx context.Context, id string) (Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, order Order) (Order, error)
}

// SequenceOrders numera os pedidos (1 = mais antigo) e os devolve do mais
// recente para o mais antigo. A numeração considera todos os pedidos recebidos,
// então deve ser aplicada antes de qualquer filtro.
func SequenceOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	copy(out, orders)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	for i := range out {
		out[i].Sequence = i + 1
	}

	// Exibição padrão: mais recentes primeiro
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// OrderEvent é publicado após cada mutação bem-sucedida de pedido.
type OrderEvent struct {
	Type      string      `json:"type"` // created, confirmed, cancelled, returned, partially_returned
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// DraftLine é uma linha do resumo enviado ao canal de mensagens.
type DraftLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// OrderDraft é o resultado do checkout do carrinho.
type OrderDraft struct {
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Lines         []DraftLine `json:"lines"`
	Total         float64     `json:"total"`
}

// ToOrder converte o rascunho em um pedido pendente ainda sem ID.
func (d OrderDraft) ToOrder() Order {
	items := make([]OrderItem, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Size:        l.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	return Order{
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		Items:         items,
		Status:        OrderStatusPending,
	}
}
