// Package orderbuilder monta pedidos de balcão feitos pela equipe, com a
// decisão explícita de baixar o estoque na hora ou deixar o pedido pendente.
package orderbuilder

import (
	"context"
	"fmt"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
)

// OrderCreator persiste o pedido montado. Com debit=true a implementação
// revalida cada linha contra o estoque atual e baixa tudo ou nada.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order domain.Order, debit bool) (domain.Order, error)
}

// LineUpdate informa se UpdateLine limitou a quantidade ou removeu a linha.
type LineUpdate struct {
	Quantity int  `json:"quantity"`
	Ceiling  int  `json:"ceiling"`
	Capped   bool `json:"capped"`
	Removed  bool `json:"removed"`
}

// Builder acumula as linhas do pedido antes do envio.
type Builder struct {
	customerName  string
	customerPhone string
	lines         []domain.OrderItem
}

// New cria um builder vazio.
func New() *Builder {
	return &Builder{}
}

// SetCustomer define os dados do cliente. Valores vazios viram os padrões de balcão no envio.
func (b *Builder) SetCustomer(name, phone string) {
	b.customerName = name
	b.customerPhone = phone
}

func (b *Builder) staged(productID, size string) (int, int) {
	for i, l := range b.lines {
		if l.ProductID == productID && l.Size == size {
			return i, l.Quantity
		}
	}
	return -1, 0
}

// AddLine inclui qty unidades, somando à linha existente do mesmo produto e tamanho.
func (b *Builder) AddLine(p domain.Product, size string, qty int) error {
	if qty <= 0 {
		return apperror.NewInvalidQuantityError(qty)
	}
	if !p.HasSize(size) {
		return apperror.NewUnknownSizeError(size)
	}

	idx, existing := b.staged(p.ID, size)
	available := p.Available(size)
	if existing+qty > available {
		stockErr := apperror.NewInsufficientStockError(p.ID, p.Name, size, existing+qty, available)
		stockErr.Line = idx
		if idx < 0 {
			stockErr.Line = len(b.lines)
		}
		return stockErr
	}

	if idx >= 0 {
		b.lines[idx].Quantity += qty
		return nil
	}
	b.lines = append(b.lines, domain.OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Size:        size,
		Quantity:    qty,
		UnitPrice:   p.Price,
	})
	return nil
}

// UpdateLine altera a quantidade da linha index usando o estoque atual de p.
func (b *Builder) UpdateLine(index int, p domain.Product, qty int) (LineUpdate, error) {
	if err := b.checkIndex(index); err != nil {
		return LineUpdate{}, err
	}
	if qty < 0 {
		return LineUpdate{}, apperror.NewInvalidQuantityError(qty)
	}
	line := b.lines[index]
	if line.ProductID != p.ID {
		return LineUpdate{}, apperror.NewValidationError(fmt.Sprintf("linha %d não pertence ao produto %s", index, p.ID))
	}

	available := p.Available(line.Size)
	if qty == 0 || available == 0 {
		b.lines = append(b.lines[:index], b.lines[index+1:]...)
		return LineUpdate{Ceiling: available, Capped: qty > available, Removed: true}, nil
	}

	res := LineUpdate{Quantity: qty, Ceiling: available}
	if qty > available {
		res.Quantity = available
		res.Capped = true
	}
	b.lines[index].Quantity = res.Quantity
	return res, nil
}

// RemoveLine retira a linha index.
func (b *Builder) RemoveLine(index int) error {
	if err := b.checkIndex(index); err != nil {
		return err
	}
	b.lines = append(b.lines[:index], b.lines[index+1:]...)
	return nil
}

func (b *Builder) checkIndex(index int) error {
	if index < 0 || index >= len(b.lines) {
		return apperror.NewNotFoundError(fmt.Sprintf("linha %d não existe no pedido", index))
	}
	return nil
}

// Lines devolve uma cópia das linhas em preparação.
func (b *Builder) Lines() []domain.OrderItem {
	out := make([]domain.OrderItem, len(b.lines))
	copy(out, b.lines)
	return out
}

// Order monta o pedido com os padrões de balcão aplicados.
func (b *Builder) Order() domain.Order {
	order := domain.Order{
		CustomerName:  b.customerName,
		CustomerPhone: b.customerPhone,
		Items:         b.Lines(),
		Status:        domain.OrderStatusPending,
	}
	order.ApplyWalkInDefaults()
	order.TotalValue = order.ComputeTotal()
	return order
}

// Submit envia o pedido ao creator. O builder só é esvaziado em caso de sucesso.
func (b *Builder) Submit(ctx context.Context, creator OrderCreator, debitStockImmediately bool) (domain.Order, error) {
	if len(b.lines) == 0 {
		return domain.Order{}, apperror.NewValidationError("O pedido precisa de pelo menos um item.")
	}

	created, err := creator.CreateOrder(ctx, b.Order(), debitStockImmediately)
	if err != nil {
		return domain.Order{}, err
	}
	b.lines = nil
	b.customerName, b.customerPhone = "", ""
	return created, nil
}
