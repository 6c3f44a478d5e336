// Package cart implementa a admissão do carrinho do cliente: cada alteração
// é limitada pelo estoque do tamanho no momento da chamada.
package cart

import (
	"strings"
	"time"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
)

// Cart é o carrinho em preparação. As linhas usam o mesmo formato de OrderItem,
// com o preço capturado na inclusão.
type Cart struct {
	ID        string             `json:"id"`
	Lines     []domain.OrderItem `json:"lines"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// QuantityUpdate descreve o efeito de UpdateQuantity para o chamador avisar o cliente.
type QuantityUpdate struct {
	Quantity int  `json:"quantity"`
	Ceiling  int  `json:"ceiling"`
	Capped   bool `json:"capped"`
	Removed  bool `json:"removed"`
}

// New cria um carrinho vazio.
func New(id string) *Cart {
	return &Cart{ID: id, Lines: []domain.OrderItem{}, UpdatedAt: time.Now().UTC()}
}

func (c *Cart) find(productID, size string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

// Staged retorna a quantidade já no carrinho para (produto, tamanho).
func (c *Cart) Staged(productID, size string) int {
	if i := c.find(productID, size); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// AddItem inclui qty unidades. A admissão é tudo-ou-nada: se staged+qty passar
// do estoque, nada muda e o erro informa o teto.
func (c *Cart) AddItem(p domain.Product, size string, qty int) error {
	if qty <= 0 {
		return apperror.NewInvalidQuantityError(qty)
	}
	if !p.HasSize(size) {
		return apperror.NewUnknownSizeError(size)
	}

	existing := c.Staged(p.ID, size)
	ceiling := p.Available(size)
	if existing+qty > ceiling {
		return apperror.NewInsufficientStockError(p.ID, p.Name, size, existing+qty, ceiling)
	}

	if i := c.find(p.ID, size); i >= 0 {
		c.Lines[i].Quantity += qty
	} else {
		c.Lines = append(c.Lines, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        size,
			Quantity:    qty,
			UnitPrice:   p.Price,
		})
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateQuantity define a quantidade da linha. Zero remove; acima do estoque é
// limitado ao teto (Capped). Sem estoque algum, a linha sai do carrinho.
func (c *Cart) UpdateQuantity(p domain.Product, size string, newQty int) (QuantityUpdate, error) {
	if newQty < 0 {
		return QuantityUpdate{}, apperror.NewInvalidQuantityError(newQty)
	}
	i := c.find(p.ID, size)
	if i < 0 {
		return QuantityUpdate{}, apperror.NewNotFoundError("Item não está no carrinho.")
	}

	ceiling := p.Available(size)
	if newQty == 0 || ceiling == 0 {
		c.RemoveItem(p.ID, size)
		return QuantityUpdate{Quantity: 0, Ceiling: ceiling, Capped: newQty > ceiling, Removed: true}, nil
	}

	res := QuantityUpdate{Quantity: newQty, Ceiling: ceiling}
	if newQty > ceiling {
		res.Quantity = ceiling
		res.Capped = true
	}
	c.Lines[i].Quantity = res.Quantity
	c.UpdatedAt = time.Now().UTC()
	return res, nil
}

// RemoveItem retira a linha, se existir.
func (c *Cart) RemoveItem(productID, size string) {
	if i := c.find(productID, size); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		c.UpdatedAt = time.Now().UTC()
	}
}

// Total soma os subtotais.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount soma as unidades (badge do carrinho).
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Checkout gera o resumo do pedido. Não toca no estoque.
func (c *Cart) Checkout(customerName, customerPhone string) (domain.OrderDraft, error) {
	name := strings.TrimSpace(customerName)
	phone := strings.TrimSpace(customerPhone)
	if name == "" || phone == "" {
		return domain.OrderDraft{}, apperror.NewMissingCustomerInfoError()
	}
	if len(c.Lines) == 0 {
		return domain.OrderDraft{}, apperror.NewValidationError("O carrinho está vazio.")
	}

	draft := domain.OrderDraft{CustomerName: name, CustomerPhone: phone}
	for _, l := range c.Lines {
		draft.Lines = append(draft.Lines, domain.DraftLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Size:        l.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
		draft.Total += l.Subtotal()
	}
	return draft, nil
}
