package domain

import (
	"fmt"

	apperror "gostore/internal/errors"
)

// Operações do ledger de estoque por tamanho.
// Toda escrita em StockBySize recalcula Stock na mesma chamada; nenhum
// chamador precisa (nem deve) ajustar Stock manualmente.
//
// Produtos antigos podem ter só o total (Stock > 0 e StockBySize vazio).
// Com um único tamanho o total migra para ele na primeira escrita; com vários
// o total segue indiferenciado até uma redistribuição completa.

// HasSize informa se o rótulo pertence aos tamanhos do produto.
func (p *Product) HasSize(label string) bool {
	for _, s := range p.Sizes {
		if s == label {
			return true
		}
	}
	return false
}

// StockFor retorna a quantidade do tamanho, ou 0 se ausente.
func (p *Product) StockFor(size string) int {
	if p.StockBySize == nil {
		return 0
	}
	return p.StockBySize[size]
}

// Undifferentiated informa se o estoque do produto existe só como total.
func (p *Product) Undifferentiated() bool {
	return len(p.StockBySize) == 0 && p.Stock > 0
}

// Available é o teto usado na admissão e na baixa. Produtos com estoque
// indiferenciado caem no total para qualquer tamanho da grade.
func (p *Product) Available(size string) int {
	if p.Undifferentiated() {
		if !p.HasSize(size) {
			return 0
		}
		return p.Stock
	}
	return p.StockFor(size)
}

// RecomputeStock recalcula o total a partir do mapa por tamanho.
// Sem nenhuma entrada por tamanho o total indiferenciado é mantido.
func (p *Product) RecomputeStock() {
	if len(p.StockBySize) == 0 {
		return
	}
	p.Stock = p.sumBySize()
}

func (p *Product) sumBySize() int {
	total := 0
	for _, q := range p.StockBySize {
		total += q
	}
	return total
}

// settleLegacyStock move o total indiferenciado para o único tamanho da grade.
// Retorna true quando o produto continua indiferenciado (vários tamanhos).
func (p *Product) settleLegacyStock() bool {
	if !p.Undifferentiated() {
		return false
	}
	if len(p.Sizes) == 1 {
		p.StockBySize = map[string]int{p.Sizes[0]: p.Stock}
		return false
	}
	return true
}

func errNeedsRedistribution() error {
	return apperror.NewValidationError("Produto sem estoque por tamanho: redistribua o total entre os tamanhos antes de ajustar um deles.")
}

// SetStock substitui a quantidade de um tamanho existente.
func (p *Product) SetStock(size string, qty int) error {
	if qty < 0 {
		return apperror.NewInvalidQuantityError(qty)
	}
	if !p.HasSize(size) {
		return apperror.NewUnknownSizeError(size)
	}
	if p.settleLegacyStock() {
		return errNeedsRedistribution()
	}
	p.ensureMap()
	p.StockBySize[size] = qty
	p.RecomputeStock()
	return nil
}

// DecrementStock baixa amount unidades com piso em zero e retorna o novo saldo
// disponível para o tamanho. Nunca falha: a admissão já limitou o pedido.
func (p *Product) DecrementStock(size string, amount int) int {
	if amount <= 0 || !p.HasSize(size) {
		return p.Available(size)
	}
	if p.settleLegacyStock() {
		p.Stock = max(0, p.Stock-amount)
		return p.Stock
	}
	next := max(0, p.StockFor(size)-amount)
	p.ensureMap()
	p.StockBySize[size] = next
	p.RecomputeStock()
	return next
}

// IncrementStock devolve amount unidades ao tamanho e retorna o novo saldo.
// Se o tamanho foi removido depois da venda, ele volta a existir no produto.
func (p *Product) IncrementStock(size string, amount int) int {
	if amount <= 0 {
		return p.Available(size)
	}
	legacy := p.settleLegacyStock()
	if !p.HasSize(size) {
		p.Sizes = append(p.Sizes, size)
	}
	if legacy {
		p.Stock += amount
		return p.Stock
	}
	p.ensureMap()
	p.StockBySize[size] += amount
	p.RecomputeStock()
	return p.StockBySize[size]
}

// AddSize inclui um novo tamanho com a quantidade inicial informada.
func (p *Product) AddSize(label string, initial int) error {
	if label == "" {
		return apperror.NewValidationError("O rótulo do tamanho é obrigatório.")
	}
	if initial < 0 {
		return apperror.NewInvalidQuantityError(initial)
	}
	if p.HasSize(label) {
		return apperror.NewDuplicateSizeError(label)
	}
	if IsSingleSizeCategory(p.Category) {
		return apperror.NewValidationError(fmt.Sprintf("A categoria %s usa apenas o tamanho único %s.", p.Category, SingleSize))
	}
	if p.settleLegacyStock() {
		return errNeedsRedistribution()
	}
	p.Sizes = append(p.Sizes, label)
	p.ensureMap()
	p.StockBySize[label] = initial
	p.RecomputeStock()
	return nil
}

// RemoveSize retira o tamanho e seu estoque do produto.
func (p *Product) RemoveSize(label string) error {
	if !p.HasSize(label) {
		return apperror.NewUnknownSizeError(label)
	}
	legacy := p.Undifferentiated()
	sizes := make([]string, 0, len(p.Sizes)-1)
	for _, s := range p.Sizes {
		if s != label {
			sizes = append(sizes, s)
		}
	}
	p.Sizes = sizes
	switch {
	case legacy && len(sizes) > 0:
		// o total continua valendo para os tamanhos restantes
	case legacy:
		p.Stock = 0
	default:
		delete(p.StockBySize, label)
		p.Stock = p.sumBySize()
	}
	return nil
}

// CollapseToSingleSize troca a grade pelo tamanho único e leva todo o estoque
// para ele. Usado quando o produto passa para uma categoria de tamanho único.
func (p *Product) CollapseToSingleSize() {
	if len(p.Sizes) == 1 && p.Sizes[0] == SingleSize && !p.Undifferentiated() {
		return
	}
	total := p.Stock
	p.Sizes = []string{SingleSize}
	p.StockBySize = map[string]int{SingleSize: total}
}

func (p *Product) ensureMap() {
	if p.StockBySize == nil {
		p.StockBySize = make(map[string]int, len(p.Sizes))
	}
}

// StockMovement é uma baixa ou devolução de unidades de um tamanho.
type StockMovement struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// StockReceiptEntry registra o delta efetivamente aplicado (negativo para baixa).
type StockReceiptEntry struct {
	ProductID string
	Size      string
	Delta     int
}

// StockReceipt permite desfazer um lote de movimentações já persistidas.
type StockReceipt struct {
	Entries []StockReceiptEntry
}
