// Package whatsapp monta a mensagem de pedido enviada à loja pelo WhatsApp.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"

	"gostore/internal/domain"
	"gostore/internal/pkg/format"
)

// Composer gera o texto e o link wa.me para um resumo de pedido.
type Composer struct {
	number    string
	storeName string
}

// NewComposer cria o composer para o número de destino da loja.
func NewComposer(number, storeName string) *Composer {
	return &Composer{number: format.Digits(number), storeName: storeName}
}

// Message gera o texto do pedido: todas as linhas e o total geral.
func (c *Composer) Message(draft domain.OrderDraft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Novo Pedido - %s*\n\n", c.storeName)
	fmt.Fprintf(&b, "Cliente: %s\n", draft.CustomerName)
	fmt.Fprintf(&b, "Telefone: %s\n\n", format.PhoneMask(draft.CustomerPhone))

	for i, l := range draft.Lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l.ProductName)
		fmt.Fprintf(&b, "   Tamanho: %s | Qtd: %d | Subtotal: %s\n", l.Size, l.Quantity, format.BRL(l.Subtotal))
	}

	fmt.Fprintf(&b, "\n*TOTAL: %s*", format.BRL(draft.Total))
	return b.String()
}

// Link gera a URL wa.me com a mensagem já codificada.
func (c *Composer) Link(draft domain.OrderDraft) string {
	text := strings.ReplaceAll(url.QueryEscape(c.Message(draft)), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", c.number, text)
}
