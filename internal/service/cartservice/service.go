package cartservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gostore/internal/cart"
	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/keylock"
	"gostore/internal/pkg/logger"
)

// CartStore persiste os carrinhos em preparação.
type CartStore interface {
	Save(ctx context.Context, c *cart.Cart) error
	Find(ctx context.Context, id string) (*cart.Cart, error)
	Delete(ctx context.Context, id string) error
}

// ProductReader busca o estado atual do produto para a admissão.
type ProductReader interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
}

// OrderCreator registra o pedido gerado no checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, order domain.Order, debit bool) (domain.Order, error)
}

// MessageComposer gera o texto e o link do canal de mensagens.
type MessageComposer interface {
	Message(draft domain.OrderDraft) string
	Link(draft domain.OrderDraft) string
}

// CheckoutResult é o que o cliente recebe ao finalizar o carrinho.
type CheckoutResult struct {
	Order       domain.Order      `json:"order"`
	Draft       domain.OrderDraft `json:"draft"`
	Message     string            `json:"message"`
	WhatsAppURL string            `json:"whatsapp_url"`
}

// Service aplica a admissão do carrinho sobre o estoque atual a cada chamada.
type Service struct {
	store    CartStore
	products ProductReader
	orders   OrderCreator
	composer MessageComposer
	locks    *keylock.KeyedMutex
	logger   logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Carrinho.
func NewService(store CartStore, products ProductReader, orders OrderCreator, composer MessageComposer, logger logger.Logger) *Service {
	return &Service{
		store:    store,
		products: products,
		orders:   orders,
		composer: composer,
		locks:    keylock.New(),
		logger:   logger,
	}
}

// NewCart abre um carrinho vazio.
func (s *Service) NewCart(ctx context.Context) (*cart.Cart, error) {
	c := cart.New(uuid.New().String())
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCart busca um carrinho.
func (s *Service) GetCart(ctx context.Context, id string) (*cart.Cart, error) {
	return s.store.Find(ctx, id)
}

// AddItem inclui unidades no carrinho. Se o estoque não comportar, nada muda.
func (s *Service) AddItem(ctx context.Context, cartID, productID, size string, qty int) (*cart.Cart, error) {
	return s.mutate(ctx, cartID, func(c *cart.Cart) error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		return c.AddItem(p, size, qty)
	})
}

// UpdateQuantity altera a quantidade de uma linha, limitada ao estoque atual.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID, size string, qty int) (*cart.Cart, cart.QuantityUpdate, error) {
	var res cart.QuantityUpdate
	c, err := s.mutate(ctx, cartID, func(c *cart.Cart) error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		res, err = c.UpdateQuantity(p, size, qty)
		return err
	})
	if err != nil {
		return nil, cart.QuantityUpdate{}, err
	}
	if res.Capped {
		s.logger.Info("Quantidade do carrinho limitada ao estoque.", map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
			"size":       size,
			"ceiling":    res.Ceiling,
		})
	}
	return c, res, nil
}

// RemoveItem retira uma linha do carrinho.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID, size string) (*cart.Cart, error) {
	return s.mutate(ctx, cartID, func(c *cart.Cart) error {
		c.RemoveItem(productID, size)
		return nil
	})
}

// Checkout gera o resumo do pedido, registra o pedido como pending (sem baixa
// de estoque) e descarta o carrinho.
func (s *Service) Checkout(ctx context.Context, cartID, customerName, customerPhone string) (CheckoutResult, error) {
	unlock := s.locks.Lock(cartID)
	defer unlock()

	c, err := s.store.Find(ctx, cartID)
	if err != nil {
		return CheckoutResult{}, err
	}

	draft, err := c.Checkout(customerName, customerPhone)
	if err != nil {
		return CheckoutResult{}, err
	}

	order, err := s.orders.CreateOrder(ctx, draft.ToOrder(), false)
	if err != nil {
		return CheckoutResult{}, err
	}

	if err := s.store.Delete(ctx, cartID); err != nil {
		// O pedido já existe; o carrinho expira pelo TTL
		s.logger.Warn("Falha ao descartar carrinho após checkout.", map[string]interface{}{"cart_id": cartID, "error": err.Error()})
	}

	s.logger.Info("Checkout concluído.", map[string]interface{}{
		"cart_id":  cartID,
		"order_id": order.ID,
		"total":    draft.Total,
	})
	return CheckoutResult{
		Order:       order,
		Draft:       draft,
		Message:     s.composer.Message(draft),
		WhatsAppURL: s.composer.Link(draft),
	}, nil
}

// mutate serializa as alterações de um mesmo carrinho e só grava se fn tiver sucesso.
func (s *Service) mutate(ctx context.Context, cartID string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	unlock := s.locks.Lock(cartID)
	defer unlock()

	c, err := s.store.Find(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		var stockErr *apperror.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Info("Item recusado por falta de estoque.", map[string]interface{}{
				"cart_id":    cartID,
				"product_id": stockErr.ProductID,
				"available":  stockErr.Available,
			})
		}
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
