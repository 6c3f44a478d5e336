package cartrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gostore/internal/cart"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/logger"
)

const cartKey = "cart:%s"

// CartRepository guarda carrinhos no Redis como JSON. Cada gravação renova o TTL,
// então carrinhos abandonados expiram sozinhos.
type CartRepository struct {
	Cache  cache.Client
	TTL    time.Duration
	logger logger.Logger
}

// NewCartRepository cria o repositório de carrinhos.
func NewCartRepository(cacheClient cache.Client, ttl time.Duration, logger logger.Logger) *CartRepository {
	return &CartRepository{Cache: cacheClient, TTL: ttl, logger: logger}
}

// Save grava o carrinho inteiro.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return apperror.NewInternalError("Falha ao serializar carrinho.", err)
	}
	if err := r.Cache.Set(ctx, fmt.Sprintf(cartKey, c.ID), payload, r.TTL); err != nil {
		r.logger.Error("Falha ao gravar carrinho no Redis.", err)
		return apperror.NewInternalError("Falha ao gravar carrinho.", err)
	}
	return nil
}

// Find busca o carrinho. Carrinho expirado ou inexistente resulta em NotFoundError.
func (r *CartRepository) Find(ctx context.Context, id string) (*cart.Cart, error) {
	raw, err := r.Cache.Get(ctx, fmt.Sprintf(cartKey, id))
	if err == cache.ErrCacheMiss {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("Carrinho %s não encontrado ou expirado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao ler carrinho do Redis.", err)
		return nil, apperror.NewInternalError("Falha ao ler carrinho.", err)
	}

	var c cart.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, apperror.NewInternalError("Carrinho corrompido.", err)
	}
	return &c, nil
}

// Delete descarta o carrinho.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	if err := r.Cache.Delete(ctx, fmt.Sprintf(cartKey, id)); err != nil {
		return apperror.NewInternalError("Falha ao remover carrinho.", err)
	}
	return nil
}
