package stockservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/keylock"
	"gostore/internal/pkg/logger"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 25 * time.Millisecond
)

// Service é o ledger de estoque persistido. Cada escrita é uma unidade
// leitura-modificação-escrita serializada por produto e protegida por OCC.
type Service struct {
	repo       domain.ProductRepository
	locks      *keylock.KeyedMutex
	logger     logger.Logger
	maxRetries uint64
	backoff    time.Duration
}

// Option ajusta o Service na construção.
type Option func(*Service)

// WithRetry define quantas vezes um conflito de versão é retentado e o intervalo entre tentativas.
func WithRetry(maxRetries uint64, backoff time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo domain.ProductRepository, locks *keylock.KeyedMutex, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		locks:      locks,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mutate lê o produto, aplica fn e persiste o resultado com o total recalculado.
// Conflitos de versão reiniciam o ciclo a partir de uma leitura nova.
func (s *Service) Mutate(ctx context.Context, productID string, fn func(p *domain.Product) error) (domain.Product, error) {
	unlock := s.locks.Lock(productID)
	defer unlock()

	var result domain.Product
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewConstant(s.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		// 1. Leitura fresca a cada tentativa
		p, err := s.repo.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		// 2. Mutação em memória
		if err := fn(&p); err != nil {
			return err
		}
		p.RecomputeStock()

		// 3. Escrita condicionada à versão lida
		updated, err := s.repo.Update(ctx, p)
		if err != nil {
			var conflictErr *apperror.ConflictError
			if errors.As(err, &conflictErr) {
				s.logger.Warn("Conflito de versão no estoque, tentando novamente.", map[string]interface{}{
					"product_id": productID,
					"version":    p.Version,
				})
				return retry.RetryableError(err)
			}
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return result, nil
}

// SetStock substitui a quantidade de um tamanho.
func (s *Service) SetStock(ctx context.Context, productID, size string, qty int) (domain.Product, error) {
	p, err := s.Mutate(ctx, productID, func(p *domain.Product) error {
		return p.SetStock(size, qty)
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("Estoque do tamanho atualizado.", map[string]interface{}{
		"product_id": productID,
		"size":       size,
		"quantity":   qty,
		"stock":      p.Stock,
	})
	return p, nil
}

// AddSize inclui um tamanho no produto.
func (s *Service) AddSize(ctx context.Context, productID, label string, initial int) (domain.Product, error) {
	return s.Mutate(ctx, productID, func(p *domain.Product) error {
		return p.AddSize(label, initial)
	})
}

// RemoveSize retira um tamanho e seu estoque do produto.
func (s *Service) RemoveSize(ctx context.Context, productID, label string) (domain.Product, error) {
	return s.Mutate(ctx, productID, func(p *domain.Product) error {
		return p.RemoveSize(label)
	})
}

// Commit baixa o estoque de cada movimentação, na ordem recebida.
//
// Com strict=true cada linha é revalidada contra o estoque atual; a primeira
// linha sem saldo aborta o lote com InsufficientStockError (Line = índice da
// movimentação) e as baixas já aplicadas são desfeitas. Sem strict a baixa é
// limitada a zero e produtos removidos do catálogo são ignorados.
func (s *Service) Commit(ctx context.Context, movements []domain.StockMovement, strict bool) (domain.StockReceipt, error) {
	var receipt domain.StockReceipt

	for i, m := range movements {
		var delta int
		_, err := s.Mutate(ctx, m.ProductID, func(p *domain.Product) error {
			before := p.Available(m.Size)
			if strict && (!p.HasSize(m.Size) || before < m.Quantity) {
				stockErr := apperror.NewInsufficientStockError(p.ID, p.Name, m.Size, m.Quantity, before)
				stockErr.Line = i
				return stockErr
			}
			delta = p.DecrementStock(m.Size, m.Quantity) - before
			return nil
		})

		if err != nil {
			var notFound *apperror.NotFoundError
			if !strict && errors.As(err, &notFound) {
				s.logger.Warn("Produto do pedido não existe mais; baixa ignorada.", map[string]interface{}{
					"product_id": m.ProductID,
					"size":       m.Size,
				})
				continue
			}
			return domain.StockReceipt{}, s.abort(ctx, receipt, err)
		}

		receipt.Entries = append(receipt.Entries, domain.StockReceiptEntry{
			ProductID: m.ProductID,
			Size:      m.Size,
			Delta:     delta,
		})
	}

	s.logger.Debug("Baixa de estoque aplicada.", map[string]interface{}{
		"movements": len(movements),
		"strict":    strict,
	})
	return receipt, nil
}

// Restock devolve unidades ao estoque (devoluções). Falhas desfazem o que já foi aplicado.
func (s *Service) Restock(ctx context.Context, movements []domain.StockMovement) (domain.StockReceipt, error) {
	var receipt domain.StockReceipt

	for _, m := range movements {
		if m.Quantity <= 0 {
			continue
		}
		_, err := s.Mutate(ctx, m.ProductID, func(p *domain.Product) error {
			p.IncrementStock(m.Size, m.Quantity)
			return nil
		})
		if err != nil {
			var notFound *apperror.NotFoundError
			if errors.As(err, &notFound) {
				s.logger.Warn("Produto devolvido não existe mais; reposição ignorada.", map[string]interface{}{
					"product_id": m.ProductID,
					"size":       m.Size,
				})
				continue
			}
			return domain.StockReceipt{}, s.abort(ctx, receipt, err)
		}
		receipt.Entries = append(receipt.Entries, domain.StockReceiptEntry{
			ProductID: m.ProductID,
			Size:      m.Size,
			Delta:     m.Quantity,
		})
	}
	return receipt, nil
}

// Revert aplica o inverso de cada entrada do recibo, da última para a primeira.
// Todas as entradas são tentadas; os erros são combinados.
func (s *Service) Revert(ctx context.Context, receipt domain.StockReceipt) error {
	var errs error
	for i := len(receipt.Entries) - 1; i >= 0; i-- {
		e := receipt.Entries[i]
		if e.Delta == 0 {
			continue
		}
		_, err := s.Mutate(ctx, e.ProductID, func(p *domain.Product) error {
			if e.Delta < 0 {
				p.IncrementStock(e.Size, -e.Delta)
			} else {
				p.DecrementStock(e.Size, e.Delta)
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("produto %s tamanho %s: %w", e.ProductID, e.Size, err))
		}
	}
	return errs
}

// abort desfaz o recibo parcial e devolve a causa original. Se o desfazer
// também falhar, o estoque pode estar inconsistente e o erro vira interno.
func (s *Service) abort(ctx context.Context, partial domain.StockReceipt, cause error) error {
	if len(partial.Entries) == 0 {
		return cause
	}
	if rbErr := s.Revert(ctx, partial); rbErr != nil {
		s.logger.Error("Falha ao desfazer movimentações de estoque.", rbErr)
		return apperror.NewInternalError("Falha ao desfazer movimentações de estoque.", multierr.Combine(cause, rbErr))
	}
	s.logger.Info("Movimentações parciais de estoque desfeitas.", map[string]interface{}{
		"entries": len(partial.Entries),
		"cause":   cause.Error(),
	})
	return cause
}
