package orderservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/orderbuilder"
	"gostore/internal/pkg/keylock"
	"gostore/internal/pkg/logger"
)

// StockLedger é o contrato que o ciclo de vida do pedido espera do serviço de estoque.
type StockLedger interface {
	Commit(ctx context.Context, movements []domain.StockMovement, strict bool) (domain.StockReceipt, error)
	Restock(ctx context.Context, movements []domain.StockMovement) (domain.StockReceipt, error)
	Revert(ctx context.Context, receipt domain.StockReceipt) error
}

// ProductReader busca o estado atual do produto para a montagem de pedidos de balcão.
type ProductReader interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
}

// EventPublisher propaga mudanças de pedido para os painéis conectados.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

// AdminOrderLine é uma linha do pedido de balcão enviada pela equipe.
type AdminOrderLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// AdminOrderRequest é o payload de criação de pedido pela equipe.
type AdminOrderRequest struct {
	CustomerName  string           `json:"customer_name"`
	CustomerPhone string           `json:"customer_phone"`
	Lines         []AdminOrderLine `json:"lines"`
	DebitStock    bool             `json:"debit_stock"`
}

// Service implementa o ciclo de vida do pedido: criação, confirmação,
// cancelamento e devoluções, com os efeitos de estoque de cada transição.
type Service struct {
	repo      domain.OrderRepository
	stock     StockLedger
	products  ProductReader
	publisher EventPublisher
	locks     *keylock.KeyedMutex
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Pedidos.
func NewService(repo domain.OrderRepository, stock StockLedger, products ProductReader, publisher EventPublisher, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		stock:     stock,
		products:  products,
		publisher: publisher,
		locks:     keylock.New(),
		logger:    logger,
	}
}

// CreateOrder persiste um pedido novo. Com debit=true o estoque de todas as
// linhas é revalidado e baixado (tudo ou nada) e o pedido nasce completed;
// sem debit ele nasce pending e o estoque não é tocado.
func (s *Service) CreateOrder(ctx context.Context, order domain.Order, debit bool) (domain.Order, error) {
	// 1. Validação das linhas
	if len(order.Items) == 0 {
		return domain.Order{}, apperror.NewValidationError("O pedido precisa de pelo menos um item.")
	}
	for i, it := range order.Items {
		if it.Quantity <= 0 {
			return domain.Order{}, apperror.NewInvalidQuantityError(it.Quantity)
		}
		if it.ProductID == "" || it.Size == "" {
			return domain.Order{}, apperror.NewValidationError(fmt.Sprintf("Linha %d requer produto e tamanho.", i+1))
		}
		order.Items[i].ReturnedQuantity = 0
	}

	// 2. Preenchimento
	order.ApplyWalkInDefaults()
	order.ID = uuid.New().String()
	order.TotalValue = order.ComputeTotal()
	order.Status = domain.OrderStatusPending
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	// 3. Baixa imediata (opcional)
	var receipt domain.StockReceipt
	if debit {
		var err error
		receipt, err = s.stock.Commit(ctx, order.Movements(), true)
		if err != nil {
			s.logger.Warn("Pedido recusado na baixa de estoque.", map[string]interface{}{"error": err.Error()})
			return domain.Order{}, err
		}
		order.Status = domain.OrderStatusCompleted
	}

	// 4. Persistência
	created, err := s.repo.Save(ctx, order)
	if err != nil {
		return domain.Order{}, s.rollback(ctx, receipt, err)
	}

	s.logger.Info("Pedido criado.", map[string]interface{}{
		"order_id": created.ID,
		"status":   created.Status,
		"total":    created.TotalValue,
	})
	s.publish(ctx, "created", created)
	return created, nil
}

// CreateAdminOrder monta o pedido de balcão linha a linha contra o estoque atual e o envia.
func (s *Service) CreateAdminOrder(ctx context.Context, req AdminOrderRequest) (domain.Order, error) {
	b := orderbuilder.New()
	b.SetCustomer(req.CustomerName, req.CustomerPhone)

	for i, line := range req.Lines {
		p, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if err := b.AddLine(p, line.Size, line.Quantity); err != nil {
			if stockErr, ok := err.(*apperror.InsufficientStockError); ok {
				stockErr.Line = i
			}
			return domain.Order{}, err
		}
	}

	return b.Submit(ctx, s, req.DebitStock)
}

// GetOrder busca um pedido pelo ID.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, apperror.NewValidationError("O ID do pedido deve ser um UUID válido.")
	}
	return s.repo.FindByID(ctx, id)
}

// ListOrders lista os pedidos do mais recente para o mais antigo, com o número
// de exibição calculado sobre todos os pedidos antes do filtro.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status inválido: %s", filter.Status))
	}

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(all))
	for _, o := range domain.SequenceOrders(all) {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Confirm leva o pedido de pending para completed e baixa o estoque de cada item.
// Estoque e status andam juntos: se o status não for gravado, a baixa é desfeita.
func (s *Service) Confirm(ctx context.Context, id string) (domain.Order, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.load(ctx, id, domain.OrderStatusCompleted)
	if err != nil {
		return domain.Order{}, err
	}

	receipt, err := s.stock.Commit(ctx, order.Movements(), false)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusCompleted
	return s.save(ctx, order, receipt, "confirmed")
}

// Cancel leva o pedido de pending para cancelled. Não há efeito de estoque.
func (s *Service) Cancel(ctx context.Context, id string) (domain.Order, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.load(ctx, id, domain.OrderStatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusCancelled
	return s.save(ctx, order, domain.StockReceipt{}, "cancelled")
}

// ReturnAll devolve ao estoque tudo o que ainda não voltou e encerra o pedido como returned.
func (s *Service) ReturnAll(ctx context.Context, id string) (domain.Order, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.load(ctx, id, domain.OrderStatusReturned)
	if err != nil {
		return domain.Order{}, err
	}

	movements := make([]domain.StockMovement, 0, len(order.Items))
	for _, it := range order.Items {
		movements = append(movements, domain.StockMovement{ProductID: it.ProductID, Size: it.Size, Quantity: it.Outstanding()})
	}

	receipt, err := s.stock.Restock(ctx, movements)
	if err != nil {
		return domain.Order{}, err
	}

	for i := range order.Items {
		order.Items[i].ReturnedQuantity = order.Items[i].Quantity
	}
	order.Status = domain.OrderStatusReturned
	return s.save(ctx, order, receipt, "returned")
}

// ReturnPartial devolve returns[índice do item] unidades de cada item. Valores
// acima do pendente são reduzidos ao pendente e negativos contam como zero;
// uma devolução que zera em todas as linhas ainda muda o status.
// O pedido termina returned se tudo voltou, senão partially_returned.
func (s *Service) ReturnPartial(ctx context.Context, id string, returns map[int]int) (domain.Order, error) {
	if len(returns) == 0 {
		return domain.Order{}, apperror.NewValidationError("Informe ao menos um item a devolver.")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	order, err := s.load(ctx, id, domain.OrderStatusPartiallyReturned)
	if err != nil {
		return domain.Order{}, err
	}

	// 1. Normalização das quantidades
	var movements []domain.StockMovement
	applied := make(map[int]int, len(returns))
	for idx, qty := range returns {
		if idx < 0 || idx >= len(order.Items) {
			return domain.Order{}, apperror.NewValidationError(fmt.Sprintf("Item %d não existe no pedido.", idx))
		}
		item := order.Items[idx]
		if qty > item.Outstanding() {
			qty = item.Outstanding()
		}
		if qty <= 0 {
			continue
		}
		applied[idx] = qty
		movements = append(movements, domain.StockMovement{ProductID: item.ProductID, Size: item.Size, Quantity: qty})
	}

	// 2. Estoque
	receipt, err := s.stock.Restock(ctx, movements)
	if err != nil {
		return domain.Order{}, err
	}

	// 3. Itens e status
	for idx, qty := range applied {
		order.Items[idx].ReturnedQuantity += qty
	}
	order.Status = domain.OrderStatusPartiallyReturned
	if order.FullyReturned() {
		order.Status = domain.OrderStatusReturned
	}

	return s.save(ctx, order, receipt, string(order.Status))
}

// load busca o pedido e confere se a transição para next é permitida.
func (s *Service) load(ctx context.Context, id string, next domain.OrderStatus) (domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransitionTo(next) {
		return domain.Order{}, apperror.NewInvalidTransitionError(string(order.Status), string(next))
	}
	return order, nil
}

// save grava a transição; se a gravação falhar, o efeito de estoque é desfeito.
func (s *Service) save(ctx context.Context, order domain.Order, receipt domain.StockReceipt, event string) (domain.Order, error) {
	order.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return domain.Order{}, s.rollback(ctx, receipt, err)
	}

	s.logger.Info("Status do pedido atualizado.", map[string]interface{}{
		"order_id": updated.ID,
		"status":   updated.Status,
		"version":  updated.Version,
	})
	s.publish(ctx, event, updated)
	return updated, nil
}

func (s *Service) rollback(ctx context.Context, receipt domain.StockReceipt, cause error) error {
	if len(receipt.Entries) == 0 {
		return cause
	}
	if rbErr := s.stock.Revert(ctx, receipt); rbErr != nil {
		s.logger.Error("Falha ao desfazer estoque após erro no pedido.", rbErr)
		return apperror.NewInternalError("Falha ao gravar pedido e desfazer estoque.", multierr.Combine(cause, rbErr))
	}
	return cause
}

// publish é best-effort: a mutação já foi gravada e não é desfeita por falha na notificação.
func (s *Service) publish(ctx context.Context, eventType string, order domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		Status:    order.Status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("Falha ao publicar evento de pedido.", map[string]interface{}{
			"order_id": order.ID,
			"event":    eventType,
			"error":    err.Error(),
		})
	}
}
