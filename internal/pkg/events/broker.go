// Package events propaga mudanças de pedido via Redis Pub/Sub para os painéis
// administrativos conectados.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gostore/internal/domain"
	"gostore/internal/pkg/logger"
)

// OrderChannel é o canal Redis dos eventos de pedido.
const OrderChannel = "orders:events"

// RedisBroker publica e assina eventos de pedido.
type RedisBroker struct {
	rdb    *redis.Client
	logger logger.Logger
}

// NewRedisBroker cria o broker sobre uma conexão Redis já aberta.
func NewRedisBroker(rdb *redis.Client, logger logger.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, logger: logger}
}

// PublishOrderEvent serializa o evento em JSON e o publica no canal de pedidos.
func (b *RedisBroker) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, OrderChannel, payload).Err(); err != nil {
		return fmt.Errorf("falha ao publicar evento: %w", err)
	}
	return nil
}

// Subscribe assina o canal de pedidos. O canal devolvido é fechado quando ctx
// termina; mensagens malformadas são descartadas.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan domain.OrderEvent, error) {
	ps := b.rdb.Subscribe(ctx, OrderChannel)
	// Confirma a assinatura antes de devolver o canal
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("falha ao assinar %s: %w", OrderChannel, err)
	}

	out := make(chan domain.OrderEvent)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := Decode(msg.Payload)
				if err != nil {
					b.logger.Warn("Evento de pedido malformado descartado.", map[string]interface{}{"error": err.Error()})
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Encode serializa o evento no formato publicado no canal.
func Encode(event domain.OrderEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("falha ao serializar evento: %w", err)
	}
	return string(payload), nil
}

// Decode lê um evento publicado no canal.
func Decode(payload string) (domain.OrderEvent, error) {
	var event domain.OrderEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.OrderEvent{}, err
	}
	if event.OrderID == "" {
		return domain.OrderEvent{}, fmt.Errorf("evento sem order_id")
	}
	return event, nil
}
