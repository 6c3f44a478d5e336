package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gostore/internal/api/response"
	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
	"gostore/internal/service/orderservice"
)

// keepAliveInterval mantém a conexão SSE aberta atrás de proxies.
const keepAliveInterval = 25 * time.Second

// OrderService define o contrato que o Handler espera do ciclo de vida de pedidos.
type OrderService interface {
	CreateAdminOrder(ctx context.Context, req orderservice.AdminOrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Confirm(ctx context.Context, id string) (domain.Order, error)
	Cancel(ctx context.Context, id string) (domain.Order, error)
	ReturnAll(ctx context.Context, id string) (domain.Order, error)
	ReturnPartial(ctx context.Context, id string, returns map[int]int) (domain.Order, error)
}

// EventSubscriber entrega as mudanças de pedido publicadas pelos serviços.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.OrderEvent, error)
}

// ReturnLine é a devolução de um item, pelo índice no pedido.
type ReturnLine struct {
	ItemIndex int `json:"item_index"`
	Quantity  int `json:"quantity"`
}

// PartialReturnRequest é o payload da devolução parcial.
type PartialReturnRequest struct {
	Returns []ReturnLine `json:"returns"`
}

// Handler expõe o console de pedidos da equipe.
type Handler struct {
	Service    OrderService
	Subscriber EventSubscriber
	Logger     logger.Logger
	resp       *response.Writer
}

// NewHandler cria uma nova instância do Handler. subscriber pode ser nil, e
// nesse caso o stream responde 503.
func NewHandler(svc OrderService, subscriber EventSubscriber, log logger.Logger) *Handler {
	return &Handler{Service: svc, Subscriber: subscriber, Logger: log, resp: response.New(log)}
}

// CreateOrderHandler lida com a requisição POST /v1/admin/orders.
// @Summary Registra pedido de balcão
// @Description Com debit_stock=true o estoque de todas as linhas é baixado (tudo ou nada) e o pedido nasce completed.
// @Tags admin-orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body orderservice.AdminOrderRequest true "Cliente e linhas"
// @Success 201 {object} domain.Order
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente"
// @Router /admin/orders [post]
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req orderservice.AdminOrderRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	order, err := h.Service.CreateAdminOrder(r.Context(), req)
	h.resp.Handle(w, r, order, err, http.StatusCreated)
}

// ListOrdersHandler lida com a requisição GET /v1/admin/orders?status=pending.
// @Summary Lista pedidos
// @Description Do mais recente para o mais antigo; sequence conta a partir do mais antigo.
// @Tags admin-orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filtro de status"
// @Success 200 {array} domain.Order
// @Router /admin/orders [get]
func (h *Handler) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{Status: domain.OrderStatus(r.URL.Query().Get("status"))}
	orders, err := h.Service.ListOrders(r.Context(), filter)
	if orders == nil {
		orders = []domain.Order{}
	}
	h.resp.Handle(w, r, orders, err, http.StatusOK)
}

// GetOrderHandler lida com a requisição GET /v1/admin/orders/{id}.
// @Summary Busca pedido
// @Tags admin-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.Order
// @Failure 404 {object} domain.ErrorResponse
// @Router /admin/orders/{id} [get]
func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.GetOrder(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, order, err, http.StatusOK)
}

// ConfirmHandler lida com a requisição POST /v1/admin/orders/{id}/confirm.
// @Summary Confirma pedido e baixa o estoque
// @Tags admin-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.Order
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Router /admin/orders/{id}/confirm [post]
func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.Confirm(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, order, err, http.StatusOK)
}

// CancelHandler lida com a requisição POST /v1/admin/orders/{id}/cancel.
// @Summary Cancela pedido pendente
// @Tags admin-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.Order
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Router /admin/orders/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.Cancel(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, order, err, http.StatusOK)
}

// ReturnHandler lida com a requisição POST /v1/admin/orders/{id}/return.
// @Summary Devolve todos os itens
// @Tags admin-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.Order
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Router /admin/orders/{id}/return [post]
func (h *Handler) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.ReturnAll(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, order, err, http.StatusOK)
}

// PartialReturnHandler lida com a requisição POST /v1/admin/orders/{id}/partial-return.
// @Summary Devolve parte dos itens
// @Tags admin-orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Param returns body PartialReturnRequest true "Quantidades por item"
// @Success 200 {object} domain.Order
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transição inválida"
// @Router /admin/orders/{id}/partial-return [post]
func (h *Handler) PartialReturnHandler(w http.ResponseWriter, r *http.Request) {
	var req PartialReturnRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	returns := make(map[int]int, len(req.Returns))
	for _, line := range req.Returns {
		returns[line.ItemIndex] += line.Quantity
	}
	order, err := h.Service.ReturnPartial(r.Context(), r.PathValue("id"), returns)
	h.resp.Handle(w, r, order, err, http.StatusOK)
}

// StreamHandler lida com a requisição GET /v1/admin/orders/stream (Server-Sent Events).
// @Summary Acompanha mudanças de pedidos em tempo real
// @Tags admin-orders
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} domain.OrderEvent
// @Router /admin/orders/stream [get]
func (h *Handler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.Subscriber == nil {
		h.resp.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"code":     http.StatusServiceUnavailable,
			"category": "STREAM_UNAVAILABLE",
			"message":  "Acompanhamento em tempo real indisponível.",
		})
		return
	}

	ctx := r.Context()
	events, err := h.Subscriber.Subscribe(ctx)
	if err != nil {
		h.resp.Error(w, r, apperror.NewInternalError("Falha ao assinar eventos de pedidos.", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("Falha ao codificar evento de pedido", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
