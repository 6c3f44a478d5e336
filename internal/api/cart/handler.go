package cart

import (
	"context"
	"net/http"

	"gostore/internal/api/response"
	cartmodel "gostore/internal/cart"
	"gostore/internal/pkg/logger"
	"gostore/internal/service/cartservice"
)

// CartService define o contrato que o Handler espera do serviço de carrinho.
type CartService interface {
	NewCart(ctx context.Context) (*cartmodel.Cart, error)
	GetCart(ctx context.Context, id string) (*cartmodel.Cart, error)
	AddItem(ctx context.Context, cartID, productID, size string, qty int) (*cartmodel.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, productID, size string, qty int) (*cartmodel.Cart, cartmodel.QuantityUpdate, error)
	RemoveItem(ctx context.Context, cartID, productID, size string) (*cartmodel.Cart, error)
	Checkout(ctx context.Context, cartID, customerName, customerPhone string) (cartservice.CheckoutResult, error)
}

// ItemRequest identifica uma linha do carrinho.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest traz os dados do cliente.
type CheckoutRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

// CartView é o carrinho com os totais calculados.
type CartView struct {
	*cartmodel.Cart
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
}

// QuantityView acompanha a resposta de alteração de quantidade.
type QuantityView struct {
	CartView
	Update cartmodel.QuantityUpdate `json:"update"`
}

// Handler expõe o carrinho do cliente.
type Handler struct {
	Service CartService
	Logger  logger.Logger
	resp    *response.Writer
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc CartService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log, resp: response.New(log)}
}

func view(c *cartmodel.Cart) CartView {
	if c == nil {
		return CartView{}
	}
	return CartView{Cart: c, Total: c.Total(), ItemCount: c.ItemCount()}
}

// CreateCartHandler lida com a requisição POST /v1/carts.
// @Summary Abre um carrinho
// @Tags carts
// @Produce json
// @Success 201 {object} CartView
// @Router /carts [post]
func (h *Handler) CreateCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.NewCart(r.Context())
	h.resp.Handle(w, r, view(c), err, http.StatusCreated)
}

// GetCartHandler lida com a requisição GET /v1/carts/{id}.
// @Summary Busca o carrinho
// @Tags carts
// @Produce json
// @Param id path string true "ID do carrinho"
// @Success 200 {object} CartView
// @Failure 404 {object} domain.ErrorResponse
// @Router /carts/{id} [get]
func (h *Handler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCart(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, view(c), err, http.StatusOK)
}

// AddItemHandler lida com a requisição POST /v1/carts/{id}/items.
// @Summary Adiciona item ao carrinho
// @Description Recusa por inteiro quando a quantidade no carrinho passaria do estoque do tamanho.
// @Tags carts
// @Accept json
// @Produce json
// @Param id path string true "ID do carrinho"
// @Param item body ItemRequest true "Produto, tamanho e quantidade"
// @Success 200 {object} CartView
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente"
// @Router /carts/{id}/items [post]
func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.Service.AddItem(r.Context(), r.PathValue("id"), req.ProductID, req.Size, req.Quantity)
	h.resp.Handle(w, r, view(c), err, http.StatusOK)
}

// UpdateItemHandler lida com a requisição PUT /v1/carts/{id}/items.
// @Summary Altera a quantidade de um item
// @Description A quantidade é limitada ao estoque; zero remove a linha.
// @Tags carts
// @Accept json
// @Produce json
// @Param id path string true "ID do carrinho"
// @Param item body ItemRequest true "Produto, tamanho e nova quantidade"
// @Success 200 {object} QuantityView
// @Failure 404 {object} domain.ErrorResponse
// @Router /carts/{id}/items [put]
func (h *Handler) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, update, err := h.Service.UpdateQuantity(r.Context(), r.PathValue("id"), req.ProductID, req.Size, req.Quantity)
	h.resp.Handle(w, r, QuantityView{CartView: view(c), Update: update}, err, http.StatusOK)
}

// RemoveItemHandler lida com a requisição DELETE /v1/carts/{id}/items?product_id=...&size=...
// @Summary Remove item do carrinho
// @Tags carts
// @Produce json
// @Param id path string true "ID do carrinho"
// @Param product_id query string true "ID do produto"
// @Param size query string true "Tamanho"
// @Success 200 {object} CartView
// @Router /carts/{id}/items [delete]
func (h *Handler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := h.Service.RemoveItem(r.Context(), r.PathValue("id"), q.Get("product_id"), q.Get("size"))
	h.resp.Handle(w, r, view(c), err, http.StatusOK)
}

// CheckoutHandler lida com a requisição POST /v1/carts/{id}/checkout.
// @Summary Finaliza o carrinho
// @Description Registra o pedido como pending e devolve a mensagem e o link de WhatsApp.
// @Tags carts
// @Accept json
// @Produce json
// @Param id path string true "ID do carrinho"
// @Param customer body CheckoutRequest true "Nome e telefone"
// @Success 201 {object} cartservice.CheckoutResult
// @Failure 400 {object} domain.ErrorResponse
// @Router /carts/{id}/checkout [post]
func (h *Handler) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	result, err := h.Service.Checkout(r.Context(), r.PathValue("id"), req.CustomerName, req.CustomerPhone)
	h.resp.Handle(w, r, result, err, http.StatusCreated)
}
