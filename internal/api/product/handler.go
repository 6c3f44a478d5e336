package product

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"gostore/internal/api/response"
	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/imagestore"
	"gostore/internal/pkg/logger"
	"gostore/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	SetStock(ctx context.Context, id, size string, qty int) (domain.Product, error)
	AddSize(ctx context.Context, id, label string, initial int) (domain.Product, error)
	RemoveSize(ctx context.Context, id, label string) (domain.Product, error)
	UploadImage(ctx context.Context, id string, data []byte) (domain.Product, error)
}

// StockRequest define a quantidade de um tamanho.
type StockRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
	resp    *response.Writer
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
		resp:    response.New(log),
	}
}

// ListProductsHandler lida com a requisição GET /v1/products.
// @Summary Lista o catálogo
// @Description Busca produtos por nome (parcial), categoria e disponibilidade.
// @Tags products
// @Produce json
// @Param name query string false "Trecho do nome"
// @Param category query string false "Categoria"
// @Param in_stock query bool false "Somente com estoque"
// @Success 200 {array} domain.Product
// @Failure 500 {object} domain.ErrorResponse
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
	}
	if v := q.Get("in_stock"); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			h.resp.Error(w, r, apperror.NewValidationError("Parâmetro in_stock deve ser true ou false."))
			return
		}
		filter.InStockOnly = inStock
	}

	products, err := h.Service.ListProducts(r.Context(), filter)
	if products == nil {
		products = []domain.Product{}
	}
	h.resp.Handle(w, r, products, err, http.StatusOK)
}

// GetProductHandler lida com a requisição GET /v1/products/{id}.
// @Summary Busca produto por ID
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /products/{id} [get]
func (h *Handler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetProduct(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, product, err, http.StatusOK)
}

// CreateProductHandler lida com a requisição POST /v1/admin/products.
// @Summary Cadastra produto
// @Description A distribuição por tamanho precisa somar exatamente o estoque declarado.
// @Tags admin-products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body domain.ProductInput true "Dados do produto"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de produto por", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
	}

	var in domain.ProductInput
	if err := response.Decode(r, &in); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	product, err := h.Service.CreateProduct(ctx, in)
	h.resp.Handle(w, r, product, err, http.StatusCreated)
}

// UpdateProductHandler lida com a requisição PATCH /v1/admin/products/{id}.
// @Summary Edita produto
// @Tags admin-products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param patch body domain.ProductPatch true "Campos alterados"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse
// @Router /admin/products/{id} [patch]
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := response.Decode(r, &patch); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	product, err := h.Service.UpdateProduct(r.Context(), r.PathValue("id"), patch)
	h.resp.Handle(w, r, product, err, http.StatusOK)
}

// DeleteProductHandler lida com a requisição DELETE /v1/admin/products/{id}.
// @Summary Remove produto
// @Tags admin-products
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse
// @Router /admin/products/{id} [delete]
func (h *Handler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteProduct(r.Context(), r.PathValue("id"))
	h.resp.Handle(w, r, nil, err, http.StatusNoContent)
}

// SetStockHandler lida com a requisição PUT /v1/admin/products/{id}/stock.
// @Summary Define o estoque de um tamanho
// @Tags admin-products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param stock body StockRequest true "Tamanho e quantidade"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/products/{id}/stock [put]
func (h *Handler) SetStockHandler(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	product, err := h.Service.SetStock(r.Context(), r.PathValue("id"), req.Size, req.Quantity)
	h.resp.Handle(w, r, product, err, http.StatusOK)
}

// AddSizeHandler lida com a requisição POST /v1/admin/products/{id}/sizes.
// @Summary Inclui um tamanho
// @Tags admin-products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param size body StockRequest true "Tamanho e estoque inicial"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/products/{id}/sizes [post]
func (h *Handler) AddSizeHandler(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	product, err := h.Service.AddSize(r.Context(), r.PathValue("id"), req.Size, req.Quantity)
	h.resp.Handle(w, r, product, err, http.StatusOK)
}

// RemoveSizeHandler lida com a requisição DELETE /v1/admin/products/{id}/sizes?size=M.
// @Summary Remove um tamanho
// @Tags admin-products
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param size query string true "Tamanho"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/products/{id}/sizes [delete]
func (h *Handler) RemoveSizeHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.RemoveSize(r.Context(), r.PathValue("id"), r.URL.Query().Get("size"))
	h.resp.Handle(w, r, product, err, http.StatusOK)
}

// UploadImageHandler lida com a requisição POST /v1/admin/products/{id}/image (multipart, campo "image").
// @Summary Envia a foto do produto
// @Description JPEG, PNG ou WEBP de até 8 MB.
// @Tags admin-products
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Param image formData file true "Imagem"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/products/{id}/image [post]
func (h *Handler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imagestore.MaxImageBytes+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		h.resp.Error(w, r, apperror.NewValidationError("Envie a imagem no campo 'image' (até 8 MB)."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagestore.MaxImageBytes+1))
	if err != nil {
		h.resp.Error(w, r, apperror.NewValidationError("Falha ao ler a imagem enviada."))
		return
	}

	product, err := h.Service.UploadImage(r.Context(), r.PathValue("id"), data)
	h.resp.Handle(w, r, product, err, http.StatusOK)
}
