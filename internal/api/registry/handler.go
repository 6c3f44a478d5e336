package registry

import (
	"context"
	"net/http"

	"gostore/internal/api/response"
	"gostore/internal/domain"
	"gostore/internal/pkg/logger"
)

// RegistryService define o contrato dos registros de categorias e tamanhos.
type RegistryService interface {
	Add(ctx context.Context, kind domain.RegistryKind, label string) (domain.RegistryEntry, error)
	Remove(ctx context.Context, kind domain.RegistryKind, label string) error
	List(ctx context.Context, kind domain.RegistryKind) ([]domain.RegistryEntry, error)
}

// EntryRequest é o payload de cadastro de rótulo.
type EntryRequest struct {
	Label string `json:"label"`
}

// Handler expõe os registros ao console administrativo.
type Handler struct {
	Service RegistryService
	Logger  logger.Logger
	resp    *response.Writer
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc RegistryService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log, resp: response.New(log)}
}

// ListHandler lida com a requisição GET /v1/admin/registries/{kind}.
// @Summary Lista rótulos cadastrados
// @Tags admin-registries
// @Produce json
// @Security BearerAuth
// @Param kind path string true "category ou size"
// @Success 200 {array} domain.RegistryEntry
// @Failure 400 {object} domain.ErrorResponse
// @Router /admin/registries/{kind} [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.List(r.Context(), domain.RegistryKind(r.PathValue("kind")))
	if entries == nil {
		entries = []domain.RegistryEntry{}
	}
	h.resp.Handle(w, r, entries, err, http.StatusOK)
}

// AddHandler lida com a requisição POST /v1/admin/registries/{kind}.
// @Summary Cadastra rótulo
// @Tags admin-registries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "category ou size"
// @Param entry body EntryRequest true "Rótulo"
// @Success 201 {object} domain.RegistryEntry
// @Failure 409 {object} domain.ErrorResponse "Rótulo já cadastrado"
// @Router /admin/registries/{kind} [post]
func (h *Handler) AddHandler(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := response.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	entry, err := h.Service.Add(r.Context(), domain.RegistryKind(r.PathValue("kind")), req.Label)
	h.resp.Handle(w, r, entry, err, http.StatusCreated)
}

// RemoveHandler lida com a requisição DELETE /v1/admin/registries/{kind}/{label}.
// @Summary Remove rótulo
// @Tags admin-registries
// @Security BearerAuth
// @Param kind path string true "category ou size"
// @Param label path string true "Rótulo"
// @Success 204
// @Failure 404 {object} domain.ErrorResponse
// @Router /admin/registries/{kind}/{label} [delete]
func (h *Handler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Remove(r.Context(), domain.RegistryKind(r.PathValue("kind")), r.PathValue("label"))
	h.resp.Handle(w, r, nil, err, http.StatusNoContent)
}
