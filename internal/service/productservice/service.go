package productservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
)

// StockMutator é a parte do ledger de estoque usada pelo catálogo.
type StockMutator interface {
	Mutate(ctx context.Context, productID string, fn func(p *domain.Product) error) (domain.Product, error)
	SetStock(ctx context.Context, productID, size string, qty int) (domain.Product, error)
	AddSize(ctx context.Context, productID, label string, initial int) (domain.Product, error)
	RemoveSize(ctx context.Context, productID, label string) (domain.Product, error)
}

// RegistrySource entrega os snapshots de categorias e tamanhos cadastrados.
type RegistrySource interface {
	Snapshot(ctx context.Context, kind domain.RegistryKind) (domain.Registry, error)
}

// ImageStore guarda as fotos dos produtos.
type ImageStore interface {
	Upload(ctx context.Context, productID string, data []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// Service é o catálogo: cadastro, edição, busca e remoção de produtos.
// Toda alteração de estoque passa pelo StockMutator.
type Service struct {
	repo       domain.ProductRepository
	stock      StockMutator
	registries RegistrySource
	images     ImageStore
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
// images pode ser nil quando o armazenamento de fotos não está configurado.
func NewService(repo domain.ProductRepository, stock StockMutator, registries RegistrySource, images ImageStore, logger logger.Logger) *Service {
	return &Service{
		repo:       repo,
		stock:      stock,
		registries: registries,
		images:     images,
		logger:     logger,
	}
}

// NormalizeSize deixa o rótulo do tamanho em maiúsculas e sem espaços nas pontas.
func NormalizeSize(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// CreateProduct valida e cadastra um produto. A distribuição por tamanho
// precisa somar exatamente o estoque declarado.
func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	// 1. Campos básicos
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto é obrigatório.")
	}
	if in.Price < 0 {
		return domain.Product{}, apperror.NewValidationError("O preço do produto não pode ser negativo.")
	}

	// 2. Categoria contra o registro
	category := domain.NormalizeCategory(in.Category)
	if err := s.checkCategory(ctx, category); err != nil {
		return domain.Product{}, err
	}

	// 3. Grade de tamanhos (categorias de tamanho único ignoram a grade enviada)
	sizes := in.Sizes
	if len(sizes) == 0 || domain.IsSingleSizeCategory(category) {
		sizes = domain.DefaultSizesForCategory(category)
	}
	sizes, err := s.normalizeSizes(ctx, sizes)
	if err != nil {
		return domain.Product{}, err
	}
	if len(sizes) == 0 {
		return domain.Product{}, apperror.NewValidationError("Informe ao menos um tamanho para o produto.")
	}

	// 4. Distribuição do estoque declarado
	stockBySize, err := distribute(sizes, in.DeclaredStock, in.Distribution)
	if err != nil {
		return domain.Product{}, err
	}

	// 5. Preenchimento e persistência
	now := time.Now().UTC()
	product := domain.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Category:    category,
		Price:       in.Price,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Sizes:       sizes,
		StockBySize: stockBySize,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	product.RecomputeStock()

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto cadastrado.", map[string]interface{}{
		"product_id": created.ID,
		"category":   created.Category,
		"stock":      created.Stock,
	})
	return created, nil
}

// GetProduct busca um produto pelo ID.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product.Sizes = product.SortedSizes()
	return product, nil
}

// ListProducts busca o catálogo com filtros de nome, categoria e disponibilidade.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	if filter.Category != "" {
		filter.Category = domain.NormalizeCategory(filter.Category)
	}

	products, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Sizes = products[i].SortedSizes()
	}
	return products, nil
}

// UpdateProduct aplica a edição parcial. Quando a distribuição vem junto,
// ela substitui o estoque de todos os tamanhos e precisa fechar com o total declarado.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}

	// 1. Validação fora da seção crítica
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return domain.Product{}, apperror.NewValidationError("O nome do produto é obrigatório.")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return domain.Product{}, apperror.NewValidationError("O preço do produto não pode ser negativo.")
	}
	var category string
	if patch.Category != nil {
		category = domain.NormalizeCategory(*patch.Category)
		if err := s.checkCategory(ctx, category); err != nil {
			return domain.Product{}, err
		}
	}
	if patch.Distribution != nil && patch.DeclaredStock == nil {
		return domain.Product{}, apperror.NewValidationError("Informe o estoque total junto com a distribuição por tamanho.")
	}

	// 2. Escrita pelo ledger, com leitura fresca e controle de versão
	updated, err := s.stock.Mutate(ctx, id, func(p *domain.Product) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			p.Category = category
			if domain.IsSingleSizeCategory(category) {
				p.CollapseToSingleSize()
			}
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.ImageURL != nil {
			p.ImageURL = strings.TrimSpace(*patch.ImageURL)
		}
		if patch.DeclaredStock != nil {
			stockBySize, err := distribute(p.Sizes, *patch.DeclaredStock, normalizeKeys(patch.Distribution))
			if err != nil {
				return err
			}
			p.StockBySize = stockBySize
			p.Stock = *patch.DeclaredStock
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto atualizado.", map[string]interface{}{
		"product_id": updated.ID,
		"version":    updated.Version,
	})
	return updated, nil
}

// DeleteProduct remove o produto do catálogo e, se houver, sua foto.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.discardImage(ctx, product.ImageURL)
	s.logger.Info("Produto removido.", map[string]interface{}{"product_id": id})
	return nil
}

// SetStock substitui a quantidade de um tamanho existente.
func (s *Service) SetStock(ctx context.Context, id, size string, qty int) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	return s.stock.SetStock(ctx, id, NormalizeSize(size), qty)
}

// AddSize inclui um tamanho cadastrado no registro de tamanhos.
func (s *Service) AddSize(ctx context.Context, id, label string, initial int) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	label = NormalizeSize(label)
	if err := s.checkSize(ctx, label); err != nil {
		return domain.Product{}, err
	}
	return s.stock.AddSize(ctx, id, label, initial)
}

// RemoveSize retira um tamanho e seu estoque.
func (s *Service) RemoveSize(ctx context.Context, id, label string) (domain.Product, error) {
	if err := validateID(id); err != nil {
		return domain.Product{}, err
	}
	return s.stock.RemoveSize(ctx, id, NormalizeSize(label))
}

// UploadImage grava a foto do produto e troca a URL. A foto anterior é apagada.
func (s *Service) UploadImage(ctx context.Context, id string, data []byte) (domain.Product, error) {
	if s.images == nil {
		return domain.Product{}, apperror.NewValidationError("Upload de imagens não está habilitado.")
	}
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	url, err := s.images.Upload(ctx, id, data)
	if err != nil {
		return domain.Product{}, err
	}

	updated, err := s.stock.Mutate(ctx, id, func(p *domain.Product) error {
		p.ImageURL = url
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		// Foto órfã: o produto não foi atualizado.
		s.discardImage(ctx, url)
		return domain.Product{}, err
	}

	if current.ImageURL != url {
		s.discardImage(ctx, current.ImageURL)
	}
	return updated, nil
}

func (s *Service) discardImage(ctx context.Context, url string) {
	if s.images == nil || url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.Warn("Falha ao apagar imagem do produto.", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}
}

func (s *Service) checkCategory(ctx context.Context, category string) error {
	if category == "" {
		return apperror.NewValidationError("A categoria do produto é obrigatória.")
	}
	reg, err := s.registries.Snapshot(ctx, domain.RegistryCategory)
	if err != nil {
		return err
	}
	if !reg.Allows(category) {
		return apperror.NewValidationError(fmt.Sprintf("Categoria não cadastrada: %s", category))
	}
	return nil
}

func (s *Service) checkSize(ctx context.Context, label string) error {
	if label == "" {
		return apperror.NewValidationError("O rótulo do tamanho é obrigatório.")
	}
	reg, err := s.registries.Snapshot(ctx, domain.RegistrySize)
	if err != nil {
		return err
	}
	if !reg.Allows(label) {
		return apperror.NewUnknownSizeError(label)
	}
	return nil
}

// normalizeSizes padroniza, rejeita repetidos e confere cada rótulo no registro.
func (s *Service) normalizeSizes(ctx context.Context, raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	reg, err := s.registries.Snapshot(ctx, domain.RegistrySize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		label := NormalizeSize(r)
		if label == "" {
			return nil, apperror.NewValidationError("O rótulo do tamanho é obrigatório.")
		}
		if _, dup := seen[label]; dup {
			return nil, apperror.NewDuplicateSizeError(label)
		}
		if !reg.Allows(label) {
			return nil, apperror.NewUnknownSizeError(label)
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return domain.SortSizes(out), nil
}

// distribute monta o estoque por tamanho: todo tamanho da grade entra no mapa
// (zero quando não informado) e chaves fora da grade são recusadas.
func distribute(sizes []string, declared int, allocation map[string]int) (map[string]int, error) {
	allocation = normalizeKeys(allocation)
	valid := make(map[string]struct{}, len(sizes))
	for _, size := range sizes {
		valid[size] = struct{}{}
	}
	for size := range allocation {
		if _, ok := valid[size]; !ok {
			return nil, apperror.NewUnknownSizeError(size)
		}
	}
	if err := domain.ValidateDistribution(declared, allocation); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(sizes))
	for _, size := range sizes {
		out[size] = allocation[size]
	}
	return out, nil
}

func normalizeKeys(allocation map[string]int) map[string]int {
	if allocation == nil {
		return nil
	}
	out := make(map[string]int, len(allocation))
	for k, v := range allocation {
		out[NormalizeSize(k)] += v
	}
	return out
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	return nil
}
