package productservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
	"gostore/internal/service/productservice"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	if fn, ok := args.Get(0).(func(domain.Product) domain.Product); ok {
		return fn(product), args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockRegistry devolve snapshots fixos por tipo.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Snapshot(ctx context.Context, kind domain.RegistryKind) (domain.Registry, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.Registry), args.Error(1)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, productID string, data []byte) (string, error) {
	args := m.Called(ctx, productID, data)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, publicURL string) error {
	return m.Called(ctx, publicURL).Error(0)
}

// fakeStock aplica as mutações sobre um produto em memória.
type fakeStock struct {
	product domain.Product
	err     error
}

func (f *fakeStock) Mutate(ctx context.Context, productID string, fn func(p *domain.Product) error) (domain.Product, error) {
	if f.err != nil {
		return domain.Product{}, f.err
	}
	p := f.product
	if err := fn(&p); err != nil {
		return domain.Product{}, err
	}
	p.RecomputeStock()
	p.Version++
	f.product = p
	return p, nil
}

func (f *fakeStock) SetStock(ctx context.Context, productID, size string, qty int) (domain.Product, error) {
	return f.Mutate(ctx, productID, func(p *domain.Product) error { return p.SetStock(size, qty) })
}

func (f *fakeStock) AddSize(ctx context.Context, productID, label string, initial int) (domain.Product, error) {
	return f.Mutate(ctx, productID, func(p *domain.Product) error { return p.AddSize(label, initial) })
}

func (f *fakeStock) RemoveSize(ctx context.Context, productID, label string) (domain.Product, error) {
	return f.Mutate(ctx, productID, func(p *domain.Product) error { return p.RemoveSize(label) })
}

type fixture struct {
	repo     *MockProductRepository
	registry *MockRegistry
	images   *MockImageStore
	stock    *fakeStock
	svc      *productservice.Service
}

func newFixture(categories, sizes domain.Registry) *fixture {
	f := &fixture{
		repo:     new(MockProductRepository),
		registry: new(MockRegistry),
		images:   new(MockImageStore),
		stock:    &fakeStock{},
	}
	f.registry.On("Snapshot", mock.Anything, domain.RegistryCategory).Return(categories, nil)
	f.registry.On("Snapshot", mock.Anything, domain.RegistrySize).Return(sizes, nil)
	f.svc = productservice.NewService(f.repo, f.stock, f.registry, f.images, logger.NewNop())
	return f
}

func echoSave(f *fixture) {
	f.repo.On("Save", mock.Anything, mock.Anything).
		Return(func(p domain.Product) domain.Product { p.Version = 1; return p }, nil)
}

func TestCreateProduct_Success_DefaultSizesForCategory(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	echoSave(f)

	p, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:          "  Camisa Brasil 2026 ",
		Category:      "Camisa",
		Price:         199.9,
		DeclaredStock: 10,
		Distribution:  map[string]int{"m": 6, "G": 4},
	})

	require.NoError(t, err)
	assert.Equal(t, "Camisa Brasil 2026", p.Name)
	assert.Equal(t, "camisa", p.Category)
	assert.Equal(t, domain.CanonicalSizes, p.Sizes)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, 6, p.StockBySize["M"])
	assert.Equal(t, 0, p.StockBySize["PP"], "tamanhos sem alocação entram zerados")
	assert.Len(t, p.StockBySize, len(domain.CanonicalSizes))
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestCreateProduct_Success_SingleSizeCategory(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	echoSave(f)

	p, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:          "Boné Aba Reta",
		Category:      "Boné",
		Price:         59,
		DeclaredStock: 3,
		Distribution:  map[string]int{domain.SingleSize: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, "bone", p.Category)
	assert.Equal(t, []string{domain.SingleSize}, p.Sizes)
	assert.Equal(t, 3, p.Stock)
}

func TestCreateProduct_Fail_DistributionMismatch(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:          "Camisa",
		Category:      "camisa",
		Price:         100,
		DeclaredStock: 10,
		Distribution:  map[string]int{"M": 5, "G": 4},
	})

	var mismatch *apperror.MismatchError
	require.ErrorAs(t, err, &mismatch)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateProduct_Fail_DuplicateSize(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:     "Regata",
		Category: "regata",
		Sizes:    []string{"m", " M "},
	})

	assert.IsType(t, &apperror.DuplicateSizeError{}, err)
}

func TestCreateProduct_Fail_DistributionOutsideSizes(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:          "Regata",
		Category:      "regata",
		Sizes:         []string{"P", "M"},
		DeclaredStock: 2,
		Distribution:  map[string]int{"P": 1, "GG": 1},
	})

	assert.IsType(t, &apperror.UnknownSizeError{}, err)
}

func TestCreateProduct_Fail_RegistryRejects(t *testing.T) {
	f := newFixture(domain.NewRegistry("camisa"), domain.NewRegistry("P", "M"))

	_, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{Name: "Meia", Category: "meia"})
	assert.IsType(t, &apperror.ValidationError{}, err, "categoria fora do registro")

	_, err = f.svc.CreateProduct(context.Background(), domain.ProductInput{Name: "Camisa", Category: "camisa", Sizes: []string{"P", "XG"}})
	assert.IsType(t, &apperror.UnknownSizeError{}, err, "tamanho fora do registro")
}

func TestCreateProduct_Fail_Validation(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{Name: " ", Category: "camisa"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.CreateProduct(context.Background(), domain.ProductInput{Name: "Camisa", Category: "camisa", Price: -1})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.CreateProduct(context.Background(), domain.ProductInput{Name: "Chaveiro", Category: "acessorio"})
	assert.IsType(t, &apperror.ValidationError{}, err, "categoria sem grade padrão exige tamanhos")
}

func TestGetProduct_Fail_InvalidID(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.GetProduct(context.Background(), "abc")

	assert.IsType(t, &apperror.ValidationError{}, err)
	f.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestListProducts_NormalizesFilterAndSortsSizes(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	f.repo.On("FindAll", mock.Anything, domain.ProductFilter{Name: "brasil", Category: "relogio", InStockOnly: true}).
		Return([]domain.Product{{ID: "1", Sizes: []string{"G", "P", "M"}}}, nil)

	products, err := f.svc.ListProducts(context.Background(), domain.ProductFilter{Name: " brasil ", Category: "Relógio", InStockOnly: true})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"P", "M", "G"}, products[0].Sizes)
	f.repo.AssertExpectations(t)
}

func TestUpdateProduct_RedistributesStock(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	f.stock.product = domain.Product{ID: id, Name: "Camisa", Sizes: []string{"P", "M"}, StockBySize: map[string]int{"P": 1, "M": 1}, Stock: 2, Version: 1}
	price := 120.0
	declared := 5

	p, err := f.svc.UpdateProduct(context.Background(), id, domain.ProductPatch{
		Price:         &price,
		DeclaredStock: &declared,
		Distribution:  map[string]int{"m": 5},
	})

	require.NoError(t, err)
	assert.Equal(t, 120.0, p.Price)
	assert.Equal(t, map[string]int{"P": 0, "M": 5}, p.StockBySize)
	assert.Equal(t, 5, p.Stock)
	assert.Equal(t, 2, p.Version)
}

func TestUpdateProduct_Fail_DistributionWithoutTotal(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())

	_, err := f.svc.UpdateProduct(context.Background(), uuid.NewString(), domain.ProductPatch{Distribution: map[string]int{"M": 1}})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestUpdateProduct_Fail_MismatchKeepsProduct(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	f.stock.product = domain.Product{ID: id, Sizes: []string{"M"}, StockBySize: map[string]int{"M": 1}, Stock: 1, Version: 1}
	declared := 3

	_, err := f.svc.UpdateProduct(context.Background(), id, domain.ProductPatch{DeclaredStock: &declared, Distribution: map[string]int{"M": 2}})

	assert.IsType(t, &apperror.MismatchError{}, err)
	assert.Equal(t, 1, f.stock.product.Version)
}

func TestAddSize_ChecksRegistry(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry("P", "M", "G"))
	id := uuid.NewString()
	f.stock.product = domain.Product{ID: id, Sizes: []string{"M"}, StockBySize: map[string]int{"M": 1}, Stock: 1}

	p, err := f.svc.AddSize(context.Background(), id, "g", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	_, err = f.svc.AddSize(context.Background(), id, "XGG", 1)
	assert.IsType(t, &apperror.UnknownSizeError{}, err)
}

func TestCreateProduct_SingleSizeCategoryIgnoresSentSizes(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	echoSave(f)

	p, err := f.svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:          "Meia Cano Alto",
		Category:      "Meia",
		Sizes:         []string{"M", "G"},
		DeclaredStock: 4,
		Distribution:  map[string]int{"u": 4},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{domain.SingleSize}, p.Sizes)
	assert.Equal(t, map[string]int{domain.SingleSize: 4}, p.StockBySize)
}

func TestUpdateProduct_SingleSizeCategoryCollapsesSizes(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	f.stock.product = domain.Product{ID: id, Category: "acessorio", Sizes: []string{"P", "M"}, StockBySize: map[string]int{"P": 2, "M": 3}, Stock: 5, Version: 1}
	category := "Relógio"

	p, err := f.svc.UpdateProduct(context.Background(), id, domain.ProductPatch{Category: &category})

	require.NoError(t, err)
	assert.Equal(t, "relogio", p.Category)
	assert.Equal(t, []string{domain.SingleSize}, p.Sizes)
	assert.Equal(t, map[string]int{domain.SingleSize: 5}, p.StockBySize)
	assert.Equal(t, 5, p.Stock)
}

func TestAddSize_Fail_SingleSizeCategory(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	f.stock.product = domain.Product{ID: id, Category: "bone", Sizes: []string{domain.SingleSize}, StockBySize: map[string]int{domain.SingleSize: 2}, Stock: 2, Version: 1}

	_, err := f.svc.AddSize(context.Background(), id, "M", 1)

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, []string{domain.SingleSize}, f.stock.product.Sizes)
	assert.Equal(t, 1, f.stock.product.Version)
}

func TestGetProduct_SortsSizes(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	f.repo.On("FindByID", mock.Anything, id).Return(domain.Product{ID: id, Sizes: []string{"GG", "P", "XG", "M"}}, nil)

	p, err := f.svc.GetProduct(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, []string{"P", "M", "GG", "XG"}, p.Sizes)
}

func TestDeleteProduct_RemovesImage(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	url := "https://storage.googleapis.com/loja/products/" + id + "/a.png"
	f.repo.On("FindByID", mock.Anything, id).Return(domain.Product{ID: id, ImageURL: url}, nil)
	f.repo.On("Delete", mock.Anything, id).Return(nil)
	f.images.On("Delete", mock.Anything, url).Return(errors.New("bucket indisponível"))

	err := f.svc.DeleteProduct(context.Background(), id)

	assert.NoError(t, err, "falha ao apagar a foto não impede a remoção")
	f.repo.AssertExpectations(t)
	f.images.AssertExpectations(t)
}

func TestUploadImage_ReplacesPrevious(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	oldURL, newURL := "https://cdn/old.png", "https://cdn/new.png"
	data := []byte("png")
	f.stock.product = domain.Product{ID: id, ImageURL: oldURL}
	f.repo.On("FindByID", mock.Anything, id).Return(f.stock.product, nil)
	f.images.On("Upload", mock.Anything, id, data).Return(newURL, nil)
	f.images.On("Delete", mock.Anything, oldURL).Return(nil)

	p, err := f.svc.UploadImage(context.Background(), id, data)

	require.NoError(t, err)
	assert.Equal(t, newURL, p.ImageURL)
	f.images.AssertExpectations(t)
}

func TestUploadImage_Fail_WriteDiscardsUpload(t *testing.T) {
	f := newFixture(domain.NewRegistry(), domain.NewRegistry())
	id := uuid.NewString()
	newURL := "https://cdn/new.png"
	f.stock.err = apperror.NewConflictError("versão desatualizada")
	f.repo.On("FindByID", mock.Anything, id).Return(domain.Product{ID: id}, nil)
	f.images.On("Upload", mock.Anything, id, mock.Anything).Return(newURL, nil)
	f.images.On("Delete", mock.Anything, newURL).Return(nil)

	_, err := f.svc.UploadImage(context.Background(), id, []byte("png"))

	assert.IsType(t, &apperror.ConflictError{}, err)
	f.images.AssertCalled(t, "Delete", mock.Anything, newURL)
}
