package orderservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/orderbuilder"
	"gostore/internal/pkg/keylock"
	"gostore/internal/pkg/logger"
	"gostore/internal/service/orderservice"
	"gostore/internal/service/stockservice"
)

// --- Fakes e Mocks ---

type memProducts struct {
	mu    sync.Mutex
	items map[string]domain.Product
}

func copyProduct(p domain.Product) domain.Product {
	p.Sizes = append([]string(nil), p.Sizes...)
	m := make(map[string]int, len(p.StockBySize))
	for k, v := range p.StockBySize {
		m[k] = v
	}
	p.StockBySize = m
	return p
}

func (r *memProducts) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = copyProduct(p)
	return p, nil
}

func (r *memProducts) FindByID(ctx context.Context, id string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, apperror.NewNotFoundError("Produto não encontrado.")
	}
	return copyProduct(p), nil
}

func (r *memProducts) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return nil, nil
}

func (r *memProducts) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items[p.ID].Version != p.Version {
		return domain.Product{}, apperror.NewConflictError("versão desatualizada")
	}
	p.Version++
	r.items[p.ID] = copyProduct(p)
	return copyProduct(p), nil
}

func (r *memProducts) Delete(ctx context.Context, id string) error { return nil }

func (r *memProducts) stockOf(id, size string) int {
	p, _ := r.FindByID(context.Background(), id)
	return p.StockBySize[size]
}

type memOrders struct {
	mu        sync.Mutex
	items     map[string]domain.Order
	failSave  error
	failWrite error
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func (r *memOrders) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return domain.Order{}, r.failSave
	}
	o.Version = 1
	r.items[o.ID] = copyOrder(o)
	return copyOrder(o), nil
}

func (r *memOrders) FindByID(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return domain.Order{}, apperror.NewNotFoundError("Pedido não encontrado.")
	}
	return copyOrder(o), nil
}

func (r *memOrders) FindAll(ctx context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.items {
		out = append(out, copyOrder(o))
	}
	return out, nil
}

func (r *memOrders) Update(ctx context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return domain.Order{}, r.failWrite
	}
	if r.items[o.ID].Version != o.Version {
		return domain.Order{}, apperror.NewConflictError("pedido alterado por outra operação")
	}
	o.Version++
	r.items[o.ID] = copyOrder(o)
	return copyOrder(o), nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fixture struct {
	products  *memProducts
	orders    *memOrders
	publisher *MockPublisher
	svc       *orderservice.Service
}

func newFixture(products ...domain.Product) *fixture {
	f := &fixture{
		products:  &memProducts{items: map[string]domain.Product{}},
		orders:    &memOrders{items: map[string]domain.Order{}},
		publisher: new(MockPublisher),
	}
	for _, p := range products {
		p.Version = 1
		p.RecomputeStock()
		f.products.items[p.ID] = copyProduct(p)
	}
	f.publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil)

	stock := stockservice.NewService(f.products, keylock.New(), logger.NewNop(), stockservice.WithRetry(2, time.Millisecond))
	f.svc = orderservice.NewService(f.orders, stock, f.products, f.publisher, logger.NewNop())
	return f
}

func product(id string, stock map[string]int) domain.Product {
	p := domain.Product{ID: id, Name: "Camisa " + id, Price: 100, StockBySize: stock}
	for s := range stock {
		p.Sizes = append(p.Sizes, s)
	}
	return p
}

func pendingOrder(items ...domain.OrderItem) domain.Order {
	return domain.Order{CustomerName: "Ana", CustomerPhone: "(75) 98128-4738", Items: items}
}

// --- Testes ---

func TestLifecycle_ConfirmThenPartialReturns(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 8}))
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 5, UnitPrice: 100}), false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 8, f.products.stockOf("p", "M"), "pedido pendente não baixa estoque")

	order, err = f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, 3, f.products.stockOf("p", "M"))

	order, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPartiallyReturned, order.Status)
	assert.Equal(t, 2, order.Items[0].ReturnedQuantity)
	assert.Equal(t, 5, f.products.stockOf("p", "M"))

	order, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, order.Status)
	assert.Equal(t, 5, order.Items[0].ReturnedQuantity)
	assert.Equal(t, 8, f.products.stockOf("p", "M"))
	assert.Equal(t, 500.0, order.TotalValue, "total histórico preservado")

	_, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: 1})
	assert.IsType(t, &apperror.InvalidTransitionError{}, err)
}

func TestReturnPartial_ClampsToOutstanding(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 4}))
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 2, UnitPrice: 10}), true)
	require.NoError(t, err)

	order, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: 9})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, order.Status)
	assert.Equal(t, 2, order.Items[0].ReturnedQuantity)
	assert.Equal(t, 4, f.products.stockOf("p", "M"))
}

func TestReturnPartial_Fail_BadInput(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 4}))
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 2, UnitPrice: 10}), true)
	require.NoError(t, err)

	_, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{3: 1})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{})
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, 2, f.products.stockOf("p", "M"))
}

func TestReturnPartial_ZeroQuantitiesStillMoveStatus(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 4}))
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 2, UnitPrice: 10}), true)
	require.NoError(t, err)

	order, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: 0})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPartiallyReturned, order.Status)
	assert.Equal(t, 0, order.Items[0].ReturnedQuantity)
	assert.Equal(t, 2, f.products.stockOf("p", "M"), "nada volta ao estoque")

	order, err = f.svc.ReturnPartial(ctx, order.ID, map[int]int{0: -3})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPartiallyReturned, order.Status)
}

func TestConfirm_UndifferentiatedStockIsKept(t *testing.T) {
	legacy := domain.Product{ID: "bone", Name: "Boné", Price: 50, Sizes: []string{"U"}, Stock: 10}
	multi := domain.Product{ID: "camisa", Name: "Camisa", Price: 100, Sizes: []string{"P", "M"}, Stock: 6}
	f := newFixture(legacy, multi)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, pendingOrder(
		domain.OrderItem{ProductID: "bone", Size: "U", Quantity: 1, UnitPrice: 50},
		domain.OrderItem{ProductID: "camisa", Size: "M", Quantity: 2, UnitPrice: 100},
	), false)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	bone, _ := f.products.FindByID(ctx, "bone")
	assert.Equal(t, 9, bone.Stock)
	assert.Equal(t, map[string]int{"U": 9}, bone.StockBySize, "total migra para o tamanho único")

	camisa, _ := f.products.FindByID(ctx, "camisa")
	assert.Equal(t, 4, camisa.Stock)
	assert.Empty(t, camisa.StockBySize)

	_, err = f.svc.ReturnAll(ctx, order.ID)
	require.NoError(t, err)
	bone, _ = f.products.FindByID(ctx, "bone")
	camisa, _ = f.products.FindByID(ctx, "camisa")
	assert.Equal(t, 10, bone.Stock)
	assert.Equal(t, 6, camisa.Stock)
}

func TestCreateOrder_Debit_UndifferentiatedStockIsChecked(t *testing.T) {
	f := newFixture(domain.Product{ID: "meia", Name: "Meia", Price: 20, Sizes: []string{"P", "M"}, Stock: 3})
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "meia", Size: "P", Quantity: 4, UnitPrice: 20}), true)
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	_, err = f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "meia", Size: "P", Quantity: 3, UnitPrice: 20}), true)
	require.NoError(t, err)
	meia, _ := f.products.FindByID(ctx, "meia")
	assert.Equal(t, 0, meia.Stock)
}

func TestReturnAll_RoundTripRestoresStock(t *testing.T) {
	f := newFixture(
		product("a", map[string]int{"P": 3, "M": 2}),
		product("b", map[string]int{"G": 1}),
	)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(
		domain.OrderItem{ProductID: "a", Size: "P", Quantity: 3, UnitPrice: 10},
		domain.OrderItem{ProductID: "b", Size: "G", Quantity: 1, UnitPrice: 10},
	), false)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.products.stockOf("a", "P"))

	order, err = f.svc.ReturnAll(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, order.Status)
	assert.Equal(t, 3, f.products.stockOf("a", "P"))
	assert.Equal(t, 2, f.products.stockOf("a", "M"))
	assert.Equal(t, 1, f.products.stockOf("b", "G"))
}

func TestCancel_NoStockEffect(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 2}))
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 2, UnitPrice: 10}), false)
	require.NoError(t, err)

	order, err = f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, 2, f.products.stockOf("p", "M"))

	_, err = f.svc.Confirm(ctx, order.ID)
	assert.IsType(t, &apperror.InvalidTransitionError{}, err)
	assert.Equal(t, 2, f.products.stockOf("p", "M"))
}

func TestConfirm_Fail_StatusWriteRevertsStock(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 5}))
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 5, UnitPrice: 10}), false)
	require.NoError(t, err)

	f.orders.failWrite = apperror.NewDBError("Falha ao atualizar pedido.", errors.New("conexão perdida"))
	_, err = f.svc.Confirm(ctx, order.ID)

	assert.IsType(t, &apperror.InternalError{}, err)
	assert.Equal(t, 5, f.products.stockOf("p", "M"))
	stored, _ := f.orders.FindByID(ctx, order.ID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestCreateOrder_Fail_SaveRevertsDebit(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 5}))
	f.orders.failSave = apperror.NewDBError("Falha ao salvar pedido.", errors.New("disco cheio"))

	_, err := f.svc.CreateOrder(context.Background(), pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 2, UnitPrice: 10}), true)

	assert.Error(t, err)
	assert.Equal(t, 5, f.products.stockOf("p", "M"))
}

func TestAdminSubmit_ConcurrentReductionRollsBack(t *testing.T) {
	f := newFixture(
		product("a", map[string]int{"M": 4}),
		product("b", map[string]int{"G": 3}),
	)
	ctx := context.Background()

	// Linhas montadas com o estoque visto no momento
	b := orderbuilder.New()
	pa, _ := f.products.FindByID(ctx, "a")
	pb, _ := f.products.FindByID(ctx, "b")
	require.NoError(t, b.AddLine(pa, "M", 2))
	require.NoError(t, b.AddLine(pb, "G", 3))

	// Outra venda reduz o estoque de b antes do envio
	pb.StockBySize["G"] = 1
	_, err := f.products.Update(ctx, pb)
	require.NoError(t, err)

	_, err = b.Submit(ctx, f.svc, true)

	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Line)
	assert.Equal(t, 4, f.products.stockOf("a", "M"), "baixa da linha 1 desfeita")
	assert.Equal(t, 1, f.products.stockOf("b", "G"))
	all, _ := f.orders.FindAll(ctx)
	assert.Empty(t, all)
}

func TestCreateAdminOrder_WalkInCompleted(t *testing.T) {
	f := newFixture(product("a", map[string]int{"M": 4}))
	ctx := context.Background()

	order, err := f.svc.CreateAdminOrder(ctx, orderservice.AdminOrderRequest{
		Lines:      []orderservice.AdminOrderLine{{ProductID: "a", Size: "M", Quantity: 3}},
		DebitStock: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.Equal(t, domain.WalkInCustomerName, order.CustomerName)
	assert.Equal(t, domain.WalkInCustomerPhone, order.CustomerPhone)
	assert.Equal(t, 300.0, order.TotalValue)
	assert.Equal(t, 1, f.products.stockOf("a", "M"))
	f.publisher.AssertCalled(t, "PublishOrderEvent", mock.Anything, mock.MatchedBy(func(e domain.OrderEvent) bool {
		return e.Type == "created" && e.OrderID == order.ID
	}))
}

func TestCreateAdminOrder_Fail_OverStock(t *testing.T) {
	f := newFixture(product("a", map[string]int{"M": 1}))

	_, err := f.svc.CreateAdminOrder(context.Background(), orderservice.AdminOrderRequest{
		Lines: []orderservice.AdminOrderLine{{ProductID: "a", Size: "M", Quantity: 2}},
	})

	assert.IsType(t, &apperror.InsufficientStockError{}, err)
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	f := newFixture(product("p", map[string]int{"M": 1}))
	f.publisher.ExpectedCalls = nil
	f.publisher.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(errors.New("redis fora do ar"))

	order, err := f.svc.CreateOrder(context.Background(), pendingOrder(domain.OrderItem{ProductID: "p", Size: "M", Quantity: 1, UnitPrice: 10}), false)

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

func TestListOrders_SequenceAndFilter(t *testing.T) {
	f := newFixture()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.orders.items["o1"] = domain.Order{ID: "o1", Status: domain.OrderStatusCompleted, CreatedAt: base}
	f.orders.items["o2"] = domain.Order{ID: "o2", Status: domain.OrderStatusPending, CreatedAt: base.Add(time.Hour)}
	f.orders.items["o3"] = domain.Order{ID: "o3", Status: domain.OrderStatusCompleted, CreatedAt: base.Add(2 * time.Hour)}

	all, err := f.svc.ListOrders(context.Background(), domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "o3", all[0].ID)
	assert.Equal(t, 3, all[0].Sequence)

	completed, err := f.svc.ListOrders(context.Background(), domain.OrderFilter{Status: domain.OrderStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, []int{3, 1}, []int{completed[0].Sequence, completed[1].Sequence})

	_, err = f.svc.ListOrders(context.Background(), domain.OrderFilter{Status: "shipped"})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestGetOrder_Fail_InvalidID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetOrder(context.Background(), "nao-e-uuid")

	assert.IsType(t, &apperror.ValidationError{}, err)
}
