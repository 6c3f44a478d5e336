package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"gostore/internal/api/cart"
	"gostore/internal/api/order"
	"gostore/internal/api/product"
	"gostore/internal/api/registry"
	"gostore/internal/api/user"
	"gostore/internal/domain"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/logger"
	"gostore/internal/pkg/middleware"
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Product  *product.Handler
	Cart     *cart.Handler
	Order    *order.Handler
	Registry *registry.Handler
	User     *user.Handler
}

// Options configura os middlewares globais.
type Options struct {
	Tokens         middleware.TokenService
	Cache          cache.Client // nil desliga o rate limit
	RateLimit      int
	RateLimitEvery time.Duration
	Logger         logger.Logger
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(opts.Tokens)
	// Equipe (admin e staff) opera catálogo e pedidos; registros e usuários são só do admin.
	staff := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleStaff)(next))
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.PermissionMiddleware(domain.RoleAdmin)(next))
	}

	// --- 1. Health Check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- 2. Vitrine (pública) ---
	mux.HandleFunc("GET /v1/products", h.Product.ListProductsHandler)
	mux.HandleFunc("GET /v1/products/{id}", h.Product.GetProductHandler)
	mux.HandleFunc("POST /v1/login", h.User.LoginUserHandler)

	mux.HandleFunc("POST /v1/carts", h.Cart.CreateCartHandler)
	mux.HandleFunc("GET /v1/carts/{id}", h.Cart.GetCartHandler)
	mux.HandleFunc("POST /v1/carts/{id}/items", h.Cart.AddItemHandler)
	mux.HandleFunc("PUT /v1/carts/{id}/items", h.Cart.UpdateItemHandler)
	mux.HandleFunc("DELETE /v1/carts/{id}/items", h.Cart.RemoveItemHandler)
	mux.HandleFunc("POST /v1/carts/{id}/checkout", h.Cart.CheckoutHandler)

	// --- 3. Console administrativo ---
	mux.HandleFunc("POST /v1/admin/products", staff(h.Product.CreateProductHandler))
	mux.HandleFunc("GET /v1/admin/products", staff(h.Product.ListProductsHandler))
	mux.HandleFunc("GET /v1/admin/products/{id}", staff(h.Product.GetProductHandler))
	mux.HandleFunc("PATCH /v1/admin/products/{id}", staff(h.Product.UpdateProductHandler))
	mux.HandleFunc("DELETE /v1/admin/products/{id}", staff(h.Product.DeleteProductHandler))
	mux.HandleFunc("PUT /v1/admin/products/{id}/stock", staff(h.Product.SetStockHandler))
	mux.HandleFunc("POST /v1/admin/products/{id}/sizes", staff(h.Product.AddSizeHandler))
	mux.HandleFunc("DELETE /v1/admin/products/{id}/sizes", staff(h.Product.RemoveSizeHandler))
	mux.HandleFunc("POST /v1/admin/products/{id}/image", staff(h.Product.UploadImageHandler))

	mux.HandleFunc("POST /v1/admin/orders", staff(h.Order.CreateOrderHandler))
	mux.HandleFunc("GET /v1/admin/orders", staff(h.Order.ListOrdersHandler))
	mux.HandleFunc("GET /v1/admin/orders/stream", staff(h.Order.StreamHandler))
	mux.HandleFunc("GET /v1/admin/orders/{id}", staff(h.Order.GetOrderHandler))
	mux.HandleFunc("POST /v1/admin/orders/{id}/confirm", staff(h.Order.ConfirmHandler))
	mux.HandleFunc("POST /v1/admin/orders/{id}/cancel", staff(h.Order.CancelHandler))
	mux.HandleFunc("POST /v1/admin/orders/{id}/return", staff(h.Order.ReturnHandler))
	mux.HandleFunc("POST /v1/admin/orders/{id}/partial-return", staff(h.Order.PartialReturnHandler))

	mux.HandleFunc("GET /v1/admin/registries/{kind}", staff(h.Registry.ListHandler))
	mux.HandleFunc("POST /v1/admin/registries/{kind}", admin(h.Registry.AddHandler))
	mux.HandleFunc("DELETE /v1/admin/registries/{kind}/{label}", admin(h.Registry.RemoveHandler))

	mux.HandleFunc("POST /v1/admin/users", admin(h.User.RegisterUserHandler))

	// --- 4. Middlewares globais ---
	var handler http.Handler = mux
	if opts.Cache != nil && opts.RateLimit > 0 {
		handler = middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RateLimitEvery, opts.Logger)(handler)
	}
	return handler
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
