package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"gostore/config"
	"gostore/internal/pkg/cache"
	"gostore/internal/pkg/database"
	"gostore/internal/pkg/events"
	"gostore/internal/pkg/imagestore"
	"gostore/internal/pkg/keylock"
	"gostore/internal/pkg/logger"
	"gostore/internal/pkg/token"
	"gostore/internal/pkg/whatsapp"

	"gostore/internal/api/cart"
	"gostore/internal/api/order"
	"gostore/internal/api/product"
	"gostore/internal/api/registry"
	"gostore/internal/api/router"
	"gostore/internal/api/user"
	"gostore/internal/repository/cartrepo"
	"gostore/internal/repository/orderrepo"
	"gostore/internal/repository/productrepo"
	"gostore/internal/repository/registryrepo"
	"gostore/internal/repository/userrepo"
	"gostore/internal/service/cartservice"
	"gostore/internal/service/orderservice"
	"gostore/internal/service/productservice"
	"gostore/internal/service/registryservice"
	"gostore/internal/service/stockservice"
	"gostore/internal/service/userservice"
)

func main() {
	// 0. Variáveis de ambiente (.env é opcional; em contêiner vêm do sistema)
	if err := godotenv.Load(); err != nil {
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Logger
	cfg, err := config.LoadConfig()
	if err != nil {
		stdlog.Fatalf("❌ Erro de Configuração: %v", err)
	}
	log := logger.NewLogger(cfg.LogLevel)
	if s, ok := log.(interface{ Sync() error }); ok {
		defer s.Sync()
	}
	log.Info("⚡ Inicializando serviço GoStore...", map[string]interface{}{"env": cfg.Environment})

	// 2. Infraestrutura
	db, err := database.NewPostgresDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()

	rdb, err := cache.Connect(cfg.RedisAddr)
	if err != nil {
		log.Fatal("Falha ao conectar ao Redis.", err)
	}
	defer rdb.Close()
	cacheClient := cache.NewRedisClient(rdb)
	broker := events.NewRedisBroker(rdb, log)
	log.Info("Conexão Redis estabelecida.", map[string]interface{}{"addr": cfg.RedisAddr})

	var images productservice.ImageStore
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewClient(context.Background())
		if err != nil {
			log.Fatal("Falha ao criar cliente do Cloud Storage.", err)
		}
		defer gcs.Close()
		images = imagestore.NewGCSStore(gcs, cfg.GCSBucket)
		log.Info("Armazenamento de imagens habilitado.", map[string]interface{}{"bucket": cfg.GCSBucket})
	} else {
		log.Warn("GCS_BUCKET não definido; upload de imagens desabilitado.", nil)
	}

	// 3. Injeção de Dependências: Repository -> Service -> Handler
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTimeout, log)
	orderRepo := orderrepo.NewOrderRepository(db, cfg.DBTimeout, log)
	registryRepo := registryrepo.NewRegistryRepository(db, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	cartRepo := cartrepo.NewCartRepository(cacheClient, cfg.CartTTL, log)

	tokenSvc := token.NewService(token.Options{
		Secret: cfg.JWTSecretKey,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenExpiry,
	})
	stockSvc := stockservice.NewService(productRepo, keylock.New(), log)
	registrySvc := registryservice.NewService(registryRepo, log)
	productSvc := productservice.NewService(productRepo, stockSvc, registrySvc, images, log)
	orderSvc := orderservice.NewService(orderRepo, stockSvc, productRepo, broker, log)
	cartSvc := cartservice.NewService(cartRepo, productRepo, orderSvc, whatsapp.NewComposer(cfg.WhatsAppNumber, cfg.StoreName), log)
	userSvc := userservice.NewService(userRepo, tokenSvc, log)
	log.Debug("Serviços inicializados.", nil)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), cfg.DBTimeout)
	if err := userSvc.EnsureAdmin(bootCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("Falha ao garantir o administrador inicial.", err)
	}
	cancelBoot()

	handlers := router.Handlers{
		Product:  product.NewHandler(productSvc, log),
		Cart:     cart.NewHandler(cartSvc, log),
		Order:    order.NewHandler(orderSvc, broker, log),
		Registry: registry.NewHandler(registrySvc, log),
		User:     user.NewHandler(userSvc, log),
	}

	// 4. Roteador e Servidor
	r := router.NewRouter(handlers, router.Options{
		Tokens:         tokenSvc,
		Cache:          cacheClient,
		RateLimit:      cfg.RateLimitMaxRequests,
		RateLimitEvery: cfg.RateLimitPeriod,
		Logger:         log,
	})

	// WriteTimeout fica zerado por causa do stream SSE de pedidos.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor GoStore ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
