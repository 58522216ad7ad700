package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/grocerly/storefront/internal/cart"
	"github.com/grocerly/storefront/internal/cart/cache"
	cartrepo "github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/catalog"
	"github.com/grocerly/storefront/internal/coupon"
	"github.com/grocerly/storefront/internal/httpapi"
	"github.com/grocerly/storefront/internal/order"
	orderrepo "github.com/grocerly/storefront/internal/order/repository"
	"github.com/grocerly/storefront/internal/predict"
	"github.com/grocerly/storefront/internal/publisher"
	"github.com/grocerly/storefront/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.New(getEnv("APP_ENV", "dev"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()

	// Cart and coupon storage.
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, mongoURI, getEnv("MONGO_DB_NAME", "storefront"))
	if err != nil {
		logg.Fatal("failed to connect to MongoDB", "err", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	cartRepo := cartrepo.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		logg.Fatal("failed to create cart indexes", "err", err)
	}
	logg.Info("connected to MongoDB", "uri", mongoURI)

	// Cart read cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logg.Fatal("redis connection failed", "err", err)
	}
	cartCache := cache.NewRedisCache(redisClient)

	// Order storage.
	cred := &orderrepo.Credentials{
		Host:              getEnv("POSTGRES_HOST", "localhost"),
		Port:              getEnvInt("POSTGRES_PORT", 5432),
		User:              getEnv("POSTGRES_USER", "storefront"),
		Password:          getEnv("POSTGRES_PASSWORD", "storefront"),
		DBName:            getEnv("POSTGRES_DB", "storefront"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),
	}
	orderRepo, err := orderrepo.NewRepository(cred)
	if err != nil {
		logg.Fatal("failed to connect to postgres", "err", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(cred); err != nil {
		logg.Fatal("failed to run migrations", "err", err)
	}
	logg.Info("connected to postgres", "host", cred.Host)

	// Collaborators. The demo binary runs against an in-memory catalog, a
	// static predictor and an approve-all payment authorizer; production
	// deployments swap in real clients here.
	memCatalog := catalog.NewMemoryCatalog()
	seedCatalog(memCatalog)
	cat := catalog.NewBreakerCatalog(memCatalog, logg)

	validator := catalog.NewValidator(cat, 3*time.Second)
	evaluator := coupon.NewEvaluator(coupon.NewMongoStore(mongoDB), 3*time.Second)
	predictions := predict.NewService(predict.NewStaticClient(), 3*time.Second, logg)

	cartService := cart.NewService(cartRepo, cartCache, cat, evaluator, logg)
	engine := order.NewEngine(cartService, cartRepo, validator, orderRepo, order.ApproveAllAuthorizer{}, logg)

	// Outbox -> Kafka.
	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(orderRepo, logg, getEnv("KAFKA_BROKERS", "localhost:9092"))
	go poller.Run(pollerCtx)

	cartHandler := httpapi.NewCartHandler(cartService, validator, predictions)
	orderHandler := httpapi.NewOrderHandler(engine)
	router := httpapi.NewRouter(cartHandler, orderHandler, logg)

	server := &http.Server{
		Addr:         ":" + getEnv("HTTP_PORT", "8080"),
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logg.Info("storefront listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down storefront")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown failed", "err", err)
	}
	logg.Info("storefront stopped")
}

func seedCatalog(c *catalog.MemoryCatalog) {
	c.SetProduct("milk-1l", "Whole Milk 1L", 189, 120)
	c.SetProduct("bread-sourdough", "Sourdough Loaf", 449, 40)
	c.SetProduct("eggs-dozen", "Free Range Eggs (12)", 379, 80)
	c.SetProduct("butter-250g", "Butter 250g", 329, 60)
	c.SetProduct("apples-1kg", "Gala Apples 1kg", 259, 200)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
