// Точка входа сервиса share-ссылок: выдача, погашение и очистка
// time-bound ссылок на скачивание файлов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Secure-File-Sharing-System/SIF/internal/api/handlers"
	"github.com/Secure-File-Sharing-System/SIF/internal/api/middleware"
	"github.com/Secure-File-Sharing-System/SIF/internal/clock"
	"github.com/Secure-File-Sharing-System/SIF/internal/config"
	"github.com/Secure-File-Sharing-System/SIF/internal/database"
	"github.com/Secure-File-Sharing-System/SIF/internal/server"
	"github.com/Secure-File-Sharing-System/SIF/internal/service"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/contentstore"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис ссылок запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_backend", cfg.StoreBackend),
		slog.String("content_backend", cfg.ContentBackend),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Хранилище записей ссылок
	var links linkstore.Store
	var storeChecker handlers.ReadinessChecker

	switch cfg.StoreBackend {
	case "postgres":
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
			os.Exit(1)
		}
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		links = linkstore.NewPostgresStore(pool)
		storeChecker = database.NewReadinessChecker(pool)
	case "memory":
		links = linkstore.NewMemoryStore()
	default:
		logger.Error("Неизвестный backend хранилища записей",
			slog.String("store_backend", cfg.StoreBackend),
		)
		os.Exit(1)
	}
	defer links.Close()

	// 2. Хранилище содержимого
	var content contentstore.Store

	switch cfg.ContentBackend {
	case "s3":
		content, err = contentstore.NewS3Store(ctx, contentstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	case "disk":
		content, err = contentstore.NewDiskStore(cfg.DataDir)
	default:
		logger.Error("Неизвестный backend содержимого",
			slog.String("content_backend", cfg.ContentBackend),
		)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("Ошибка инициализации хранилища содержимого", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Сервисы
	clk := clock.System{}
	cache := service.NewLinkCache(cfg.CacheSize, cfg.CacheTTL)

	issuer := service.NewIssuer(links, clk, cfg.DefaultExpiry, cfg.DefaultMaxDownloads, logger)
	redeemer := service.NewRedeemer(links, content, clk, logger)
	admin := service.NewAdmin(links, content, cache, clk, logger)

	// 4. Фоновая очистка истекших ссылок
	sweeper := service.NewSweeper(links, content, clk, cfg.SweepInterval, cfg.AutoDeleteContent, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 5. HTTP-сервер
	linksHandler := handlers.NewLinksHandler(issuer, redeemer, admin, content, cfg.MaxFileSize, logger)
	healthHandler := handlers.NewHealthHandler(storeChecker)

	srv := server.New(cfg, logger, linksHandler, healthHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
