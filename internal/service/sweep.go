// sweep.go — сервис фоновой очистки истекших ссылок.
//
// Sweeper периодически находит active ссылки с истёкшим сроком действия
// и помечает их как expired. При включённом автоудалении дополнительно
// удаляет содержимое помеченных ссылок из хранилища.
//
// Запускается как горутина с периодическим тикером (SIF_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Secure-File-Sharing-System/SIF/internal/clock"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/contentstore"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

// Prometheus метрики sweeper-а
var (
	// sweepRunsTotal — количество запусков sweeper-а.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_sweep_runs_total",
		Help: "Общее количество запусков очистки истекших ссылок",
	})

	// sweepExpiredTotal — количество ссылок, помеченных как expired.
	sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_sweep_expired_total",
		Help: "Общее количество ссылок, помеченных как expired",
	})

	// sweepContentDeletedTotal — количество удалённых объектов содержимого.
	sweepContentDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_sweep_content_deleted_total",
		Help: "Общее количество объектов содержимого, удалённых при очистке",
	})

	// sweepDurationSeconds — длительность выполнения очистки.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sif_sweep_duration_seconds",
		Help:    "Длительность выполнения очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// ExpiredCount — количество ссылок, помеченных как expired
	ExpiredCount int
	// ContentDeleted — количество удалённых объектов содержимого
	ContentDeleted int
	// Errors — количество ошибок при обработке ссылок
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// Sweeper — сервис фоновой очистки истекших ссылок.
type Sweeper struct {
	links      linkstore.Store
	content    contentstore.Store
	clk        clock.Clock
	interval   time.Duration
	autoDelete bool
	logger     *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewSweeper создаёт сервис очистки.
func NewSweeper(
	links linkstore.Store,
	content contentstore.Store,
	clk clock.Clock,
	interval time.Duration,
	autoDelete bool,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		links:      links,
		content:    content,
		clk:        clk,
		interval:   interval,
		autoDelete: autoDelete,
		logger:     logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (sw *Sweeper) Start(ctx context.Context) {
	swCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel

	go sw.run(swCtx)

	sw.logger.Info("sweeper запущен",
		slog.String("interval", sw.interval.String()),
		slog.Bool("auto_delete_content", sw.autoDelete),
	)
}

// Stop останавливает фоновый процесс очистки.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.logger.Info("sweeper остановлен")
}

// run — основной цикл фоновой горутины.
func (sw *Sweeper) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	sw.RunOnce(ctx)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл очистки.
// Потокобезопасен и идемпотентен: повторный запуск над теми же данными
// ничего не меняет, потому что выборка берёт только active ссылки.
func (sw *Sweeper) RunOnce(ctx context.Context) *SweepResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	now := sw.clk.Now()

	expired, err := sw.links.ListExpired(ctx, now)
	if err != nil {
		sw.logger.Error("ошибка выборки истекших ссылок",
			slog.String("error", err.Error()),
		)
		result.Errors++
		return result
	}

	for _, link := range expired {
		if err := sw.links.SetStatus(ctx, link.LinkID, model.StatusExpired); err != nil {
			sw.logger.Error("ошибка пометки ссылки как expired",
				slog.String("link_id", link.LinkID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		result.ExpiredCount++

		sw.logger.Debug("ссылка помечена как expired",
			slog.String("link_id", link.LinkID),
			slog.Time("expires_at", link.ExpiresAt),
		)

		if sw.autoDelete {
			if err := sw.content.Delete(ctx, link.StorageKey); err != nil {
				// Повторной попытки не будет: ссылка уже не active.
				// Логируем для ручного вмешательства.
				sw.logger.Error("ошибка удаления содержимого истекшей ссылки",
					slog.String("link_id", link.LinkID),
					slog.String("storage_key", link.StorageKey),
					slog.String("error", err.Error()),
				)
				result.Errors++
				continue
			}
			result.ContentDeleted++
		}
	}

	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	sweepRunsTotal.Inc()
	sweepExpiredTotal.Add(float64(result.ExpiredCount))
	sweepContentDeletedTotal.Add(float64(result.ContentDeleted))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	if result.ExpiredCount > 0 || result.Errors > 0 {
		sw.logger.Info("очистка завершена",
			slog.Int("expired", result.ExpiredCount),
			slog.Int("content_deleted", result.ContentDeleted),
			slog.Int("errors", result.Errors),
			slog.Duration("duration", result.Duration),
		)
	}

	return result
}
