// redeem.go — контроллер погашения share-ссылок.
//
// Redeem выполняет строго упорядоченную цепочку проверок (существование,
// статус, срок, квота, пароль), после чего атомарно списывает попытку
// скачивания через условное обновление счётчика и открывает содержимое.
// Конкурентные погашения разрешаются повтором с перечитыванием записи.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Secure-File-Sharing-System/SIF/internal/clock"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/contentstore"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

// maxRedeemRetries — максимум повторов условного обновления при конкуренции.
const maxRedeemRetries = 3

// Prometheus метрики погашения
var (
	// redemptionsTotal — количество попыток погашения по исходам.
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sif_redemptions_total",
		Help: "Общее количество попыток погашения ссылок по исходам",
	}, []string{"outcome"})

	// redeemConflictsTotal — количество конфликтов условного обновления.
	redeemConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_redeem_conflicts_total",
		Help: "Количество конфликтов при условном обновлении счётчика скачиваний",
	})
)

// Redemption — результат успешного погашения: метаданные ссылки и
// открытое на чтение содержимое. Вызывающий обязан закрыть Content.
type Redemption struct {
	Link    *model.ShareLink
	Content io.ReadCloser
}

// Redeemer — контроллер погашения ссылок.
type Redeemer struct {
	links   linkstore.Store
	content contentstore.Store
	clk     clock.Clock
	logger  *slog.Logger
}

// NewRedeemer создаёт контроллер погашения.
func NewRedeemer(
	links linkstore.Store,
	content contentstore.Store,
	clk clock.Clock,
	logger *slog.Logger,
) *Redeemer {
	return &Redeemer{
		links:   links,
		content: content,
		clk:     clk,
		logger:  logger.With(slog.String("component", "redeemer")),
	}
}

// Redeem выполняет погашение ссылки: проверки, атомарное списание попытки
// и открытие содержимого.
//
// Порядок проверок фиксирован: существование, срок действия, статус,
// квота, пароль. Первый сработавший отказ возвращается клиенту, проверки
// дальше по цепочке не выполняются и ничего о себе не раскрывают.
// Отказы Expired и QuotaExceeded дополнительно помечают запись как
// expired (best-effort: сбой пометки не меняет ответ клиенту).
func (r *Redeemer) Redeem(ctx context.Context, linkID, password string, access *model.AccessEntry) (*Redemption, error) {
	for attempt := 0; ; attempt++ {
		link, err := r.links.Get(ctx, linkID)
		if err != nil {
			if errors.Is(err, linkstore.ErrNotFound) {
				redemptionsTotal.WithLabelValues("not_found").Inc()
				return nil, &RedeemError{Reason: ReasonNotFound}
			}
			redemptionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("ошибка чтения ссылки %s: %w", linkID, err)
		}

		if rerr := r.check(ctx, link); rerr != nil {
			redemptionsTotal.WithLabelValues(string(rerr.Reason)).Inc()
			return nil, rerr
		}

		if !VerifyPassword(link.PasswordHash, password) {
			redemptionsTotal.WithLabelValues("unauthorized").Inc()
			return nil, &RedeemError{Reason: ReasonUnauthorized}
		}

		// Новый статус после списания: последняя попытка исчерпывает квоту.
		newStatus := model.StatusActive
		if link.DownloadCount+1 >= link.MaxDownloads {
			newStatus = model.StatusExpired
		}

		// Момент фиксации: хранилище ещё раз сверит срок по нему,
		// чтобы списание не прошло после истечения.
		now := r.clk.Now()
		if access != nil {
			access.LinkID = link.LinkID
			access.OccurredAt = now
		}

		err = r.links.ApplyRedemption(ctx, link.LinkID, link.DownloadCount, now, newStatus, access)
		if err == nil {
			return r.openContent(ctx, link, newStatus)
		}

		if errors.Is(err, linkstore.ErrConflict) {
			redeemConflictsTotal.Inc()
			if attempt < maxRedeemRetries {
				r.logger.Debug("конфликт при погашении, повтор",
					slog.String("link_id", linkID),
					slog.Int("attempt", attempt+1),
				)
				continue
			}
			redemptionsTotal.WithLabelValues("conflict").Inc()
			return nil, &RedeemError{Reason: ReasonConflict, Err: err}
		}

		if errors.Is(err, linkstore.ErrNotFound) {
			redemptionsTotal.WithLabelValues("not_found").Inc()
			return nil, &RedeemError{Reason: ReasonNotFound}
		}

		redemptionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ошибка списания попытки скачивания %s: %w", linkID, err)
	}
}

// check выполняет проверки срока, статуса и квоты. Возвращает nil,
// если ссылка пригодна к погашению.
func (r *Redeemer) check(ctx context.Context, link *model.ShareLink) *RedeemError {
	now := r.clk.Now()
	if link.IsExpired(now) {
		// Запись просрочена, но sweeper её ещё не пометил.
		// Истечение срока одностороннее и перекрывает disabled.
		if link.Status != model.StatusExpired {
			r.markExpired(ctx, link.LinkID)
		}
		return &RedeemError{Reason: ReasonExpired}
	}

	// Неактивный статус сообщается как есть: повторные запросы по
	// закрытой ссылке получают стабильный ответ.
	if link.Status != model.StatusActive {
		return &RedeemError{Reason: ReasonInactive, Status: link.Status}
	}

	if link.QuotaExhausted() {
		r.markExpired(ctx, link.LinkID)
		return &RedeemError{Reason: ReasonQuotaExceeded}
	}

	return nil
}

// markExpired помечает ссылку как expired. Сбой не влияет на исход
// погашения: sweeper довершит пометку при следующем проходе.
func (r *Redeemer) markExpired(ctx context.Context, linkID string) {
	if err := r.links.SetStatus(ctx, linkID, model.StatusExpired); err != nil {
		r.logger.Warn("не удалось пометить ссылку как expired",
			slog.String("link_id", linkID),
			slog.String("error", err.Error()),
		)
	}
}

// openContent открывает содержимое после успешного списания попытки.
// Отсутствие содержимого при живой записи — нарушение целостности.
func (r *Redeemer) openContent(ctx context.Context, link *model.ShareLink, newStatus model.LinkStatus) (*Redemption, error) {
	rc, err := r.content.Get(ctx, link.StorageKey)
	if err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			redemptionsTotal.WithLabelValues("integrity").Inc()
			r.logger.Error("содержимое ссылки отсутствует в хранилище",
				slog.String("link_id", link.LinkID),
				slog.String("storage_key", link.StorageKey),
			)
			return nil, &RedeemError{Reason: ReasonIntegrity, Err: err}
		}
		redemptionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ошибка открытия содержимого %s: %w", link.StorageKey, err)
	}

	// Возвращаем запись в состоянии после списания.
	redeemed := *link
	redeemed.DownloadCount++
	redeemed.Status = newStatus

	redemptionsTotal.WithLabelValues("success").Inc()

	r.logger.Info("ссылка погашена",
		slog.String("link_id", link.LinkID),
		slog.Int("download_count", redeemed.DownloadCount),
		slog.Int("max_downloads", redeemed.MaxDownloads),
	)

	return &Redemption{Link: &redeemed, Content: rc}, nil
}
