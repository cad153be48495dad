// issue.go — сервис выдачи share-ссылок.
//
// Issuer принимает метаданные загруженного содержимого и параметры ссылки,
// нормализует срок действия и квоту скачиваний, хеширует пароль и
// сохраняет запись в хранилище.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Secure-File-Sharing-System/SIF/internal/clock"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/expiry"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

// Prometheus метрики выдачи ссылок
var (
	// linksIssuedTotal — количество выданных ссылок.
	linksIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sif_links_issued_total",
		Help: "Общее количество выданных share-ссылок",
	}, []string{"protected"})

	// expiryFallbackTotal — количество ссылок, выданных с expiry по умолчанию
	// из-за нераспознанного значения срока действия.
	expiryFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_expiry_fallback_total",
		Help: "Количество ссылок с expiry по умолчанию из-за нераспознанного значения",
	})
)

// IssueRequest — параметры выдачи новой ссылки.
type IssueRequest struct {
	// StorageKey — ключ уже сохранённого содержимого
	StorageKey string
	// DisplayName — имя файла, показываемое при скачивании
	DisplayName string
	// ContentType — MIME-тип содержимого
	ContentType string
	// SizeBytes — размер содержимого в байтах
	SizeBytes int64
	// ExpirySpec — срок действия: RFC3339, Go duration, "7d" или пустая строка
	ExpirySpec string
	// Password — пароль ссылки, пустая строка означает незащищённую ссылку
	Password string
	// MaxDownloads — квота скачиваний, 0 означает значение по умолчанию
	MaxDownloads int
}

// Issuer — сервис выдачи ссылок.
type Issuer struct {
	store               linkstore.Store
	clk                 clock.Clock
	defaultExpiry       time.Duration
	defaultMaxDownloads int
	logger              *slog.Logger
}

// NewIssuer создаёт сервис выдачи ссылок.
func NewIssuer(
	store linkstore.Store,
	clk clock.Clock,
	defaultExpiry time.Duration,
	defaultMaxDownloads int,
	logger *slog.Logger,
) *Issuer {
	return &Issuer{
		store:               store,
		clk:                 clk,
		defaultExpiry:       defaultExpiry,
		defaultMaxDownloads: defaultMaxDownloads,
		logger:              logger.With(slog.String("component", "issuer")),
	}
}

// Issue создаёт новую share-ссылку.
//
// Нераспознанный ExpirySpec не является ошибкой: применяется срок по
// умолчанию, событие логируется как WARN. Срок в прошлом допустим —
// такая ссылка рождается истекшей и будет подобрана sweeper-ом.
func (s *Issuer) Issue(ctx context.Context, req IssueRequest) (*model.ShareLink, error) {
	now := s.clk.Now()

	expiresAt, fellBack := expiry.Resolve(req.ExpirySpec, now, s.defaultExpiry)
	if fellBack {
		expiryFallbackTotal.Inc()
		s.logger.Warn("нераспознанный срок действия, применён срок по умолчанию",
			slog.String("expiry_spec", req.ExpirySpec),
			slog.Duration("default", s.defaultExpiry),
		)
	}

	maxDownloads := req.MaxDownloads
	if maxDownloads <= 0 {
		maxDownloads = s.defaultMaxDownloads
	}

	var passwordHash *string
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
		}
		passwordHash = &hash
	}

	link := &model.ShareLink{
		LinkID:        uuid.New().String(),
		StorageKey:    req.StorageKey,
		DisplayName:   req.DisplayName,
		ContentType:   req.ContentType,
		SizeBytes:     req.SizeBytes,
		PasswordHash:  passwordHash,
		DownloadCount: 0,
		MaxDownloads:  maxDownloads,
		Status:        model.StatusActive,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}

	if err := s.store.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("ошибка сохранения ссылки: %w", err)
	}

	linksIssuedTotal.WithLabelValues(protectedLabel(passwordHash != nil)).Inc()

	s.logger.Info("ссылка выдана",
		slog.String("link_id", link.LinkID),
		slog.String("display_name", link.DisplayName),
		slog.Time("expires_at", link.ExpiresAt),
		slog.Int("max_downloads", link.MaxDownloads),
		slog.Bool("protected", passwordHash != nil),
	)

	return link, nil
}

func protectedLabel(protected bool) string {
	if protected {
		return "true"
	}
	return "false"
}
