// admin.go — сервис управления ссылками: просмотр, смена статуса, удаление.
//
// Чтение одиночной записи идёт через LRU-кэш; списки и журнал доступа
// всегда читаются из хранилища.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Secure-File-Sharing-System/SIF/internal/clock"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/contentstore"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

// Admin — сервис управления ссылками.
type Admin struct {
	links   linkstore.Store
	content contentstore.Store
	cache   *LinkCache
	clk     clock.Clock
	logger  *slog.Logger
}

// NewAdmin создаёт сервис управления.
func NewAdmin(
	links linkstore.Store,
	content contentstore.Store,
	cache *LinkCache,
	clk clock.Clock,
	logger *slog.Logger,
) *Admin {
	return &Admin{
		links:   links,
		content: content,
		cache:   cache,
		clk:     clk,
		logger:  logger.With(slog.String("component", "admin")),
	}
}

// List возвращает страницу ссылок и общее количество.
func (a *Admin) List(ctx context.Context, filters linkstore.ListFilters, limit, offset int) ([]*model.ShareLink, int, error) {
	links, total, err := a.links.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка ссылок: %w", err)
	}
	return links, total, nil
}

// GetLink возвращает запись ссылки. Одиночные чтения кэшируются.
func (a *Admin) GetLink(ctx context.Context, linkID string) (*model.ShareLink, error) {
	if link, ok := a.cache.Get(linkID); ok {
		return link, nil
	}

	link, err := a.links.Get(ctx, linkID)
	if err != nil {
		if errors.Is(err, linkstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения ссылки %s: %w", linkID, err)
	}

	a.cache.Set(linkID, link)
	return link, nil
}

// AccessLog возвращает журнал доступа к ссылке.
func (a *Admin) AccessLog(ctx context.Context, linkID string) ([]model.AccessEntry, error) {
	if _, err := a.links.Get(ctx, linkID); err != nil {
		if errors.Is(err, linkstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения ссылки %s: %w", linkID, err)
	}

	entries, err := a.links.AccessLog(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала доступа %s: %w", linkID, err)
	}
	return entries, nil
}

// SetStatus меняет статус ссылки вручную.
//
// Допустимые переходы: active -> disabled, disabled -> active.
// Реактивация истекшей ссылки запрещена: истечение необратимо.
func (a *Admin) SetStatus(ctx context.Context, linkID string, status model.LinkStatus) (*model.ShareLink, error) {
	if !model.ValidStatus(string(status)) {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrInvalidTransition, status)
	}

	link, err := a.links.Get(ctx, linkID)
	if err != nil {
		if errors.Is(err, linkstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения ссылки %s: %w", linkID, err)
	}

	// Просроченная по времени или квоте ссылка не реактивируется.
	if status == model.StatusActive {
		if link.Status == model.StatusExpired || link.IsExpired(a.clk.Now()) || link.QuotaExhausted() {
			return nil, fmt.Errorf("%w: истекшая ссылка не может стать active", ErrInvalidTransition)
		}
	}
	if status == model.StatusExpired && link.Status != model.StatusExpired {
		return nil, fmt.Errorf("%w: статус expired выставляется только системой", ErrInvalidTransition)
	}

	if link.Status != status {
		if err := a.links.SetStatus(ctx, linkID, status); err != nil {
			if errors.Is(err, linkstore.ErrNotFound) {
				return nil, ErrNotFound
			}
			// Ссылка истекла между чтением и записью: хранилище
			// не даёт переоткрыть терминальный статус.
			if errors.Is(err, linkstore.ErrConflict) {
				return nil, fmt.Errorf("%w: истекшая ссылка не может стать active", ErrInvalidTransition)
			}
			return nil, fmt.Errorf("ошибка смены статуса %s: %w", linkID, err)
		}
	}

	a.cache.Delete(linkID)

	link.Status = status
	a.logger.Info("статус ссылки изменён",
		slog.String("link_id", linkID),
		slog.String("status", string(status)),
	)
	return link, nil
}

// Delete удаляет ссылку вместе с журналом доступа и содержимым.
// Сбой удаления содержимого не откатывает удаление записи: объект
// логируется и остаётся на ручную очистку.
func (a *Admin) Delete(ctx context.Context, linkID string) error {
	link, err := a.links.Get(ctx, linkID)
	if err != nil {
		if errors.Is(err, linkstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка чтения ссылки %s: %w", linkID, err)
	}

	if err := a.links.Delete(ctx, linkID); err != nil {
		if errors.Is(err, linkstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления ссылки %s: %w", linkID, err)
	}

	a.cache.Delete(linkID)

	if err := a.content.Delete(ctx, link.StorageKey); err != nil {
		a.logger.Error("ошибка удаления содержимого ссылки",
			slog.String("link_id", linkID),
			slog.String("storage_key", link.StorageKey),
			slog.String("error", err.Error()),
		)
	}

	a.logger.Info("ссылка удалена",
		slog.String("link_id", linkID),
		slog.String("display_name", link.DisplayName),
	)
	return nil
}
