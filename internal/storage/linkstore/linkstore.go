// Пакет linkstore — хранилище записей ShareLink.
// Единственный компонент, которому разрешено мутировать запись ссылки.
// Две реализации: in-memory (standalone, тесты) и PostgreSQL (pgx).
//
// Гарантия конкурентности: ApplyRedemption выполняет проверку квоты
// и инкремент счётчика как одну атомарную операцию (per-key мьютекс
// в memory-реализации, условный UPDATE в postgres). Конфликт
// конкурентного обновления возвращается как ErrConflict, retry —
// ответственность вызывающего кода.
package linkstore

import (
	"context"
	"errors"
	"time"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// Ошибки хранилища записей.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конкурентное обновление: ожидаемое состояние записи изменилось.
	ErrConflict = errors.New("конфликт конкурентного обновления")
)

// ListFilters — фильтры для списка ссылок.
type ListFilters struct {
	// Status — фильтр по статусу (nil = без фильтра)
	Status *model.LinkStatus
}

// Store — интерфейс хранилища записей ShareLink.
type Store interface {
	// Create сохраняет новую запись. Дубликат LinkID — ошибка.
	Create(ctx context.Context, link *model.ShareLink) error

	// Get возвращает запись по LinkID или ErrNotFound.
	Get(ctx context.Context, linkID string) (*model.ShareLink, error)

	// List возвращает пагинированный список записей с фильтрацией
	// и общее количество (с учётом фильтра). Новые первые.
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]*model.ShareLink, int, error)

	// ListExpired возвращает активные записи с истёкшим сроком
	// (status == active AND expiresAt <= now). Используется свипером.
	ListExpired(ctx context.Context, now time.Time) ([]*model.ShareLink, error)

	// SetStatus обновляет статус записи. ErrNotFound, если записи нет.
	// Статус expired терминален: попытка сменить его на другой
	// возвращает ErrConflict, не трогая запись.
	SetStatus(ctx context.Context, linkID string, status model.LinkStatus) error

	// ApplyRedemption атомарно фиксирует успешное скачивание:
	// проверяет, что запись активна, не истекла к моменту now и
	// downloadCount == expectedCount, инкрементирует счётчик,
	// устанавливает newStatus и добавляет запись в журнал доступа —
	// всё как одна операция.
	// Возвращает ErrConflict, если состояние записи изменилось
	// между чтением и записью либо срок истёк, ErrNotFound, если
	// записи нет.
	// access == nil допустим: скачивание фиксируется без записи в журнал.
	ApplyRedemption(ctx context.Context, linkID string, expectedCount int, now time.Time, newStatus model.LinkStatus, access *model.AccessEntry) error

	// AccessLog возвращает журнал скачиваний ссылки (старые первые).
	AccessLog(ctx context.Context, linkID string) ([]model.AccessEntry, error)

	// Delete удаляет запись и её журнал доступа. ErrNotFound, если записи нет.
	Delete(ctx context.Context, linkID string) error

	// Close освобождает ресурсы хранилища.
	Close()
}
