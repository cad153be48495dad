// memory.go — in-memory реализация Store.
// Потокобезопасна: sync.RWMutex для конкурентного чтения и
// эксклюзивной записи. ApplyRedemption выполняется целиком под
// эксклюзивной блокировкой, что даёт сериализацию мутаций per-store
// (и, как следствие, per-key).
package linkstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// MemoryStore — in-memory хранилище записей ссылок.
// Не персистентное: используется в standalone-режиме и тестах.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[string]*model.ShareLink   // link_id → запись
	access map[string][]model.AccessEntry // link_id → журнал доступа
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[string]*model.ShareLink),
		access: make(map[string][]model.AccessEntry),
	}
}

// Create сохраняет новую запись.
func (s *MemoryStore) Create(_ context.Context, link *model.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link.LinkID]; ok {
		return fmt.Errorf("ссылка %s уже существует", link.LinkID)
	}

	// Храним копию, чтобы избежать data race при внешних изменениях
	copied := *link
	s.links[link.LinkID] = &copied
	return nil
}

// Get возвращает копию записи по LinkID.
func (s *MemoryStore) Get(_ context.Context, linkID string) (*model.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *link
	return &copied, nil
}

// List возвращает пагинированный список записей (новые первые).
func (s *MemoryStore) List(_ context.Context, filters ListFilters, limit, offset int) ([]*model.ShareLink, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*model.ShareLink
	for _, link := range s.links {
		if filters.Status != nil && link.Status != *filters.Status {
			continue
		}
		copied := *link
		filtered = append(filtered, &copied)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := len(filtered)

	if offset >= total {
		return nil, total, nil
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return filtered[offset:end], total, nil
}

// ListExpired возвращает активные записи с истёкшим сроком.
func (s *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]*model.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.ShareLink
	for _, link := range s.links {
		if link.Status != model.StatusActive {
			continue
		}
		if !link.IsExpired(now) {
			continue
		}
		copied := *link
		result = append(result, &copied)
	}
	return result, nil
}

// SetStatus обновляет статус записи.
func (s *MemoryStore) SetStatus(_ context.Context, linkID string, status model.LinkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return ErrNotFound
	}
	// expired необратим: запись, закрытую свипером или погашением,
	// нельзя переоткрыть конкурентной правкой статуса.
	if link.Status == model.StatusExpired && status != model.StatusExpired {
		return ErrConflict
	}
	link.Status = status
	return nil
}

// ApplyRedemption атомарно фиксирует скачивание под эксклюзивной блокировкой.
func (s *MemoryStore) ApplyRedemption(_ context.Context, linkID string, expectedCount int, now time.Time, newStatus model.LinkStatus, access *model.AccessEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return ErrNotFound
	}

	// Проверка ожидаемого состояния: статус и счётчик должны совпадать
	// со значениями, которые видел контроллер при чтении, а срок —
	// ещё не истечь к моменту фиксации.
	if link.Status != model.StatusActive || link.DownloadCount != expectedCount || link.IsExpired(now) {
		return ErrConflict
	}

	link.DownloadCount++
	link.Status = newStatus
	if access != nil {
		s.access[linkID] = append(s.access[linkID], *access)
	}
	return nil
}

// AccessLog возвращает копию журнала скачиваний (старые первые).
func (s *MemoryStore) AccessLog(_ context.Context, linkID string) ([]model.AccessEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.links[linkID]; !ok {
		return nil, ErrNotFound
	}

	entries := s.access[linkID]
	out := make([]model.AccessEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Delete удаляет запись и её журнал доступа.
func (s *MemoryStore) Delete(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[linkID]; !ok {
		return ErrNotFound
	}
	delete(s.links, linkID)
	delete(s.access, linkID)
	return nil
}

// Close — no-op для in-memory хранилища.
func (s *MemoryStore) Close() {}
