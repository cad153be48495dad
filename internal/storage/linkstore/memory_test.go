package linkstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// testLink создаёт запись ссылки для тестов.
func testLink(id string, status model.LinkStatus, createdAt time.Time) *model.ShareLink {
	return &model.ShareLink{
		LinkID:        id,
		StorageKey:    "key-" + id,
		DisplayName:   id + ".txt",
		ContentType:   "text/plain",
		SizeBytes:     9,
		DownloadCount: 0,
		MaxDownloads:  3,
		Status:        status,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(24 * time.Hour),
	}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	link := testLink("a", model.StatusActive, now)
	if err := s.Create(ctx, link); err != nil {
		t.Fatalf("Create: неожиданная ошибка: %v", err)
	}

	// Дубликат — ошибка
	if err := s.Create(ctx, link); err == nil {
		t.Error("Create: ожидали ошибку для дубликата LinkID")
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: неожиданная ошибка: %v", err)
	}
	if got.StorageKey != "key-a" {
		t.Errorf("StorageKey: хотели key-a, получили %q", got.StorageKey)
	}

	// Мутация возвращённой копии не должна влиять на хранилище
	got.DownloadCount = 99
	again, _ := s.Get(ctx, "a")
	if again.DownloadCount != 0 {
		t.Errorf("копия записи не изолирована: DownloadCount = %d", again.DownloadCount)
	}

	if _, err := s.Get(ctx, "нет-такой"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get несуществующей: хотели ErrNotFound, получили %v", err)
	}
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.Create(ctx, testLink("old", model.StatusActive, base))
	_ = s.Create(ctx, testLink("mid", model.StatusDisabled, base.Add(time.Hour)))
	_ = s.Create(ctx, testLink("new", model.StatusActive, base.Add(2*time.Hour)))

	links, total, err := s.List(ctx, ListFilters{}, 0, 0)
	if err != nil {
		t.Fatalf("List: неожиданная ошибка: %v", err)
	}
	if total != 3 {
		t.Errorf("total: хотели 3, получили %d", total)
	}
	if len(links) != 3 || links[0].LinkID != "new" || links[2].LinkID != "old" {
		t.Errorf("порядок сортировки нарушен: %v", linkIDs(links))
	}

	// Фильтр по статусу
	active := model.StatusActive
	links, total, _ = s.List(ctx, ListFilters{Status: &active}, 0, 0)
	if total != 2 || len(links) != 2 {
		t.Errorf("фильтр active: хотели 2, получили total=%d len=%d", total, len(links))
	}

	// Пагинация
	links, total, _ = s.List(ctx, ListFilters{}, 1, 1)
	if total != 3 || len(links) != 1 || links[0].LinkID != "mid" {
		t.Errorf("пагинация: хотели [mid], получили %v (total=%d)", linkIDs(links), total)
	}

	// Offset за пределами
	links, total, _ = s.List(ctx, ListFilters{}, 10, 100)
	if total != 3 || links != nil {
		t.Errorf("offset за пределами: хотели пустой список, получили %v", linkIDs(links))
	}
}

func TestMemoryStore_ListExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := testLink("fresh", model.StatusActive, now)
	stale := testLink("stale", model.StatusActive, now.Add(-48*time.Hour))
	disabledStale := testLink("disabled", model.StatusDisabled, now.Add(-48*time.Hour))

	_ = s.Create(ctx, fresh)
	_ = s.Create(ctx, stale)
	_ = s.Create(ctx, disabledStale)

	expired, err := s.ListExpired(ctx, now)
	if err != nil {
		t.Fatalf("ListExpired: неожиданная ошибка: %v", err)
	}
	if len(expired) != 1 || expired[0].LinkID != "stale" {
		t.Errorf("ListExpired: хотели [stale], получили %v", linkIDs(expired))
	}
}

func TestMemoryStore_ApplyRedemption(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	_ = s.Create(ctx, testLink("a", model.StatusActive, now))

	entry := &model.AccessEntry{LinkID: "a", RemoteAddr: "10.0.0.1", OccurredAt: now}

	if err := s.ApplyRedemption(ctx, "a", 0, now, model.StatusActive, entry); err != nil {
		t.Fatalf("ApplyRedemption: неожиданная ошибка: %v", err)
	}

	got, _ := s.Get(ctx, "a")
	if got.DownloadCount != 1 {
		t.Errorf("DownloadCount: хотели 1, получили %d", got.DownloadCount)
	}

	log, err := s.AccessLog(ctx, "a")
	if err != nil {
		t.Fatalf("AccessLog: неожиданная ошибка: %v", err)
	}
	if len(log) != got.DownloadCount {
		t.Errorf("длина журнала (%d) не равна DownloadCount (%d)", len(log), got.DownloadCount)
	}

	// Повтор с устаревшим expectedCount — конфликт
	if err := s.ApplyRedemption(ctx, "a", 0, now, model.StatusActive, entry); !errors.Is(err, ErrConflict) {
		t.Errorf("устаревший счётчик: хотели ErrConflict, получили %v", err)
	}

	// Неактивная запись — конфликт
	_ = s.SetStatus(ctx, "a", model.StatusDisabled)
	if err := s.ApplyRedemption(ctx, "a", 1, now, model.StatusActive, entry); !errors.Is(err, ErrConflict) {
		t.Errorf("отключённая ссылка: хотели ErrConflict, получили %v", err)
	}

	// Отсутствующая запись
	if err := s.ApplyRedemption(ctx, "нет", 0, now, model.StatusActive, entry); !errors.Is(err, ErrNotFound) {
		t.Errorf("отсутствующая запись: хотели ErrNotFound, получили %v", err)
	}
}

func TestMemoryStore_ApplyRedemptionExpiredAtCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	link := testLink("a", model.StatusActive, now)
	_ = s.Create(ctx, link)

	// Срок истёк между чтением и фиксацией: списание не проходит.
	late := link.ExpiresAt.Add(time.Second)
	err := s.ApplyRedemption(ctx, "a", 0, late, model.StatusActive,
		&model.AccessEntry{LinkID: "a", OccurredAt: late})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("истёкший срок: хотели ErrConflict, получили %v", err)
	}

	got, _ := s.Get(ctx, "a")
	if got.DownloadCount != 0 {
		t.Errorf("DownloadCount: хотели 0, получили %d", got.DownloadCount)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	_ = s.Create(ctx, testLink("a", model.StatusActive, now))
	_ = s.ApplyRedemption(ctx, "a", 0, now, model.StatusActive,
		&model.AccessEntry{LinkID: "a", OccurredAt: now})

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: неожиданная ошибка: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("после Delete: хотели ErrNotFound, получили %v", err)
	}
	if err := s.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete: хотели ErrNotFound, получили %v", err)
	}
}

// linkIDs возвращает идентификаторы для диагностики в сообщениях тестов.
func linkIDs(links []*model.ShareLink) []string {
	ids := make([]string, len(links))
	for i, l := range links {
		ids[i] = l.LinkID
	}
	return ids
}

func TestMemoryStore_SetStatusTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if err := s.Create(ctx, testLink("a", model.StatusExpired, now)); err != nil {
		t.Fatalf("Create: неожиданная ошибка: %v", err)
	}

	if err := s.SetStatus(ctx, "a", model.StatusActive); !errors.Is(err, ErrConflict) {
		t.Fatalf("expired -> active: хотели ErrConflict, получили %v", err)
	}
	got, _ := s.Get(ctx, "a")
	if got.Status != model.StatusExpired {
		t.Errorf("статус после отказа: хотели expired, получили %s", got.Status)
	}

	// expired -> expired — допустимый no-op для свипера.
	if err := s.SetStatus(ctx, "a", model.StatusExpired); err != nil {
		t.Errorf("expired -> expired: неожиданная ошибка: %v", err)
	}
}
