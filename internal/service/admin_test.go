package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

type adminFixture struct {
	links   *linkstore.MemoryStore
	content *memContent
	clk     *fakeClock
	admin   *Admin
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{
		links:   linkstore.NewMemoryStore(),
		content: newMemContent(),
		clk:     newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.admin = NewAdmin(f.links, f.content, NewLinkCache(16, time.Minute), f.clk, testLogger())
	return f
}

func (f *adminFixture) addLink(t *testing.T, id string, mutate func(*model.ShareLink)) *model.ShareLink {
	t.Helper()

	f.content.mu.Lock()
	key := "obj-" + id
	f.content.objects[key] = []byte("данные")
	f.content.mu.Unlock()

	link := &model.ShareLink{
		LinkID:       id,
		StorageKey:   key,
		DisplayName:  id + ".bin",
		MaxDownloads: 5,
		Status:       model.StatusActive,
		CreatedAt:    f.clk.Now(),
		ExpiresAt:    f.clk.Now().Add(time.Hour),
	}
	if mutate != nil {
		mutate(link)
	}
	if err := f.links.Create(context.Background(), link); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return link
}

func TestAdmin_GetLinkCached(t *testing.T) {
	f := newAdminFixture(t)
	link := f.addLink(t, "link-1", nil)
	ctx := context.Background()

	got, err := f.admin.GetLink(ctx, link.LinkID)
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if got.LinkID != link.LinkID {
		t.Errorf("link_id: хотели %s, получили %s", link.LinkID, got.LinkID)
	}

	// Второе чтение идёт из кэша: удаление из хранилища его не ломает.
	if err := f.links.Delete(ctx, link.LinkID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.admin.GetLink(ctx, link.LinkID); err != nil {
		t.Errorf("кэшированное чтение: %v", err)
	}
}

func TestAdmin_GetLinkNotFound(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.admin.GetLink(context.Background(), "нет-такой")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("хотели ErrNotFound, получили %v", err)
	}
}

func TestAdmin_SetStatus(t *testing.T) {
	f := newAdminFixture(t)
	link := f.addLink(t, "link-1", nil)
	ctx := context.Background()

	// active -> disabled
	got, err := f.admin.SetStatus(ctx, link.LinkID, model.StatusDisabled)
	if err != nil {
		t.Fatalf("SetStatus disabled: %v", err)
	}
	if got.Status != model.StatusDisabled {
		t.Errorf("статус: хотели disabled, получили %s", got.Status)
	}

	// disabled -> active
	if _, err := f.admin.SetStatus(ctx, link.LinkID, model.StatusActive); err != nil {
		t.Fatalf("SetStatus active: %v", err)
	}

	saved, _ := f.links.Get(ctx, link.LinkID)
	if saved.Status != model.StatusActive {
		t.Errorf("статус в хранилище: хотели active, получили %s", saved.Status)
	}
}

func TestAdmin_SetStatusInvalidTransitions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	expired := f.addLink(t, "expired", func(l *model.ShareLink) {
		l.Status = model.StatusExpired
	})
	pastDue := f.addLink(t, "past-due", func(l *model.ShareLink) {
		l.ExpiresAt = f.clk.Now().Add(-time.Minute)
	})
	active := f.addLink(t, "active", nil)

	tests := []struct {
		name   string
		linkID string
		status model.LinkStatus
	}{
		{"реактивация expired", expired.LinkID, model.StatusActive},
		{"реактивация просроченной по времени", pastDue.LinkID, model.StatusActive},
		{"ручной перевод в expired", active.LinkID, model.StatusExpired},
		{"неизвестный статус", active.LinkID, model.LinkStatus("frozen")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.SetStatus(ctx, tt.linkID, tt.status)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("хотели ErrInvalidTransition, получили %v", err)
			}
		})
	}
}

func TestAdmin_SetStatusInvalidatesCache(t *testing.T) {
	f := newAdminFixture(t)
	link := f.addLink(t, "link-1", nil)
	ctx := context.Background()

	// Прогреваем кэш.
	if _, err := f.admin.GetLink(ctx, link.LinkID); err != nil {
		t.Fatalf("GetLink: %v", err)
	}

	if _, err := f.admin.SetStatus(ctx, link.LinkID, model.StatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := f.admin.GetLink(ctx, link.LinkID)
	if err != nil {
		t.Fatalf("GetLink после смены статуса: %v", err)
	}
	if got.Status != model.StatusDisabled {
		t.Errorf("после инвалидации кэша: хотели disabled, получили %s", got.Status)
	}
}

func TestAdmin_List(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	f.addLink(t, "a", nil)
	f.addLink(t, "b", func(l *model.ShareLink) { l.Status = model.StatusDisabled })
	f.addLink(t, "c", nil)

	all, total, err := f.admin.List(ctx, linkstore.ListFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("все ссылки: хотели 3/3, получили %d/%d", len(all), total)
	}

	disabled := model.StatusDisabled
	filtered, total, err := f.admin.List(ctx, linkstore.ListFilters{Status: &disabled}, 10, 0)
	if err != nil {
		t.Fatalf("List с фильтром: %v", err)
	}
	if total != 1 || len(filtered) != 1 {
		t.Errorf("disabled: хотели 1/1, получили %d/%d", len(filtered), total)
	}
}

func TestAdmin_Delete(t *testing.T) {
	f := newAdminFixture(t)
	link := f.addLink(t, "link-1", nil)
	ctx := context.Background()

	if err := f.admin.Delete(ctx, link.LinkID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := f.links.Get(ctx, link.LinkID); !errors.Is(err, linkstore.ErrNotFound) {
		t.Errorf("запись должна быть удалена, получили %v", err)
	}
	if _, ok := f.content.objects[link.StorageKey]; ok {
		t.Error("содержимое должно быть удалено вместе с записью")
	}

	if err := f.admin.Delete(ctx, link.LinkID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: хотели ErrNotFound, получили %v", err)
	}
}

// raceStore имитирует свипер, помечающий ссылку expired между
// чтением записи и последующей сменой статуса.
type raceStore struct {
	*linkstore.MemoryStore
	expireOnGet string
}

func (s *raceStore) Get(ctx context.Context, linkID string) (*model.ShareLink, error) {
	link, err := s.MemoryStore.Get(ctx, linkID)
	if err == nil && linkID == s.expireOnGet {
		_ = s.MemoryStore.SetStatus(ctx, linkID, model.StatusExpired)
	}
	return link, err
}

func TestAdmin_SetStatusRacesSweep(t *testing.T) {
	f := newAdminFixture(t)
	link := f.addLink(t, "link-1", func(l *model.ShareLink) {
		l.Status = model.StatusDisabled
	})

	store := &raceStore{MemoryStore: f.links, expireOnGet: link.LinkID}
	admin := NewAdmin(store, f.content, NewLinkCache(16, time.Minute), f.clk, testLogger())

	_, err := admin.SetStatus(context.Background(), link.LinkID, model.StatusActive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("хотели ErrInvalidTransition, получили %v", err)
	}

	// Пометка свипера не перезаписана.
	saved, _ := f.links.Get(context.Background(), link.LinkID)
	if saved.Status != model.StatusExpired {
		t.Errorf("статус: хотели expired, получили %s", saved.Status)
	}
}
