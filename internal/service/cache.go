// cache.go — LRU-кэш записей ссылок с TTL для операций чтения метаданных.
// Обёртка над hashicorp/golang-lru/v2/expirable.
//
// Кэш используется только при чтении метаданных (просмотр ссылки).
// Путь погашения всегда идёт напрямую в хранилище: квота и статус
// должны проверяться по актуальной записи.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей ссылок.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sif_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей ссылок.",
	})
)

// LinkCache — LRU-кэш записей ссылок с автоматическим TTL.
type LinkCache struct {
	cache *expirable.LRU[string, *model.ShareLink]
}

// NewLinkCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewLinkCache(maxSize int, ttl time.Duration) *LinkCache {
	cache := expirable.NewLRU[string, *model.ShareLink](maxSize, nil, ttl)
	return &LinkCache{cache: cache}
}

// Get возвращает запись из кэша по linkID.
// Возвращает (запись, true) при hit или (nil, false) при miss.
func (c *LinkCache) Get(linkID string) (*model.ShareLink, bool) {
	val, ok := c.cache.Get(linkID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *LinkCache) Set(linkID string, link *model.ShareLink) {
	c.cache.Add(linkID, link)
}

// Delete удаляет запись из кэша (инвалидация при изменении статуса).
func (c *LinkCache) Delete(linkID string) {
	c.cache.Remove(linkID)
}
