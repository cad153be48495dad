// Пакет model — доменные модели SIF.
// ShareLink — единственная сущность ядра: ссылка на скачивание файла
// с ограничением по времени жизни и квоте скачиваний.
package model

import (
	"time"
)

// LinkStatus — статус ссылки.
type LinkStatus string

const (
	// StatusActive — ссылка доступна для скачивания
	StatusActive LinkStatus = "active"
	// StatusExpired — срок действия истёк (терминальный статус)
	StatusExpired LinkStatus = "expired"
	// StatusDisabled — отключена администратором (обратимо)
	StatusDisabled LinkStatus = "disabled"
)

// ValidStatus проверяет, что значение является допустимым статусом.
func ValidStatus(s string) bool {
	switch LinkStatus(s) {
	case StatusActive, StatusExpired, StatusDisabled:
		return true
	}
	return false
}

// ShareLink — ссылка на скачивание с квотой и сроком действия.
// Поля LinkID, StorageKey, размер/имя/тип, CreatedAt, ExpiresAt,
// PasswordHash и MaxDownloads неизменяемы после создания.
// DownloadCount и Status мутируются только контроллером выдачи,
// свипером и административными операциями.
type ShareLink struct {
	// LinkID — уникальный идентификатор ссылки (UUID v4)
	LinkID string `json:"link_id"`

	// StorageKey — ключ файла в Content Store.
	// Не возвращается в API, используется только внутри сервиса.
	StorageKey string `json:"-"`

	// DisplayName — имя файла, показываемое при скачивании
	DisplayName string `json:"display_name"`

	// ContentType — MIME-тип файла
	ContentType string `json:"content_type"`

	// SizeBytes — размер файла в байтах
	SizeBytes int64 `json:"size_bytes"`

	// PasswordHash — bcrypt-хэш пароля. nil для открытых ссылок.
	// Никогда не сериализуется в ответы API.
	PasswordHash *string `json:"-"`

	// DownloadCount — количество успешных скачиваний.
	// Монотонно неубывающий, всегда <= MaxDownloads.
	DownloadCount int `json:"download_count"`

	// MaxDownloads — квота скачиваний, задаётся при создании
	MaxDownloads int `json:"max_downloads"`

	// Status — текущий статус ссылки
	Status LinkStatus `json:"status"`

	// CreatedAt — дата и время создания (UTC)
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt — момент истечения срока действия (UTC)
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessEntry — запись журнала скачиваний.
// Добавляется только вместе с успешным инкрементом DownloadCount:
// длина журнала всегда равна DownloadCount.
type AccessEntry struct {
	// LinkID — идентификатор ссылки
	LinkID string `json:"link_id"`
	// RemoteAddr — адрес клиента (как предоставлен вызывающей стороной)
	RemoteAddr string `json:"remote_addr"`
	// UserAgent — User-Agent клиента
	UserAgent string `json:"user_agent,omitempty"`
	// OccurredAt — момент скачивания (UTC)
	OccurredAt time.Time `json:"occurred_at"`
}

// IsExpired проверяет, истёк ли срок действия ссылки на момент now.
func (l *ShareLink) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// IsActive проверяет, что ссылка в активном состоянии.
func (l *ShareLink) IsActive() bool {
	return l.Status == StatusActive
}

// QuotaExhausted проверяет, исчерпана ли квота скачиваний.
func (l *ShareLink) QuotaExhausted() bool {
	return l.DownloadCount >= l.MaxDownloads
}

// RemainingDownloads возвращает остаток квоты (не меньше нуля).
func (l *ShareLink) RemainingDownloads() int {
	if l.DownloadCount >= l.MaxDownloads {
		return 0
	}
	return l.MaxDownloads - l.DownloadCount
}

// IsProtected возвращает true, если ссылка защищена паролем.
func (l *ShareLink) IsProtected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
