// Пакет contentstore — хранилище содержимого файлов (opaque put/get/delete
// по ключу). С точки зрения ядра это внешний коллаборатор: ядро не делает
// предположений о частичной видимости записи, удаление идемпотентно.
package contentstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound — содержимое по ключу отсутствует.
// Для активной записи ссылки это признак нарушения целостности данных.
var ErrNotFound = errors.New("содержимое не найдено")

// PutResult — результат сохранения содержимого.
type PutResult struct {
	// StorageKey — ключ для последующих Get/Delete
	StorageKey string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого (пустой, если бэкенд не считает)
	Checksum string
}

// Store — хранилище содержимого файлов.
type Store interface {
	// Put сохраняет содержимое из reader и возвращает ключ хранения.
	Put(ctx context.Context, reader io.Reader, originalFilename, contentType string, size int64) (*PutResult, error)

	// Get открывает содержимое по ключу. ErrNotFound, если объект отсутствует.
	// Вызывающий код обязан закрыть ReadCloser.
	Get(ctx context.Context, storageKey string) (io.ReadCloser, error)

	// Delete удаляет содержимое по ключу. Отсутствующий объект — не ошибка.
	Delete(ctx context.Context, storageKey string) error
}
