// disk.go — дисковая реализация Store.
// Streaming-запись с подсчётом SHA-256 на лету.
// Паттерн записи: temp файл → запись + SHA-256 → fsync → atomic rename.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStore — хранение содержимого в локальной директории.
type DiskStore struct {
	dataDir string
}

// NewDiskStore создаёт DiskStore. Создаёт директорию, если она не существует.
func NewDiskStore(dataDir string) (*DiskStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &DiskStore{dataDir: dataDir}, nil
}

// Put записывает данные из reader на диск с подсчётом SHA-256 на лету.
// Формат ключа: {name}_{timestamp}_{uuid}.{ext}
// При ошибке temp файл удаляется.
func (ds *DiskStore) Put(_ context.Context, reader io.Reader, originalFilename, _ string, _ int64) (*PutResult, error) {
	storageKey := generateStorageKey(originalFilename)
	fullPath := filepath.Join(ds.dataDir, storageKey)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{
		StorageKey: storageKey,
		Size:       size,
		Checksum:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Get открывает файл для чтения.
func (ds *DiskStore) Get(_ context.Context, storageKey string) (io.ReadCloser, error) {
	fullPath := filepath.Join(ds.dataDir, storageKey)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storageKey, err)
	}
	return f, nil
}

// Delete удаляет файл с диска. Возвращает nil, если файл уже не существует.
func (ds *DiskStore) Delete(_ context.Context, storageKey string) error {
	fullPath := filepath.Join(ds.dataDir, storageKey)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", storageKey, err)
	}
	return nil
}

// generateStorageKey генерирует ключ хранения файла на диске.
// Формат: {name}_{timestamp}_{uuid}.{ext}
// Пример: report_20260830150405_a1b2c3d4.pdf
func generateStorageKey(originalFilename string) string {
	base := filepath.Base(originalFilename)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	name = sanitize(name)
	if len(name) > 50 {
		name = name[:50]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	if ext != "" {
		return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
	}
	return fmt.Sprintf("%s_%s_%s", name, ts, uid)
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
