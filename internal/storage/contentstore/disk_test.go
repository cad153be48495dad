package contentstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStore_PutGet(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	ctx := context.Background()
	data := []byte("содержимое тестового файла")

	res, err := ds.Put(ctx, bytes.NewReader(data), "отчёт.pdf", "application/pdf", int64(len(data)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if res.Size != int64(len(data)) {
		t.Errorf("размер: хотели %d, получили %d", len(data), res.Size)
	}

	wantSum := sha256.Sum256(data)
	if res.Checksum != hex.EncodeToString(wantSum[:]) {
		t.Errorf("checksum: хотели %s, получили %s", hex.EncodeToString(wantSum[:]), res.Checksum)
	}

	if !strings.HasSuffix(res.StorageKey, ".pdf") {
		t.Errorf("ключ должен сохранять расширение, получили %s", res.StorageKey)
	}
	if strings.Contains(res.StorageKey, string(filepath.Separator)) {
		t.Errorf("ключ не должен содержать разделители пути, получили %s", res.StorageKey)
	}

	rc, err := ds.Get(ctx, res.StorageKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("содержимое: хотели %q, получили %q", data, got)
	}
}

func TestDiskStore_GetNotFound(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	_, err = ds.Get(context.Background(), "no_such_key.bin")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("хотели ErrNotFound, получили %v", err)
	}
}

func TestDiskStore_Delete(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	ctx := context.Background()
	res, err := ds.Put(ctx, strings.NewReader("data"), "file.txt", "text/plain", 4)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := ds.Delete(ctx, res.StorageKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, res.StorageKey)); !os.IsNotExist(err) {
		t.Errorf("файл должен быть удалён, stat вернул %v", err)
	}

	// Повторное удаление не ошибка.
	if err := ds.Delete(ctx, res.StorageKey); err != nil {
		t.Errorf("повторный Delete должен вернуть nil, получили %v", err)
	}
}

func TestDiskStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	if _, err := ds.Put(context.Background(), strings.NewReader("x"), "a.txt", "text/plain", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("после Put не должно оставаться временных файлов: %s", e.Name())
		}
	}
}

func TestGenerateStorageKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantExt  string
	}{
		{"обычное имя", "report.pdf", ".pdf"},
		{"кириллица", "отчёт за квартал.docx", ".docx"},
		{"без расширения", "README", ""},
		{"попытка обхода пути", "../../etc/passwd", ""},
		{"только мусорные символы", "???.txt", ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := generateStorageKey(tt.filename)

			if strings.Contains(key, "/") || strings.Contains(key, "..") {
				t.Errorf("ключ содержит опасные символы пути: %s", key)
			}
			if tt.wantExt != "" && !strings.HasSuffix(key, tt.wantExt) {
				t.Errorf("хотели расширение %s, получили ключ %s", tt.wantExt, key)
			}
		})
	}
}
