// postgres.go — PostgreSQL-реализация Store.
// Все запросы — чистый SQL через pgx, без ORM.
// Атомарность ApplyRedemption обеспечивается условным UPDATE
// (download_count = ожидаемому И status = 'active') и вставкой
// записи журнала в той же транзакции.
package linkstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
)

// PostgresStore — хранилище записей ссылок в PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт хранилище поверх пула подключений.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const linkColumns = `link_id, storage_key, display_name, content_type, size_bytes,
	password_hash, download_count, max_downloads, status, created_at, expires_at`

// Create сохраняет новую запись.
func (s *PostgresStore) Create(ctx context.Context, link *model.ShareLink) error {
	query := `
		INSERT INTO share_links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		link.LinkID, link.StorageKey, link.DisplayName, link.ContentType, link.SizeBytes,
		link.PasswordHash, link.DownloadCount, link.MaxDownloads, link.Status,
		link.CreatedAt, link.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ссылка %s уже существует: %w", link.LinkID, err)
		}
		return fmt.Errorf("ошибка создания ссылки: %w", err)
	}
	return nil
}

// Get возвращает запись по LinkID.
func (s *PostgresStore) Get(ctx context.Context, linkID string) (*model.ShareLink, error) {
	query := `SELECT ` + linkColumns + ` FROM share_links WHERE link_id = $1`

	link := &model.ShareLink{}
	err := s.pool.QueryRow(ctx, query, linkID).Scan(
		&link.LinkID, &link.StorageKey, &link.DisplayName, &link.ContentType, &link.SizeBytes,
		&link.PasswordHash, &link.DownloadCount, &link.MaxDownloads, &link.Status,
		&link.CreatedAt, &link.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ссылки: %w", err)
	}
	return link, nil
}

// buildLinkWhere строит WHERE-условие и аргументы для фильтрации ссылок.
func buildLinkWhere(filters ListFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filters.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List возвращает пагинированный список записей (новые первые) и общее количество.
func (s *PostgresStore) List(ctx context.Context, filters ListFilters, limit, offset int) ([]*model.ShareLink, int, error) {
	where, args := buildLinkWhere(filters, 1)

	var total int
	countQuery := "SELECT COUNT(*) FROM share_links " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта ссылок: %w", err)
	}

	argNum := len(args) + 1
	query := fmt.Sprintf(`
		SELECT `+linkColumns+`
		FROM share_links
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка ссылок: %w", err)
	}
	defer rows.Close()

	var result []*model.ShareLink
	for rows.Next() {
		link := &model.ShareLink{}
		if err := rows.Scan(
			&link.LinkID, &link.StorageKey, &link.DisplayName, &link.ContentType, &link.SizeBytes,
			&link.PasswordHash, &link.DownloadCount, &link.MaxDownloads, &link.Status,
			&link.CreatedAt, &link.ExpiresAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования ссылки: %w", err)
		}
		result = append(result, link)
	}
	return result, total, rows.Err()
}

// ListExpired возвращает активные записи с истёкшим сроком.
func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time) ([]*model.ShareLink, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM share_links
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at`

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истёкших ссылок: %w", err)
	}
	defer rows.Close()

	var result []*model.ShareLink
	for rows.Next() {
		link := &model.ShareLink{}
		if err := rows.Scan(
			&link.LinkID, &link.StorageKey, &link.DisplayName, &link.ContentType, &link.SizeBytes,
			&link.PasswordHash, &link.DownloadCount, &link.MaxDownloads, &link.Status,
			&link.CreatedAt, &link.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ссылки: %w", err)
		}
		result = append(result, link)
	}
	return result, rows.Err()
}

// SetStatus обновляет статус записи. Статус expired терминален,
// поэтому условие входит в сам UPDATE, а не проверяется чтением.
func (s *PostgresStore) SetStatus(ctx context.Context, linkID string, status model.LinkStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE share_links SET status = $2
		WHERE link_id = $1 AND (status <> 'expired' OR $2 = 'expired')`,
		linkID, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM share_links WHERE link_id = $1)`, linkID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка проверки записи: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// ApplyRedemption атомарно фиксирует скачивание.
// Условный UPDATE срабатывает только если счётчик и статус не изменились
// с момента чтения и срок ещё не истёк; запись журнала — в той же
// транзакции.
func (s *PostgresStore) ApplyRedemption(ctx context.Context, linkID string, expectedCount int, now time.Time, newStatus model.LinkStatus, access *model.AccessEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	tag, err := tx.Exec(ctx, `
		UPDATE share_links
		SET download_count = download_count + 1, status = $4
		WHERE link_id = $1 AND download_count = $2 AND status = 'active'
			AND expires_at > $3`,
		linkID, expectedCount, now, newStatus)
	if err != nil {
		return fmt.Errorf("ошибка условного обновления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Различаем отсутствие записи и конкурентное изменение
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM share_links WHERE link_id = $1)`, linkID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("ошибка проверки существования ссылки: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	if access != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO link_access_log (link_id, remote_addr, user_agent, occurred_at)
			VALUES ($1, $2, $3, $4)`,
			access.LinkID, access.RemoteAddr, access.UserAgent, access.OccurredAt)
		if err != nil {
			return fmt.Errorf("ошибка записи журнала доступа: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// AccessLog возвращает журнал скачиваний ссылки (старые первые).
func (s *PostgresStore) AccessLog(ctx context.Context, linkID string) ([]model.AccessEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM share_links WHERE link_id = $1)`, linkID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("ошибка проверки существования ссылки: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT link_id, remote_addr, user_agent, occurred_at
		FROM link_access_log
		WHERE link_id = $1
		ORDER BY occurred_at`, linkID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала доступа: %w", err)
	}
	defer rows.Close()

	var result []model.AccessEntry
	for rows.Next() {
		var e model.AccessEntry
		if err := rows.Scan(&e.LinkID, &e.RemoteAddr, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Delete удаляет запись; журнал доступа удаляется каскадно (FK ON DELETE CASCADE).
func (s *PostgresStore) Delete(ctx context.Context, linkID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM share_links WHERE link_id = $1`, linkID)
	if err != nil {
		return fmt.Errorf("ошибка удаления ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close закрывает пул подключений.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
