// links.go — HTTP handlers операций со share-ссылками.
// Выдача (upload + создание ссылки), просмотр, скачивание (погашение),
// смена статуса, удаление, журнал доступа.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Secure-File-Sharing-System/SIF/internal/api/errors"
	"github.com/Secure-File-Sharing-System/SIF/internal/domain/model"
	"github.com/Secure-File-Sharing-System/SIF/internal/service"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/contentstore"
	"github.com/Secure-File-Sharing-System/SIF/internal/storage/linkstore"
)

// LinksHandler — обработчик endpoints share-ссылок.
type LinksHandler struct {
	issuer      *service.Issuer
	redeemer    *service.Redeemer
	admin       *service.Admin
	content     contentstore.Store
	maxFileSize int64
	logger      *slog.Logger
}

// NewLinksHandler создаёт обработчик endpoints ссылок.
func NewLinksHandler(
	issuer *service.Issuer,
	redeemer *service.Redeemer,
	admin *service.Admin,
	content contentstore.Store,
	maxFileSize int64,
	logger *slog.Logger,
) *LinksHandler {
	return &LinksHandler{
		issuer:      issuer,
		redeemer:    redeemer,
		admin:       admin,
		content:     content,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "handlers")),
	}
}

// linkResponse — API-представление ссылки.
type linkResponse struct {
	LinkID             string `json:"link_id"`
	DisplayName        string `json:"display_name"`
	ContentType        string `json:"content_type"`
	SizeBytes          int64  `json:"size_bytes"`
	Protected          bool   `json:"protected"`
	DownloadCount      int    `json:"download_count"`
	MaxDownloads       int    `json:"max_downloads"`
	RemainingDownloads int    `json:"remaining_downloads"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
	ExpiresAt          string `json:"expires_at"`
}

func toLinkResponse(l *model.ShareLink) linkResponse {
	return linkResponse{
		LinkID:             l.LinkID,
		DisplayName:        l.DisplayName,
		ContentType:        l.ContentType,
		SizeBytes:          l.SizeBytes,
		Protected:          l.IsProtected(),
		DownloadCount:      l.DownloadCount,
		MaxDownloads:       l.MaxDownloads,
		RemainingDownloads: l.RemainingDownloads(),
		Status:             string(l.Status),
		CreatedAt:          l.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:          l.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// linkListResponse — страница списка ссылок.
type linkListResponse struct {
	Items   []linkResponse `json:"items"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// accessLogResponse — журнал доступа к ссылке.
type accessLogResponse struct {
	LinkID  string            `json:"link_id"`
	Entries []accessEntryItem `json:"entries"`
}

type accessEntryItem struct {
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// CreateLink обрабатывает POST /api/v1/links.
// Multipart form: file (обязательно), expires_in (опционально),
// password (опционально), max_downloads (опционально).
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20)) // запас на заголовки формы

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			errors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает лимит %d байт", h.maxFileSize))
			return
		}
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		errors.FileTooLarge(w, fmt.Sprintf("Размер файла %d превышает лимит %d байт", header.Size, h.maxFileSize))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	maxDownloads := 0
	if v := r.FormValue("max_downloads"); v != "" {
		maxDownloads, err = strconv.Atoi(v)
		if err != nil || maxDownloads <= 0 {
			errors.ValidationError(w, "Параметр max_downloads должен быть положительным числом")
			return
		}
	}

	// Сначала сохраняем содержимое, затем создаём запись ссылки.
	put, err := h.content.Put(r.Context(), file, header.Filename, contentType, header.Size)
	if err != nil {
		h.logger.Error("ошибка сохранения содержимого",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		errors.InternalError(w, "Ошибка сохранения файла")
		return
	}

	link, err := h.issuer.Issue(r.Context(), service.IssueRequest{
		StorageKey:   put.StorageKey,
		DisplayName:  header.Filename,
		ContentType:  contentType,
		SizeBytes:    put.Size,
		ExpirySpec:   r.FormValue("expires_in"),
		Password:     r.FormValue("password"),
		MaxDownloads: maxDownloads,
	})
	if err != nil {
		// Содержимое без записи — мусор, убираем сразу.
		if derr := h.content.Delete(r.Context(), put.StorageKey); derr != nil {
			h.logger.Error("ошибка отката содержимого после сбоя выдачи",
				slog.String("storage_key", put.StorageKey),
				slog.String("error", derr.Error()),
			)
		}
		h.logger.Error("ошибка выдачи ссылки",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		errors.InternalError(w, "Ошибка создания ссылки")
		return
	}

	writeJSON(w, http.StatusCreated, toLinkResponse(link))
}

// ListLinks обрабатывает GET /api/v1/links.
// Пагинация: limit, offset. Фильтр: status.
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	var filters linkstore.ListFilters

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			errors.ValidationError(w, "Параметр limit должен быть от 1 до 1000")
			return
		}
		limit = n
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errors.ValidationError(w, "Параметр offset не может быть отрицательным")
			return
		}
		offset = n
	}

	if v := r.URL.Query().Get("status"); v != "" {
		if !model.ValidStatus(v) {
			errors.ValidationError(w, fmt.Sprintf("Недопустимый статус: %s", v))
			return
		}
		status := model.LinkStatus(v)
		filters.Status = &status
	}

	links, total, err := h.admin.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("ошибка получения списка ссылок", slog.String("error", err.Error()))
		errors.InternalError(w, "Ошибка получения списка ссылок")
		return
	}

	items := make([]linkResponse, 0, len(links))
	for _, l := range links {
		items = append(items, toLinkResponse(l))
	}

	writeJSON(w, http.StatusOK, linkListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetLink обрабатывает GET /api/v1/links/{link_id}.
func (h *LinksHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	link, err := h.admin.GetLink(r.Context(), linkID)
	if err != nil {
		h.writeAdminError(w, linkID, err)
		return
	}

	writeJSON(w, http.StatusOK, toLinkResponse(link))
}

// DownloadLink обрабатывает GET /api/v1/links/{link_id}/download.
// Пароль передаётся query-параметром password или заголовком X-Link-Password.
func (h *LinksHandler) DownloadLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	password := r.URL.Query().Get("password")
	if password == "" {
		password = r.Header.Get("X-Link-Password")
	}

	access := &model.AccessEntry{
		RemoteAddr: remoteAddr(r),
		UserAgent:  r.UserAgent(),
	}

	res, err := h.redeemer.Redeem(r.Context(), linkID, password, access)
	if err != nil {
		h.writeRedeemError(w, linkID, err)
		return
	}
	defer res.Content.Close()

	link := res.Link
	w.Header().Set("Content-Type", link.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(link.DisplayName)))
	if link.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(link.SizeBytes, 10))
	}
	w.Header().Set("X-Remaining-Downloads", strconv.Itoa(link.RemainingDownloads()))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, res.Content); err != nil {
		// Ответ уже начат, статус менять поздно. Попытка при этом списана.
		h.logger.Warn("прерванная отдача содержимого",
			slog.String("link_id", linkID),
			slog.String("error", err.Error()),
		)
	}
}

// SetLinkStatus обрабатывает PATCH /api/v1/links/{link_id}/status.
// Body: {"status": "active"|"disabled"}.
func (h *LinksHandler) SetLinkStatus(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.Status == "" {
		errors.ValidationError(w, "Поле 'status' обязательно")
		return
	}

	link, err := h.admin.SetStatus(r.Context(), linkID, model.LinkStatus(req.Status))
	if err != nil {
		if stderrors.Is(err, service.ErrInvalidTransition) {
			errors.InvalidTransition(w, err.Error())
			return
		}
		h.writeAdminError(w, linkID, err)
		return
	}

	writeJSON(w, http.StatusOK, toLinkResponse(link))
}

// DeleteLink обрабатывает DELETE /api/v1/links/{link_id}.
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	if err := h.admin.Delete(r.Context(), linkID); err != nil {
		h.writeAdminError(w, linkID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAccessLog обрабатывает GET /api/v1/links/{link_id}/access-log.
func (h *LinksHandler) GetAccessLog(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	entries, err := h.admin.AccessLog(r.Context(), linkID)
	if err != nil {
		h.writeAdminError(w, linkID, err)
		return
	}

	items := make([]accessEntryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, accessEntryItem{
			RemoteAddr: e.RemoteAddr,
			UserAgent:  e.UserAgent,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, accessLogResponse{LinkID: linkID, Entries: items})
}

// linkID извлекает и валидирует link_id из URL.
func (h *LinksHandler) linkID(w http.ResponseWriter, r *http.Request) (string, bool) {
	linkID := chi.URLParam(r, "link_id")
	if _, err := uuid.Parse(linkID); err != nil {
		errors.ValidationError(w, fmt.Sprintf("Некорректный link_id: %s", linkID))
		return "", false
	}
	return linkID, true
}

// writeAdminError преобразует ошибки сервиса управления в HTTP-ответ.
func (h *LinksHandler) writeAdminError(w http.ResponseWriter, linkID string, err error) {
	if stderrors.Is(err, service.ErrNotFound) {
		errors.NotFound(w, fmt.Sprintf("Ссылка %s не найдена", linkID))
		return
	}
	h.logger.Error("ошибка операции со ссылкой",
		slog.String("link_id", linkID),
		slog.String("error", err.Error()),
	)
	errors.InternalError(w, "Внутренняя ошибка сервиса")
}

// writeRedeemError преобразует отказ погашения в HTTP-ответ.
// Клиентские отказы не логируются как ошибки сервиса.
func (h *LinksHandler) writeRedeemError(w http.ResponseWriter, linkID string, err error) {
	re, ok := service.AsRedeemError(err)
	if !ok {
		h.logger.Error("ошибка погашения ссылки",
			slog.String("link_id", linkID),
			slog.String("error", err.Error()),
		)
		errors.InternalError(w, "Внутренняя ошибка сервиса")
		return
	}

	switch re.Reason {
	case service.ReasonNotFound:
		errors.NotFound(w, fmt.Sprintf("Ссылка %s не найдена", linkID))
	case service.ReasonExpired:
		errors.LinkExpired(w, "Срок действия ссылки истёк")
	case service.ReasonInactive:
		errors.LinkInactive(w, fmt.Sprintf("Ссылка неактивна: статус %s", re.Status))
	case service.ReasonQuotaExceeded:
		errors.QuotaExceeded(w, "Квота скачиваний исчерпана")
	case service.ReasonUnauthorized:
		errors.Unauthorized(w, "Неверный пароль")
	case service.ReasonConflict:
		w.Header().Set("Retry-After", "1")
		errors.Conflict(w, "Конкурентный доступ к ссылке, повторите запрос")
	default: // integrity и прочее
		h.logger.Error("серверный отказ погашения",
			slog.String("link_id", linkID),
			slog.String("reason", string(re.Reason)),
			slog.String("error", re.Error()),
		)
		errors.IntegrityError(w, "Содержимое ссылки недоступно")
	}
}

// remoteAddr извлекает IP клиента без порта.
func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
