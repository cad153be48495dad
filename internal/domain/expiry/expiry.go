// Пакет expiry — разбор спецификации срока действия ссылки.
// Чистая функция: токен длительности ("24h", "7d", "30d"), явный момент
// времени (RFC 3339) или пустая строка отображаются в момент истечения
// относительно переданного текущего времени.
package expiry

import (
	"strconv"
	"strings"
	"time"
)

// Resolve вычисляет момент истечения срока действия из спецификации spec
// относительно момента now.
//
// Поддерживаемые форматы:
//   - пустая строка — применяется fallback (срок по умолчанию)
//   - явный момент RFC 3339 ("2026-03-01T12:00:00Z")
//   - токен дней "7d", "30d" (time.ParseDuration дни не понимает)
//   - токен длительности time.ParseDuration ("24h", "90m", "0s")
//
// Неразборчивая спецификация не является ошибкой: применяется fallback,
// а второй результат возвращается true, чтобы вызывающий код
// зафиксировал факт отката в логе.
func Resolve(spec string, now time.Time, fallback time.Duration) (time.Time, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return now.Add(fallback), false
	}

	// Явный момент времени
	if ts, err := time.Parse(time.RFC3339, spec); err == nil {
		return ts.UTC(), false
	}

	// Токен дней: "7d", "30d"
	if strings.HasSuffix(spec, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(spec, "d")); err == nil && days >= 0 {
			return now.AddDate(0, 0, days), false
		}
	}

	// Токен длительности: "24h", "90m", "0s"
	if d, err := time.ParseDuration(spec); err == nil && d >= 0 {
		return now.Add(d), false
	}

	// Неразборчивая спецификация — откат на срок по умолчанию
	return now.Add(fallback), true
}
