// Пакет clock — источник текущего времени.
// Инжектируется в сервисы, чтобы логика истечения срока была
// детерминированной в тестах.
package clock

import "time"

// Clock — источник текущего времени.
type Clock interface {
	// Now возвращает текущее время в UTC.
	Now() time.Time
}

// System — системные часы.
type System struct{}

// Now возвращает time.Now().UTC().
func (System) Now() time.Time {
	return time.Now().UTC()
}
