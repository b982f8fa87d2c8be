// Package directory содержит доменную модель записей админ-панели:
// пользователей (User) и инфлюенсеров (Influencer).
// Записи неизменяемы: мутации возвращают новую копию.
package directory

import (
	"strings"
	"time"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Kind определяет вид записи и одновременно имя коллекции на бэкенде.
type Kind string

const (
	// KindUser - пользователи (GET /users).
	KindUser Kind = "users"
	// KindInfluencer - инфлюенсеры (GET /influencers).
	KindInfluencer Kind = "influencers"
)

// String возвращает строковое представление вида.
func (k Kind) String() string {
	return string(k)
}

// Dimension - измерение категориального фильтра.
type Dimension string

const (
	// DimensionStatus - статус пользователя.
	DimensionStatus Dimension = "status"
	// DimensionPerformance - уровень эффективности инфлюенсера.
	DimensionPerformance Dimension = "performance"
	// DimensionDateRange - давность регистрации.
	DimensionDateRange Dimension = "dateRange"
)

// All - значение фильтра, которое совпадает с любой записью.
const All = "all"

// UnknownName отображается вместо отсутствующего имени.
const UnknownName = "Unknown"

// SortField - поле сортировки.
type SortField string

const (
	SortByName      SortField = "name"
	SortByEmail     SortField = "email"
	SortByStatus    SortField = "status"
	SortByReferrals SortField = "referrals"
	SortByEarnings  SortField = "earnings"
	SortByDate      SortField = "date"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record - общий контракт пользователя и инфлюенсера для конвейера
// фильтрации, сортировки и агрегатов.
type Record interface {
	// ID возвращает уникальный стабильный идентификатор.
	ID() string

	// Name возвращает имя как есть (может быть пустым).
	Name() string

	// Email возвращает email (может быть пустым).
	Email() string

	// Timestamp возвращает момент создания/регистрации, если он известен.
	Timestamp() (time.Time, bool)

	// Kind возвращает вид записи.
	Kind() Kind

	// Matches проверяет, попадает ли запись в корзину value измерения dim.
	// Для неподдерживаемого измерения возвращает false.
	Matches(dim Dimension, value string, now time.Time) bool

	// SortKey возвращает ключ сортировки для поля; false, если поле не поддерживается.
	SortKey(field SortField, now time.Time) (SortKey, bool)
}

// DisplayName возвращает имя записи или "Unknown".
func DisplayName(r Record) string {
	if r.Name() == "" {
		return UnknownName
	}
	return r.Name()
}

// MatchesSearch проверяет регистронезависимое вхождение term в имя или email.
// Пустой term совпадает с любой записью.
func MatchesSearch(r Record, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(r.Name()), term) ||
		strings.Contains(strings.ToLower(r.Email()), term)
}

// TimestampOr возвращает время записи или fallback, если оно отсутствует.
func TimestampOr(r Record, fallback time.Time) time.Time {
	if ts, ok := r.Timestamp(); ok {
		return ts
	}
	return fallback
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTER OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Options возвращает допустимые значения (кроме "all") каждого измерения для вида.
func Options(kind Kind) map[Dimension][]string {
	dates := []string{string(DateToday), string(DateWeek), string(DateMonth), string(DateQuarter)}
	switch kind {
	case KindUser:
		return map[Dimension][]string{
			DimensionStatus:    {string(StatusActive), string(StatusBlocked), string(StatusPending)},
			DimensionDateRange: dates,
		}
	case KindInfluencer:
		return map[Dimension][]string{
			DimensionPerformance: {string(PerformanceTop), string(PerformanceMedium), string(PerformanceLow)},
			DimensionDateRange:   dates,
		}
	default:
		return nil
	}
}

// SortFields возвращает поля сортировки, доступные для вида.
func SortFields(kind Kind) []SortField {
	switch kind {
	case KindUser:
		return []SortField{SortByName, SortByEmail, SortByStatus, SortByDate}
	case KindInfluencer:
		return []SortField{SortByName, SortByEmail, SortByReferrals, SortByEarnings, SortByDate}
	default:
		return nil
	}
}

// ValidateSelection проверяет, что значение допустимо для измерения вида.
func ValidateSelection(kind Kind, dim Dimension, value string) error {
	if value == All {
		if _, ok := Options(kind)[dim]; ok {
			return nil
		}
		return shared.ErrUnknownSelection
	}
	for _, v := range Options(kind)[dim] {
		if v == value {
			return nil
		}
	}
	return shared.ErrUnknownSelection
}

// ValidateSortField проверяет, что поле сортировки допустимо для вида.
func ValidateSortField(kind Kind, field SortField) error {
	for _, f := range SortFields(kind) {
		if f == field {
			return nil
		}
	}
	return shared.ErrUnknownSortField
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE INVARIANTS
// ══════════════════════════════════════════════════════════════════════════════

// CheckUnique проверяет, что идентификаторы в наборе уникальны и не пусты.
func CheckUnique[T Record](records []T) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.ID()
		if id == "" {
			return shared.ErrInvalidRecordID
		}
		if _, dup := seen[id]; dup {
			return shared.WrapError("directory", "Load", shared.ErrAlreadyExists,
				"duplicate record identifier "+id, shared.ErrDuplicateRecord)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// IndexOf возвращает позицию записи с идентификатором id или -1.
func IndexOf[T Record](records []T, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
