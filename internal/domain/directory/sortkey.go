package directory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type keyKind uint8

const (
	keyText keyKind = iota
	keyNumber
	keyInstant
)

// SortKey - сравнимая проекция поля записи: строка, число или момент времени.
type SortKey struct {
	kind   keyKind
	text   string
	number decimal.Decimal
	at     time.Time
}

// TextKey создаёт строковый ключ. Сравнение побайтовое, с учётом регистра.
func TextKey(s string) SortKey {
	return SortKey{kind: keyText, text: s}
}

// NumberKey создаёт числовой ключ.
func NumberKey(d decimal.Decimal) SortKey {
	return SortKey{kind: keyNumber, number: d}
}

// IntKey создаёт числовой ключ из целого.
func IntKey(n int) SortKey {
	return NumberKey(decimal.NewFromInt(int64(n)))
}

// InstantKey создаёт ключ-момент времени.
func InstantKey(t time.Time) SortKey {
	return SortKey{kind: keyInstant, at: t}
}

// Compare возвращает -1, 0 или 1. Ключи разных видов сравниваются по виду.
func (k SortKey) Compare(other SortKey) int {
	if k.kind != other.kind {
		if k.kind < other.kind {
			return -1
		}
		return 1
	}
	switch k.kind {
	case keyNumber:
		return k.number.Cmp(other.number)
	case keyInstant:
		return k.at.Compare(other.at)
	default:
		return strings.Compare(k.text, other.text)
	}
}

// commonSortKey обрабатывает поля, общие для всех записей.
func commonSortKey(r Record, field SortField, now time.Time) (SortKey, bool) {
	switch field {
	case SortByName:
		return TextKey(r.Name()), true
	case SortByEmail:
		return TextKey(r.Email()), true
	case SortByDate:
		return InstantKey(TimestampOr(r, now)), true
	default:
		return SortKey{}, false
	}
}
