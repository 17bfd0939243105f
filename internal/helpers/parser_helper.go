package helpers

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination reads page/limit query values. Page is 1-based; limit is
// clamped to MaxPageLimit.
func ParsePagination(page, limit string) (int, int, error) {
	pageNum := 1
	limitNum := DefaultPageLimit

	if page != "" {
		n, err := StringToInt(page)
		if err != nil || n < 1 {
			return 0, 0, NewError(KindInvalidField, "Invalid page number.")
		}
		pageNum = n
	}
	if limit != "" {
		n, err := StringToInt(limit)
		if err != nil || n < 1 {
			return 0, 0, NewError(KindInvalidField, "Invalid limit.")
		}
		limitNum = min(n, MaxPageLimit)
	}
	return pageNum, limitNum, nil
}

// DigitsOnly strips everything but digits, e.g. the mask of a CPF.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
