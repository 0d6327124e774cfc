package httpx

import (
	"net/http"
	"strconv"

	apperrors "atelier/pkg/errors"
)

const maxPaginationLimit = 100

// ExtractLimitOffset reads pagination query parameters and normalizes them
// to sane bounds so repositories never see a zero or runaway limit.
func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return NormalizeLimit(limit), NormalizeOffset(offset), nil
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxPaginationLimit {
		return maxPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
