package utils

import (
	"fmt"
	"net/http"
	"strconv"
)

// QueryInt64 returns the named query parameter, or def when it is absent.
func QueryInt64(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: query parameter %s must be an integer", ErrBadRequest, key)
	}
	return v, nil
}

func QueryInt(r *http.Request, key string, def int) (int, error) {
	v, err := QueryInt64(r, key, int64(def))
	return int(v), err
}
