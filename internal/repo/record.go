package repo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

func str(rec store.Record, col string) string {
	switch v := rec[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// timestamp aceita time.Time (pgx) ou texto RFC3339 (REST e snapshot local).
func timestamp(rec store.Record, col string) (time.Time, error) {
	switch v := rec[col].(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %s=%q", ErrMalformed, col, v)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s do tipo %T", ErrMalformed, col, v)
	}
}
