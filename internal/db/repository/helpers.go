// Package repository persists snapshots and run history in SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"lf-playbook/internal/domain"
)

// timeLayout is fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func mapDBError(err error, what, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("%s %q not found", what, id)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrDuplicate(what, id)
	}
	return err
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.ParseInLocation(timeLayout, s, time.UTC) }
