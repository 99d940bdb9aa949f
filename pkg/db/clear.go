package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const clearLogPrefix = "db:clear"

// ClearAudit removes audit rows. With a zero before it truncates the table;
// otherwise it deletes rows created before that time and returns how many.
func ClearAudit(ctx context.Context, db DBTX, before time.Time) (int64, error) {
	if before.IsZero() {
		slog.Info(fmt.Sprintf("%s - Truncating invocations", clearLogPrefix))
		if _, err := db.Exec(ctx, `TRUNCATE TABLE invocations`); err != nil {
			return 0, fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
		}
		return 0, nil
	}

	tag, err := db.Exec(ctx, `DELETE FROM invocations WHERE created < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - delete failed: %w", clearLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Deleted %d invocations created before %s", clearLogPrefix, tag.RowsAffected(), before.UTC().Format(time.RFC3339)))
	return tag.RowsAffected(), nil
}
