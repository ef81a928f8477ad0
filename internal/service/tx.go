package service

import (
	"database/sql"
	"errors"
	"log/slog"
)

// rollback откатывает транзакцию, если она не была закоммичена.
func rollback(logger *slog.Logger, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error("transaction rollback failed", slog.Any("error", err))
	}
}
