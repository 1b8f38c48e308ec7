package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// execer は*sql.DBと*sql.Txの共通部分。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// inTx はfnをトランザクション内で実行する。fnがエラーを返した場合はロールバックする。
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// deleteRow はuser_idとidで1行削除する。対象が無くてもエラーにしない。
// tableは固定の定数のみを渡すこと。
func deleteRow(ctx context.Context, db *sql.DB, table, userID, id string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
