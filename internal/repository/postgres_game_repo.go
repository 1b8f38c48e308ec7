package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/questlog/internal/model"
)

// PostgresGameRepo はPostgreSQLを使用したゲームリポジトリ。
// プレイセッションはgames.sessionsにJSONB配列として保存する。
type PostgresGameRepo struct {
	db *sql.DB
}

// NewPostgresGameRepo はPostgresGameRepoを生成する。
func NewPostgresGameRepo(db *sql.DB) *PostgresGameRepo {
	return &PostgresGameRepo{db: db}
}

// Load は指定ユーザーのゲームを作成日時の新しい順で返す。
func (r *PostgresGameRepo) Load(ctx context.Context, userID string) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, platform, status, completion_percentage, cover_url,
		        sessions, last_played, notes, created_at
		 FROM games
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		var (
			g          model.Game
			sessions   []byte
			lastPlayed sql.NullTime
		)
		if err := rows.Scan(
			&g.ID, &g.Title, &g.Platform, &g.Status, &g.CompletionPercentage, &g.CoverURL,
			&sessions, &lastPlayed, &g.Notes, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		if err := json.Unmarshal(sessions, &g.Sessions); err != nil {
			return nil, fmt.Errorf("failed to decode play sessions of game %s: %w", g.ID, err)
		}
		if lastPlayed.Valid {
			t := lastPlayed.Time
			g.LastPlayed = &t
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return games, nil
}

// Save はゲームをUPSERTする。
func (r *PostgresGameRepo) Save(ctx context.Context, userID string, game model.Game) error {
	return upsertGame(ctx, r.db, userID, game)
}

// SaveAll は複数のゲームを同一トランザクションでUPSERTする。
func (r *PostgresGameRepo) SaveAll(ctx context.Context, userID string, games []model.Game) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, g := range dedupeByID(games) {
			if err := upsertGame(ctx, tx, userID, g); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete は指定IDのゲームを削除する。
func (r *PostgresGameRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteRow(ctx, r.db, "games", userID, id)
}

func upsertGame(ctx context.Context, exec execer, userID string, g model.Game) error {
	sessions := g.Sessions
	if sessions == nil {
		sessions = []model.PlaySession{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode play sessions: %w", err)
	}

	var lastPlayed sql.NullTime
	if g.LastPlayed != nil {
		lastPlayed = sql.NullTime{Time: *g.LastPlayed, Valid: true}
	}

	_, err = exec.ExecContext(ctx,
		`INSERT INTO games (user_id, id, title, platform, status, completion_percentage,
		                    cover_url, sessions, last_played, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, id) DO UPDATE SET
		   title = EXCLUDED.title,
		   platform = EXCLUDED.platform,
		   status = EXCLUDED.status,
		   completion_percentage = EXCLUDED.completion_percentage,
		   cover_url = EXCLUDED.cover_url,
		   sessions = EXCLUDED.sessions,
		   last_played = EXCLUDED.last_played,
		   notes = EXCLUDED.notes`,
		userID, g.ID, g.Title, g.Platform, string(g.Status), g.CompletionPercentage,
		g.CoverURL, raw, lastPlayed, g.Notes, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EntityRepository[model.Game] = (*PostgresGameRepo)(nil)
