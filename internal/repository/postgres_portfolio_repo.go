package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/questlog/internal/model"
)

// PostgresIdeaRepo はPostgreSQLを使用したアイデアリポジトリ。
type PostgresIdeaRepo struct {
	db *sql.DB
}

// NewPostgresIdeaRepo はPostgresIdeaRepoを生成する。
func NewPostgresIdeaRepo(db *sql.DB) *PostgresIdeaRepo {
	return &PostgresIdeaRepo{db: db}
}

// Load は指定ユーザーのアイデアを作成日時の新しい順で返す。
func (r *PostgresIdeaRepo) Load(ctx context.Context, userID string) ([]model.Idea, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, tags, priority, created_at
		 FROM ideas WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load ideas: %w", err)
	}
	defer rows.Close()

	ideas := []model.Idea{}
	for rows.Next() {
		var i model.Idea
		if err := rows.Scan(&i.ID, &i.Title, &i.Description, pq.Array(&i.Tags), &i.Priority, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ideas: %w", err)
	}
	return ideas, nil
}

// Save はアイデアをUPSERTする。
func (r *PostgresIdeaRepo) Save(ctx context.Context, userID string, idea model.Idea) error {
	return upsertIdea(ctx, r.db, userID, idea)
}

// SaveAll は複数のアイデアを同一トランザクションでUPSERTする。
func (r *PostgresIdeaRepo) SaveAll(ctx context.Context, userID string, ideas []model.Idea) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, i := range dedupeByID(ideas) {
			if err := upsertIdea(ctx, tx, userID, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete は指定IDのアイデアを削除する。
func (r *PostgresIdeaRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteRow(ctx, r.db, "ideas", userID, id)
}

func upsertIdea(ctx context.Context, exec execer, userID string, i model.Idea) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO ideas (user_id, id, title, description, tags, priority, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   tags = EXCLUDED.tags,
		   priority = EXCLUDED.priority`,
		userID, i.ID, i.Title, i.Description, pq.Array(nonNil(i.Tags)), string(i.Priority), i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert idea: %w", err)
	}
	return nil
}

// PostgresAppRepo はPostgreSQLを使用したアプリ（サイドプロジェクト）リポジトリ。
type PostgresAppRepo struct {
	db *sql.DB
}

// NewPostgresAppRepo はPostgresAppRepoを生成する。
func NewPostgresAppRepo(db *sql.DB) *PostgresAppRepo {
	return &PostgresAppRepo{db: db}
}

// Load は指定ユーザーのアプリを作成日時の新しい順で返す。
func (r *PostgresAppRepo) Load(ctx context.Context, userID string) ([]model.AppProject, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, url, tech_stack, status, created_at
		 FROM apps WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load apps: %w", err)
	}
	defer rows.Close()

	apps := []model.AppProject{}
	for rows.Next() {
		var a model.AppProject
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.URL, pq.Array(&a.TechStack), &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate apps: %w", err)
	}
	return apps, nil
}

// Save はアプリをUPSERTする。
func (r *PostgresAppRepo) Save(ctx context.Context, userID string, app model.AppProject) error {
	return upsertApp(ctx, r.db, userID, app)
}

// SaveAll は複数のアプリを同一トランザクションでUPSERTする。
func (r *PostgresAppRepo) SaveAll(ctx context.Context, userID string, apps []model.AppProject) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, a := range dedupeByID(apps) {
			if err := upsertApp(ctx, tx, userID, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete は指定IDのアプリを削除する。
func (r *PostgresAppRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteRow(ctx, r.db, "apps", userID, id)
}

func upsertApp(ctx context.Context, exec execer, userID string, a model.AppProject) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO apps (user_id, id, name, description, url, tech_stack, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   url = EXCLUDED.url,
		   tech_stack = EXCLUDED.tech_stack,
		   status = EXCLUDED.status`,
		userID, a.ID, a.Name, a.Description, a.URL, pq.Array(nonNil(a.TechStack)), string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert app: %w", err)
	}
	return nil
}

// PostgresLearningRepo はPostgreSQLを使用した学習トピックリポジトリ。
type PostgresLearningRepo struct {
	db *sql.DB
}

// NewPostgresLearningRepo はPostgresLearningRepoを生成する。
func NewPostgresLearningRepo(db *sql.DB) *PostgresLearningRepo {
	return &PostgresLearningRepo{db: db}
}

// Load は指定ユーザーの学習トピックを作成日時の新しい順で返す。
func (r *PostgresLearningRepo) Load(ctx context.Context, userID string) ([]model.LearningItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, topic, category, status, notes, created_at
		 FROM learning_items WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load learning items: %w", err)
	}
	defer rows.Close()

	items := []model.LearningItem{}
	for rows.Next() {
		var l model.LearningItem
		if err := rows.Scan(&l.ID, &l.Topic, &l.Category, &l.Status, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learning item: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate learning items: %w", err)
	}
	return items, nil
}

// Save は学習トピックをUPSERTする。
func (r *PostgresLearningRepo) Save(ctx context.Context, userID string, item model.LearningItem) error {
	return upsertLearning(ctx, r.db, userID, item)
}

// SaveAll は複数の学習トピックを同一トランザクションでUPSERTする。
func (r *PostgresLearningRepo) SaveAll(ctx context.Context, userID string, items []model.LearningItem) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, l := range dedupeByID(items) {
			if err := upsertLearning(ctx, tx, userID, l); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete は指定IDの学習トピックを削除する。
func (r *PostgresLearningRepo) Delete(ctx context.Context, userID, id string) error {
	return deleteRow(ctx, r.db, "learning_items", userID, id)
}

func upsertLearning(ctx context.Context, exec execer, userID string, l model.LearningItem) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO learning_items (user_id, id, topic, category, status, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, id) DO UPDATE SET
		   topic = EXCLUDED.topic,
		   category = EXCLUDED.category,
		   status = EXCLUDED.status,
		   notes = EXCLUDED.notes`,
		userID, l.ID, l.Topic, l.Category, string(l.Status), l.Notes, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert learning item: %w", err)
	}
	return nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

var (
	_ EntityRepository[model.Idea]         = (*PostgresIdeaRepo)(nil)
	_ EntityRepository[model.AppProject]   = (*PostgresAppRepo)(nil)
	_ EntityRepository[model.LearningItem] = (*PostgresLearningRepo)(nil)
)

// NewPostgresSet はPostgreSQL上のリポジトリ一式を生成する。
func NewPostgresSet(db *sql.DB) *Set {
	return &Set{
		Games:    NewPostgresGameRepo(db),
		Ideas:    NewPostgresIdeaRepo(db),
		Apps:     NewPostgresAppRepo(db),
		Learning: NewPostgresLearningRepo(db),
		Users:    NewPostgresUserRepo(db),
		Sessions: NewPostgresSessionRepo(db),
	}
}
