package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/storage"
)

// Коллекции документов.
const (
	collUsers       = "users"
	collCourses     = "courses"
	collTests       = "tests"
	collActionTests = "action_tests"
	collInfos       = "infos"
)

const uniqueViolation = "23505"

// Storage хранит документы в одной таблице с JSONB телом.
type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w: %w", errs.ErrInvalidArgument, err)
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w: %w", errs.ErrStorage, err)
	}

	return &Storage{pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Migrate создаёт таблицу документов и индексы.
func (s *Storage) Migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT  NOT NULL,
		id         TEXT  NOT NULL,
		body       JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS documents_user_email
		ON documents ((body->>'email')) WHERE collection = 'users';
	CREATE INDEX IF NOT EXISTS documents_body ON documents USING GIN (body jsonb_path_ops);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("migrate: %w: %w", errs.ErrStorage, err)
	}

	return nil
}

func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, errs.ErrConflict, pgErr.Detail)
	}

	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
}

func insertDoc[T any](ctx context.Context, s *Storage, coll, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w: %w", coll, id, errs.ErrStorage, err)
	}

	query := `
	INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)
	`

	if _, err = s.pool.Exec(ctx, query, coll, id, string(data)); err != nil {
		return storageErr("insert "+coll, err)
	}

	return nil
}

func scanDoc[T any](row pgx.Row, coll, id string) (*T, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", coll, id, errs.ErrNotFound)
		}
		return nil, storageErr("get "+coll, err)
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w: %w", coll, id, errs.ErrStorage, err)
	}

	return &out, nil
}

func getDoc[T any](ctx context.Context, s *Storage, coll, id string) (*T, error) {
	if err := storage.CheckID(id); err != nil {
		return nil, err
	}

	query := `
	SELECT body FROM documents WHERE collection = $1 AND id = $2
	`

	return scanDoc[T](s.pool.QueryRow(ctx, query, coll, id), coll, id)
}

// updateDoc блокирует строку документа до конца транзакции, поэтому
// параллельные изменения одного курса применяются по очереди.
func updateDoc[T any](ctx context.Context, s *Storage, coll, id string, fn func(*T) error) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}

	var fnErr error
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		query := `
		SELECT body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE
		`

		v, err := scanDoc[T](tx.QueryRow(ctx, query, coll, id), coll, id)
		if err != nil {
			return err
		}

		if fnErr = fn(v); fnErr != nil {
			return fnErr
		}

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w: %w", coll, id, errs.ErrStorage, err)
		}

		query = `
		UPDATE documents SET body = $3 WHERE collection = $1 AND id = $2
		`

		if _, err = tx.Exec(ctx, query, coll, id, string(data)); err != nil {
			return storageErr("update "+coll, err)
		}

		return nil
	})
	if fnErr != nil {
		if errors.Is(fnErr, storage.ErrSkipWrite) {
			return nil
		}
		return fnErr
	}
	if err != nil {
		if isDomainErr(err) {
			return err
		}
		return storageErr("update "+coll, err)
	}

	return nil
}

func isDomainErr(err error) bool {
	for _, kind := range []error{errs.ErrNotFound, errs.ErrConflict, errs.ErrInvalidArgument, errs.ErrStorage} {
		if errors.Is(err, kind) {
			return true
		}
	}

	return false
}

func deleteDoc(ctx context.Context, s *Storage, coll, id string) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}

	query := `
	DELETE FROM documents WHERE collection = $1 AND id = $2
	`

	tag, err := s.pool.Exec(ctx, query, coll, id)
	if err != nil {
		return storageErr("delete "+coll, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", coll, id, errs.ErrNotFound)
	}

	return nil
}

// findDocs возвращает документы, тело которых содержит filter (оператор @>).
// Пустой filter выбирает всю коллекцию.
func findDocs[T any](ctx context.Context, s *Storage, coll string, filter map[string]any) ([]*T, error) {
	if filter == nil {
		filter = map[string]any{}
	}

	rawFilter, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w: %w", errs.ErrInvalidArgument, err)
	}

	query := `
	SELECT id, body FROM documents WHERE collection = $1 AND body @> $2 ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, coll, string(rawFilter))
	if err != nil {
		return nil, storageErr("find "+coll, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err = rows.Scan(&id, &data); err != nil {
			return nil, storageErr("scan "+coll, err)
		}

		var doc T
		if err = json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w: %w", coll, id, errs.ErrStorage, err)
		}
		out = append(out, &doc)
	}
	if err = rows.Err(); err != nil {
		return nil, storageErr("find "+coll, err)
	}

	return out, nil
}
