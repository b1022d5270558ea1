// Package bolt реализует storage.Storage поверх встроенной базы bbolt.
// Каждый документ хранится в JSON под своим ID, изменения курсов и
// пользователей выполняются в одной транзакции Update.
package bolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/storage"
)

var (
	bucketUsers       = []byte("users")
	bucketUserEmails  = []byte("user_emails")
	bucketCourses     = []byte("courses")
	bucketTests       = []byte("tests")
	bucketActionTests = []byte("action_tests")
	bucketInfos       = []byte("infos")
)

var allBuckets = [][]byte{
	bucketUsers,
	bucketUserEmails,
	bucketCourses,
	bucketTests,
	bucketActionTests,
	bucketInfos,
}

// Storage реализует storage.Storage через bbolt.
type Storage struct {
	db *bbolt.DB
}

// Open открывает (или создаёт) файл базы и все бакеты.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w: %w", errs.ErrStorage, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w: %w", errs.ErrStorage, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w: %w", errs.ErrStorage, err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает базу.
func (s *Storage) Close() error {
	return s.db.Close()
}

// wrap приводит ошибку bbolt к виду errs.ErrStorage, не трогая ошибки домена.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, kind := range []error{errs.ErrNotFound, errs.ErrConflict, errs.ErrInvalidArgument, errs.ErrStorage} {
		if errors.Is(err, kind) {
			return err
		}
	}

	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
}

func getDoc[T any](tx *bbolt.Tx, bucket []byte, name, id string) (*T, error) {
	if err := storage.CheckID(id); err != nil {
		return nil, err
	}

	b := tx.Bucket(bucket)
	if b == nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket, bbolt.ErrBucketNotFound)
	}

	v := b.Get([]byte(id))
	if v == nil {
		return nil, fmt.Errorf("%s %s: %w", name, id, errs.ErrNotFound)
	}

	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w: %w", name, id, errs.ErrStorage, err)
	}

	return &out, nil
}

func putDoc[T any](tx *bbolt.Tx, bucket []byte, name, id string, v *T) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return fmt.Errorf("bucket %s: %w", bucket, bbolt.ErrBucketNotFound)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w: %w", name, id, errs.ErrStorage, err)
	}

	return b.Put([]byte(id), data)
}

// insertDoc сохраняет новый документ, не перезаписывая существующий.
func insertDoc[T any](s *Storage, bucket []byte, name, id string, v *T) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucket).Get([]byte(id)) != nil {
			return fmt.Errorf("%s %s: %w", name, id, errs.ErrConflict)
		}
		return putDoc(tx, bucket, name, id, v)
	})

	return wrap("insert "+name, err)
}

func loadDoc[T any](s *Storage, bucket []byte, name, id string) (*T, error) {
	var out *T
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = getDoc[T](tx, bucket, name, id)
		return err
	})
	if err != nil {
		return nil, wrap("get "+name, err)
	}

	return out, nil
}

// updateDoc читает, изменяет и записывает документ в одной транзакции.
func updateDoc[T any](s *Storage, bucket []byte, name, id string, fn func(*T) error) error {
	var fnErr error
	err := s.db.Update(func(tx *bbolt.Tx) error {
		v, err := getDoc[T](tx, bucket, name, id)
		if err != nil {
			return err
		}

		if fnErr = fn(v); fnErr != nil {
			return fnErr
		}

		return putDoc(tx, bucket, name, id, v)
	})
	if fnErr != nil {
		if errors.Is(fnErr, storage.ErrSkipWrite) {
			return nil
		}
		return fnErr
	}

	return wrap("update "+name, err)
}

func deleteDoc(s *Storage, bucket []byte, name, id string) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s %s: %w", name, id, errs.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})

	return wrap("delete "+name, err)
}

// listDocs возвращает документы бакета, прошедшие фильтр, в порядке ключей.
func listDocs[T any](s *Storage, bucket []byte, name string, keep func(*T) bool) ([]*T, error) {
	out := make([]*T, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var doc T
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode %s %s: %w: %w", name, string(k), errs.ErrStorage, err)
			}
			if keep == nil || keep(&doc) {
				out = append(out, &doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap("list "+name, err)
	}

	return out, nil
}
