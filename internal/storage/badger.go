package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"skyrelay/internal/domain"
)

const (
	seenPrefix  = "seen:"
	tokenKey    = "token:bluesky"
	cachePrefix = "preview:"
)

// BadgerStore implements Store on top of a single BadgerDB database.
// Seen posts, the bearer token and cached preview documents share the
// database under distinct key prefixes.
type BadgerStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the database at dbPath.
func NewBadgerStore(dbPath string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}

	return &BadgerStore{
		db:  db,
		log: logger.WithField("component", "storage"),
	}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	s.log.Info("Closing store")
	return s.db.Close()
}

func seenKey(uri string) []byte {
	return []byte(seenPrefix + uri)
}

// LoadSeen returns the posts recorded by the last completed cycle.
// The returned order follows key order, which is fine for dedup: only the
// URI set matters on the seen side.
func (s *BadgerStore) LoadSeen(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(seenPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var post domain.Post
				if err := json.Unmarshal(val, &post); err != nil {
					return fmt.Errorf("failed to unmarshal post for key %s: %w", string(item.Key()), err)
				}
				posts = append(posts, post)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load seen posts: %w", err)
	}

	return posts, nil
}

// ReplaceSeen swaps the recorded set for posts in one transaction, so a
// reader never observes a half-written cycle.
func (s *BadgerStore) ReplaceSeen(ctx context.Context, posts []domain.Post) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		prefix := []byte(seenPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, post := range posts {
			b, err := json.Marshal(post)
			if err != nil {
				return fmt.Errorf("failed to marshal post %s: %w", post.URI, err)
			}
			if err := txn.Set(seenKey(post.URI), b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace seen posts: %w", err)
	}

	s.log.WithField("count", len(posts)).Debug("Seen set replaced")
	return nil
}

// Token returns the stored bearer token, or ErrNotFound if none exists.
func (s *BadgerStore) Token(ctx context.Context) (string, error) {
	var token string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}

	return token, nil
}

// SetToken replaces the stored bearer token.
func (s *BadgerStore) SetToken(ctx context.Context, token string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tokenKey), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetPreview returns the cached document for key, or ErrNotFound on a miss.
// Expired entries are reported as misses by Badger itself.
func (s *BadgerStore) GetPreview(ctx context.Context, key string) ([]byte, error) {
	var doc []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cachePrefix + key))
		if err != nil {
			return err
		}
		doc, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached preview %s: %w", key, err)
	}

	return doc, nil
}

// SetPreview stores doc under key with the given TTL.
func (s *BadgerStore) SetPreview(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cachePrefix+key), doc).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to cache preview %s: %w", key, err)
	}
	return nil
}

// RunGC reclaims value-log space on an interval until ctx is cancelled.
// Badger requires periodic GC; it is not automatic.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				s.log.Debug("Value log GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				// Nothing to reclaim this round.
			default:
				s.log.WithError(err).Error("Value log GC failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Infof(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
