package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/vjranagit/pricefeed/pkg/types"
)

var (
	// ErrNotFound is returned when a pair has no stored records.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable is returned when the underlying medium cannot
	// be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the contract for the ordered price-record store.
type Store interface {
	// Put durably upserts the record at its (pair, timestamp) key.
	Put(ctx context.Context, rec types.Record) error

	// Latest returns the record with the greatest timestamp for the
	// pair, or ErrNotFound.
	Latest(ctx context.Context, pair string) (*types.Record, error)

	// Range returns the pair's records with from <= timestamp <= to,
	// ascending by timestamp.
	Range(ctx context.Context, pair string, from, to int64) ([]types.Record, error)

	// Series returns the distinct pairs present in the store, in key
	// order.
	Series(ctx context.Context) ([]string, error)

	// Records returns a lazy iterator over every record in store order.
	Records() *Iterator

	// Close closes the store.
	Close() error
}

// Config holds store configuration.
type Config struct {
	Path string
}

// DefaultConfig returns default store configuration.
func DefaultConfig() *Config {
	return &Config{Path: "./data"}
}

// badgerStore implements Store using BadgerDB.
type badgerStore struct {
	cfg *Config
	db  *badger.DB
}

// NewStore opens (or creates) a store at cfg.Path.
func NewStore(cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // Disable BadgerDB logging
	// Put must be durable before it returns.
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrStoreUnavailable, err)
	}

	return &badgerStore{cfg: cfg, db: db}, nil
}

// recordValue is the persisted value payload. The pair and timestamp live
// in the key only.
type recordValue struct {
	AveragePrice float64  `json:"averagePrice"`
	Exchanges    []string `json:"exchanges"`
}

// Put implements Store.Put.
func (s *badgerStore) Put(ctx context.Context, rec types.Record) error {
	if err := validatePair(rec.Pair); err != nil {
		return err
	}

	val, err := json.Marshal(recordValue{
		AveragePrice: rec.AveragePrice,
		Exchanges:    rec.Exchanges,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := encodeKey(rec.Pair, rec.Timestamp)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: put %s@%d: %v", ErrStoreUnavailable, rec.Pair, rec.Timestamp, err)
	}
	return nil
}

// Latest implements Store.Latest with a bounded reverse scan: seek to the
// pair's upper key bound and take the first key still inside the prefix.
func (s *badgerStore) Latest(ctx context.Context, pair string) (*types.Record, error) {
	if err := validatePair(pair); err != nil {
		return nil, err
	}

	var rec *types.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = seriesPrefix(pair)

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(seriesUpperBound(pair))
		if !it.Valid() {
			return ErrNotFound
		}

		r, err := itemToRecord(it.Item())
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: latest %s: %v", ErrStoreUnavailable, pair, err)
	}
	return rec, nil
}

// Range implements Store.Range. Both bounds are inclusive. The scan is
// prefix-bounded, so it stops at the pair's last key and never reads into
// an adjacent pair.
func (s *badgerStore) Range(ctx context.Context, pair string, from, to int64) ([]types.Record, error) {
	if err := validatePair(pair); err != nil {
		return nil, err
	}

	records := []types.Record{}
	if from > to {
		return records, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seriesPrefix(pair)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(encodeKey(pair, from)); it.Valid(); it.Next() {
			rec, err := itemToRecord(it.Item())
			if err != nil {
				return err
			}
			if rec.Timestamp > to {
				break
			}
			records = append(records, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: range %s: %v", ErrStoreUnavailable, pair, err)
	}
	return records, nil
}

// Series implements Store.Series by seek-skipping from one pair prefix to
// the next instead of touching every key.
func (s *badgerStore) Series(ctx context.Context) ([]string, error) {
	var pairs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		for it.Valid() {
			pair, _, err := decodeKey(it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			pairs = append(pairs, pair)

			// First key past every record of this pair: the separator
			// is 0x00, so pair+0x01 sorts above them all.
			next := append([]byte(pair), keySeparator+1)
			it.Seek(next)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: series: %v", ErrStoreUnavailable, err)
	}
	return pairs, nil
}

// Records implements Store.Records.
func (s *badgerStore) Records() *Iterator {
	return newIterator(s.db)
}

// Close implements Store.Close.
func (s *badgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// itemToRecord decodes one badger item into a Record.
func itemToRecord(item *badger.Item) (*types.Record, error) {
	pair, ts, err := decodeKey(item.KeyCopy(nil))
	if err != nil {
		return nil, err
	}

	var val recordValue
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &val)
	})
	if err != nil {
		return nil, fmt.Errorf("decode value for %s@%d: %w", pair, ts, err)
	}

	return &types.Record{
		Pair:         pair,
		Timestamp:    ts,
		AveragePrice: val.AveragePrice,
		Exchanges:    val.Exchanges,
	}, nil
}
