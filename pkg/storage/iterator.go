package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/vjranagit/pricefeed/pkg/types"
)

// Iterator is a lazy, finite, restartable walk over every record in store
// order (pair, then timestamp ascending). It holds a read transaction
// open, so callers must Close it.
//
//	it := store.Records()
//	defer it.Close()
//	for it.Next() {
//	    rec := it.Record()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	rec     *types.Record
	err     error
	started bool
}

func newIterator(db *badger.DB) *Iterator {
	txn := db.NewTransaction(false)
	return &Iterator{
		txn: txn,
		it:  txn.NewIterator(badger.DefaultIteratorOptions),
	}
}

// Next advances to the next record. It returns false at the end of the
// store or on a decode error; check Err afterwards.
func (i *Iterator) Next() bool {
	if i.err != nil {
		return false
	}

	if !i.started {
		i.it.Rewind()
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.rec = nil
		return false
	}

	rec, err := itemToRecord(i.it.Item())
	if err != nil {
		i.err = err
		i.rec = nil
		return false
	}
	i.rec = rec
	return true
}

// Record returns the record at the current position. Valid only after a
// Next that returned true.
func (i *Iterator) Record() *types.Record {
	return i.rec
}

// Rewind restarts the walk from the first record.
func (i *Iterator) Rewind() {
	i.started = false
	i.rec = nil
	i.err = nil
}

// Err returns the first error hit while iterating, if any.
func (i *Iterator) Err() error {
	return i.err
}

// Close releases the iterator and its read transaction.
func (i *Iterator) Close() {
	i.it.Close()
	i.txn.Discard()
}
