package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/vjranagit/pricefeed/pkg/types"
)

// Snapshot export: records in store order, one JSON document per line,
// zstd-compressed. A snapshot is a read-only consumer of the store's
// iterator and never mutates the store.

// encoderLevel maps the numeric config level onto zstd presets.
func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 3:
		return zstd.SpeedBetterCompression
	case 4:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// WriteSnapshot streams every record the iterator yields into a compressed
// snapshot file at path. It returns the number of records written.
func WriteSnapshot(path string, it *Iterator, compressionLevel int) (int, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	defer file.Close()

	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(encoderLevel(compressionLevel)))
	if err != nil {
		return 0, fmt.Errorf("create encoder: %w", err)
	}

	writer := bufio.NewWriter(enc)
	count := 0

	for it.Next() {
		line, err := json.Marshal(it.Record())
		if err != nil {
			return count, fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return count, fmt.Errorf("write snapshot: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return count, fmt.Errorf("write snapshot: %w", err)
		}
		count++
	}
	if err := it.Err(); err != nil {
		return count, fmt.Errorf("iterate store: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return count, fmt.Errorf("flush snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return count, fmt.Errorf("close encoder: %w", err)
	}
	if err := file.Sync(); err != nil {
		return count, fmt.Errorf("sync snapshot: %w", err)
	}
	return count, nil
}

// ReadSnapshot replays a snapshot file, calling handler for each record in
// file order.
func ReadSnapshot(path string, handler func(types.Record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec types.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("unmarshal snapshot record: %w", err)
		}
		if err := handler(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}
