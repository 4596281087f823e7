package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Key layout: pair bytes, a 0x00 separator, then the timestamp as an
// 8-byte big-endian offset-binary int64 (sign bit flipped). Big-endian
// with the flipped sign bit makes byte order equal numeric order across
// the full int64 range, and the separator sits below every byte allowed
// in a pair symbol, so adjacent pair prefixes never interleave.

const keySeparator = 0x00

// encodeKey builds the storage key for one (pair, timestamp) record.
func encodeKey(pair string, timestamp int64) []byte {
	key := make([]byte, 0, len(pair)+1+8)
	key = append(key, pair...)
	key = append(key, keySeparator)
	key = binary.BigEndian.AppendUint64(key, uint64(timestamp)^(1<<63))
	return key
}

// decodeKey splits a storage key back into its pair and timestamp.
func decodeKey(key []byte) (string, int64, error) {
	sep := bytes.LastIndexByte(key, keySeparator)
	if sep < 0 || len(key)-sep-1 != 8 {
		return "", 0, fmt.Errorf("malformed storage key %q", key)
	}
	ts := int64(binary.BigEndian.Uint64(key[sep+1:]) ^ (1 << 63))
	return string(key[:sep]), ts, nil
}

// seriesPrefix returns the common prefix of every key for a pair,
// separator included.
func seriesPrefix(pair string) []byte {
	prefix := make([]byte, 0, len(pair)+1)
	prefix = append(prefix, pair...)
	return append(prefix, keySeparator)
}

// seriesUpperBound returns the greatest possible key for a pair, used as
// the seek target for reverse iteration.
func seriesUpperBound(pair string) []byte {
	return encodeKey(pair, math.MaxInt64)
}

// validatePair rejects pair symbols the key encoding cannot represent.
func validatePair(pair string) error {
	if pair == "" {
		return fmt.Errorf("empty pair symbol")
	}
	if strings.IndexByte(pair, keySeparator) >= 0 {
		return fmt.Errorf("pair symbol %q contains a NUL byte", pair)
	}
	return nil
}
