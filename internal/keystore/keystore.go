// Package keystore persists proving and verifying keys in Pebble so the
// verification key stays stable across restarts. Values are zstd
// compressed.
package keystore

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
)

const keyPrefix = "keys/"

// PebbleStore is safe for concurrent use.
type PebbleStore struct {
	db      *pebble.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func Open(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		Cache: pebble.NewCache(8 << 20),
	})
	if err != nil {
		return nil, fmt.Errorf("open key store %s: %w", path, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	return &PebbleStore{db: db, encoder: encoder, decoder: decoder}, nil
}

func storeKey(system, imageID string) []byte {
	return []byte(keyPrefix + system + "/" + imageID)
}

// LoadKeys returns found=false when nothing is stored for the image.
func (s *PebbleStore) LoadKeys(system, imageID string) ([]byte, bool, error) {
	value, closer, err := s.db.Get(storeKey(system, imageID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	// DecodeAll copies out of value, which is invalid after Close
	keys, err := s.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s keys: %w", system, err)
	}
	return keys, true, nil
}

// SaveKeys writes synchronously; keys are written once per image.
func (s *PebbleStore) SaveKeys(system, imageID string, keys []byte) error {
	compressed := s.encoder.EncodeAll(keys, nil)
	return s.db.Set(storeKey(system, imageID), compressed, pebble.Sync)
}

// Images lists the image ids with stored keys for system.
func (s *PebbleStore) Images(system string) ([]string, error) {
	prefix := []byte(keyPrefix + system + "/")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var images []string
	for iter.First(); iter.Valid(); iter.Next() {
		images = append(images, string(iter.Key()[len(prefix):]))
	}
	return images, iter.Error()
}

func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}

func (s *PebbleStore) Close() error {
	s.decoder.Close()
	if err := s.encoder.Close(); err != nil {
		return err
	}
	return s.db.Close()
}
