// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package chunkstore keeps decrunched chunks on disk,
// keyed by format, a hash of the compressed chunk and the decompressed size.
package chunkstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/cockroachdb/pebble/v2"
)

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key is the database key for a chunk
func Key(format string, sum uint64, size int) []byte {
	k := make([]byte, 0, len(format)+12)
	k = append(k, format...)
	k = binary.BigEndian.AppendUint64(k, sum)
	k = binary.BigEndian.AppendUint32(k, uint32(size))
	return k
}

func (s *Store) Get(format string, sum uint64, size int) ([]byte, bool) {
	val, closer, err := s.db.Get(Key(format, sum, size))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false
	} else if err != nil {
		slog.Warn("chunkStoreGet", "format", format, "err", err)
		return nil, false
	}
	defer closer.Close()
	if len(val) != size {
		slog.Warn("chunkStoreBadSize", "format", format, "want", size, "got", len(val))
		return nil, false
	}
	return bytes.Clone(val), true
}

func (s *Store) Put(format string, sum uint64, data []byte) error {
	return s.db.Set(Key(format, sum, len(data)), data, pebble.Sync)
}
