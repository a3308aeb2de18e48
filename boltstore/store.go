// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package boltstore persists serialized tilesim boards in a bbolt
// database. Boards are stored by name in a single bucket, as the JSON
// encoding of their tilesim.BoardData.
//
package boltstore

import (
	"encoding/json"
	"log"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	sim "github.com/db47h/tilesim"
)

var bucketBoards = []byte("boards")

// A Store is a named-board database. The zero value is not usable; use
// Open.
//
type Store struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

// Open opens (creating if needed) the board database at filename.
func Open(filename string) (*Store, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(filename, 0644, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening board store %s", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBoards)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating boards bucket")
	}
	return &Store{filename: filename, db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) logf(format string, args ...any) {
	if s.Debug {
		log.Printf("boltstore."+format, args...)
	}
}

// SaveBoard stores a serialized board under name, replacing any
// previous version.
func (s *Store) SaveBoard(name string, data *sim.BoardData) error {
	s.logf("SaveBoard %s", name)
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "encoding board %s", name)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBoards).Put([]byte(name), raw)
	})
}

// LoadBoard returns the serialized board stored under name.
func (s *Store) LoadBoard(name string) (*sim.BoardData, error) {
	s.logf("LoadBoard %s", name)
	var data *sim.BoardData
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketBoards).Get([]byte(name))
		if raw == nil {
			return errors.Errorf("no board %q", name)
		}
		data = &sim.BoardData{}
		return errors.Wrapf(json.Unmarshal(raw, data), "decoding board %s", name)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteBoard removes the board stored under name. Deleting a missing
// board is a no-op.
func (s *Store) DeleteBoard(name string) error {
	s.logf("DeleteBoard %s", name)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBoards).Delete([]byte(name))
	})
}

// ListBoards returns the stored board names in key order.
func (s *Store) ListBoards() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBoards).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
