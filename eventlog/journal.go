// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package eventlog keeps an ordered, durable record of governance events in
// a LevelDB database.
package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mccoysc/tokengov/governance"
)

var (
	// eventPrefix + seq (uint64 big endian) -> RLP(event)
	eventPrefix = []byte("ev")

	ErrClosed       = errors.New("journal closed")
	ErrOutOfOrder   = errors.New("event sequence not increasing")
	ErrMissingEvent = errors.New("journal has no events")
)

// Journal is a LevelDB backed event log. Events must be appended in
// increasing sequence order.
type Journal struct {
	mu      sync.Mutex
	db      *leveldb.DB
	lastSeq uint64
	closed  bool
}

var _ governance.Journal = (*Journal)(nil)

// Open opens or creates a journal in the directory at path.
func Open(path string) (*Journal, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	j, err := newJournal(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Opened event journal", "path", path, "last", j.lastSeq)
	return j, nil
}

// NewMemory creates a journal that lives in memory only.
func NewMemory() *Journal {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// memory storage cannot fail to open
		panic(err)
	}
	j, _ := newJournal(db)
	return j
}

func newJournal(db *leveldb.DB) (*Journal, error) {
	j := &Journal{db: db}
	it := db.NewIterator(util.BytesPrefix(eventPrefix), nil)
	defer it.Release()

	if it.Last() {
		seq, err := seqOf(it.Key())
		if err != nil {
			return nil, err
		}
		j.lastSeq = seq
	}
	return j, it.Error()
}

// Append stores ev. Sequence numbers must be strictly increasing.
func (j *Journal) Append(ev governance.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if ev.Seq <= j.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, ev.Seq, j.lastSeq)
	}
	if ev.Amount == nil {
		ev.Amount = new(uint256.Int)
	}
	blob, err := rlp.EncodeToBytes(&ev)
	if err != nil {
		return err
	}
	if err := j.db.Put(eventKey(ev.Seq), blob, nil); err != nil {
		return err
	}
	j.lastSeq = ev.Seq
	return nil
}

// Events returns all stored events with a sequence number of at least from,
// in order.
func (j *Journal) Events(from uint64) ([]governance.Event, error) {
	var events []governance.Event
	err := j.Iterate(from, func(ev governance.Event) bool {
		events = append(events, ev)
		return true
	})
	return events, err
}

// Iterate calls fn for every event from sequence from onwards until fn
// returns false.
func (j *Journal) Iterate(from uint64, fn func(governance.Event) bool) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	snap, err := j.db.GetSnapshot()
	j.mu.Unlock()
	if err != nil {
		return err
	}
	defer snap.Release()

	rng := util.BytesPrefix(eventPrefix)
	rng.Start = eventKey(from)
	it := snap.NewIterator(rng, nil)
	defer it.Release()

	for it.Next() {
		var ev governance.Event
		if err := rlp.DecodeBytes(it.Value(), &ev); err != nil {
			return fmt.Errorf("corrupt event %x: %w", it.Key(), err)
		}
		if !fn(ev) {
			break
		}
	}
	return it.Error()
}

// Last returns the most recently appended event.
func (j *Journal) Last() (governance.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var ev governance.Event
	if j.closed {
		return ev, ErrClosed
	}
	if j.lastSeq == 0 {
		return ev, ErrMissingEvent
	}
	blob, err := j.db.Get(eventKey(j.lastSeq), nil)
	if err != nil {
		return ev, err
	}
	err = rlp.DecodeBytes(blob, &ev)
	return ev, err
}

// LastSeq returns the sequence number of the last stored event, 0 if none.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.lastSeq
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

func seqOf(key []byte) (uint64, error) {
	if len(key) != len(eventPrefix)+8 {
		return 0, fmt.Errorf("malformed event key %x", key)
	}
	return binary.BigEndian.Uint64(key[len(eventPrefix):]), nil
}
