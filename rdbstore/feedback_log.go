package rdbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	rocksdb "github.com/tecbot/gorocksdb"

	"github.com/apexrl/malib"
)

// FeedbackLog journals rollout feedback in arrival order in a RocksDB
// database. Replaying the journal into a fresh PayoffManager reproduces its
// payoff tables exactly, since table updates are deterministic given the
// feedback stream.
//
// Like the engine it serves, a FeedbackLog expects a single caller.
type FeedbackLog struct {
	params Params
	db     *rocksdb.DB
	n      uint64
}

// NewFeedbackLog opens (or creates) a feedback journal at the given path.
// The sequence counter resumes after any entries already present.
func NewFeedbackLog(params Params) (*FeedbackLog, error) {
	db, err := rocksdb.OpenDb(params.Options, params.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening feedback log")
	}

	log := &FeedbackLog{params: params, db: db}

	it := db.NewIterator(params.ReadOptions)
	defer it.Close()
	it.SeekToLast()
	if it.Valid() {
		key := it.Key()
		log.n = binary.BigEndian.Uint64(key.Data()) + 1
		key.Free()
	}
	if err := it.Err(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "recovering feedback log sequence")
	}

	glog.V(1).Infof("Opened feedback log at %v with %d entries", params.Path, log.n)
	return log, nil
}

// Close implements io.Closer.
func (l *FeedbackLog) Close() error {
	l.db.Close()
	return nil
}

// Len returns the number of journaled entries.
func (l *FeedbackLog) Len() int {
	return int(l.n)
}

// Append journals one rollout feedback entry.
func (l *FeedbackLog) Append(feedback malib.RolloutFeedback) error {
	// Fixed-width big-endian keys keep RocksDB iteration in append order.
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], l.n)

	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(feedback); err != nil {
		return errors.Wrap(err, "encoding feedback")
	}

	if err := l.db.Put(l.params.WriteOptions, key[:], value.Bytes()); err != nil {
		return errors.Wrap(err, "writing feedback")
	}

	l.n++
	return nil
}

// Replay visits every journaled entry in append order. Replay stops at the
// first error returned by fn.
func (l *FeedbackLog) Replay(fn func(malib.RolloutFeedback) error) error {
	it := l.db.NewIterator(l.params.ReadOptions)
	defer it.Close()

	n := 0
	for it.SeekToFirst(); it.Valid(); it.Next() {
		value := it.Value()
		var feedback malib.RolloutFeedback
		err := gob.NewDecoder(bytes.NewReader(value.Data())).Decode(&feedback)
		value.Free()
		it.Key().Free()
		if err != nil {
			return errors.Wrapf(err, "decoding feedback entry %d", n)
		}

		if err := fn(feedback); err != nil {
			return err
		}
		n++
	}

	if err := it.Err(); err != nil {
		return errors.Wrap(err, "iterating feedback log")
	}

	glog.V(1).Infof("Replayed %d feedback entries", n)
	return nil
}
