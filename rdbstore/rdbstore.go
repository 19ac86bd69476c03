// Package rdbstore implements persistence collaborators that keep payoff
// engine data in a RocksDB database, rather than in memory.
//
// The payoff engine itself is purely in-memory; these components let an
// orchestrator journal simulation results durably and rebuild a manager's
// payoff state by replay.
package rdbstore

import (
	rocksdb "github.com/tecbot/gorocksdb"
)

type Params struct {
	Path         string
	Options      *rocksdb.Options
	ReadOptions  *rocksdb.ReadOptions
	WriteOptions *rocksdb.WriteOptions
}

func DefaultParams(path string) Params {
	opts := rocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	return Params{
		Path:         path,
		Options:      opts,
		ReadOptions:  rocksdb.NewDefaultReadOptions(),
		WriteOptions: rocksdb.NewDefaultWriteOptions(),
	}
}

func (p Params) Close() {
	p.Options.Destroy()
	p.ReadOptions.Destroy()
	p.WriteOptions.Destroy()
}
