// Package store persists scan sessions in a local Badger database.
//
// Each session lives under three key families so summaries can be listed
// without loading result sets: a summary record, numbered classification
// records, and numbered duplicate group records. One extra key remembers
// the last session's worker count to warm start the next scheduler.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Key prefixes for the session key families.
const (
	prefixSummary = "s:" // s:<session-id> -> ScanSummary
	prefixClass   = "c:" // c:<session-id>:<seq> -> Classification
	prefixGroup   = "g:" // g:<session-id>:<seq> -> DuplicateGroup
	keyWorkers    = "w:last"
)

// ErrNoSession is returned when a session id is not in the store.
var ErrNoSession = errors.New("session not found")

// Session is one stored scan run.
type Session struct {
	Summary         types.ScanSummary      `json:"summary"`
	Classifications []types.Classification `json:"classifications"`
	Groups          []types.DuplicateGroup `json:"groups"`
}

// Store is scan history backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession writes a full session in one batch. The summary's SessionID
// keys every record, so saving the same id twice overwrites the summary
// but may leave stale numbered records behind; callers use fresh ids.
func (s *Store) SaveSession(sess Session) error {
	id := sess.Summary.SessionID
	if id == "" {
		return errors.New("session id is empty")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	data, err := json.Marshal(sess.Summary)
	if err != nil {
		return err
	}
	if err := wb.Set([]byte(prefixSummary+id), data); err != nil {
		return err
	}

	for i, cls := range sess.Classifications {
		data, err := json.Marshal(cls)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s%s:%08d", prefixClass, id, i)
		if err := wb.Set([]byte(key), data); err != nil {
			return err
		}
	}

	for i, group := range sess.Groups {
		data, err := json.Marshal(group)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s%s:%08d", prefixGroup, id, i)
		if err := wb.Set([]byte(key), data); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// Summaries returns stored summaries newest first. A positive limit trims
// the result.
func (s *Store) Summaries(limit int) ([]types.ScanSummary, error) {
	var results []types.ScanSummary

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSummary)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var summary types.ScanSummary
				if err := json.Unmarshal(val, &summary); err != nil {
					return nil // Skip invalid entries
				}
				results = append(results, summary)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Started.After(results[j].Started)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Session loads one full session by id.
func (s *Store) Session(id string) (Session, error) {
	var sess Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixSummary + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess.Summary)
		}); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		classPrefix := []byte(prefixClass + id + ":")
		for it.Seek(classPrefix); it.ValidForPrefix(classPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var cls types.Classification
				if err := json.Unmarshal(val, &cls); err != nil {
					return nil // Skip invalid entries
				}
				sess.Classifications = append(sess.Classifications, cls)
				return nil
			})
			if err != nil {
				return err
			}
		}

		groupPrefix := []byte(prefixGroup + id + ":")
		for it.Seek(groupPrefix); it.ValidForPrefix(groupPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var group types.DuplicateGroup
				if err := json.Unmarshal(val, &group); err != nil {
					return nil // Skip invalid entries
				}
				sess.Groups = append(sess.Groups, group)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Prune deletes the oldest sessions beyond maxSessions and returns how
// many were removed. Non-positive maxSessions keeps everything.
func (s *Store) Prune(maxSessions int) (int, error) {
	if maxSessions <= 0 {
		return 0, nil
	}

	summaries, err := s.Summaries(0)
	if err != nil {
		return 0, err
	}
	if len(summaries) <= maxSessions {
		return 0, nil
	}

	doomed := summaries[maxSessions:]
	for _, summary := range doomed {
		if err := s.deleteSession(summary.SessionID); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}

// deleteSession removes every key belonging to one session.
func (s *Store) deleteSession(id string) error {
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range [][]byte{
			[]byte(prefixSummary + id),
			[]byte(prefixClass + id + ":"),
			[]byte(prefixGroup + id + ":"),
		} {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// SaveWorkerHint remembers the final worker count for warm starts.
func (s *Store) SaveWorkerHint(workers int) error {
	if workers < 1 {
		return nil
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(workers))

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyWorkers), val)
	})
}

// WorkerHint returns the stored worker count, if any.
func (s *Store) WorkerHint() (int, bool) {
	var workers int

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyWorkers))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return nil // Invalid entry
			}
			workers = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil || workers < 1 {
		return 0, false
	}
	return workers, true
}
