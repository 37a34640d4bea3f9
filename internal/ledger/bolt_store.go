package ledger

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	bolt "go.etcd.io/bbolt"
)

const (
	seenBucket    = "seen_ids"
	seqValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Each key is a seen ID and
// its value the insertion sequence, so Load can restore the original order.
type boltStore struct {
	db  *bolt.DB
	log logger.Logger
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, log logger.Logger) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(seenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, log: logger.Ensure(log)}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

type seqID struct {
	id  string
	seq uint64
}

// Load reads every stored ID ordered by insertion sequence.
func (b *boltStore) Load() *Set {
	if b == nil || b.db == nil {
		return NewSet()
	}

	var entries []seqID
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			seq, ok := decodeSeq(v)
			if !ok {
				// Unordered entries sort last but are still honoured.
				seq = ^uint64(0)
			}
			entries = append(entries, seqID{id: string(k), seq: seq})
			return nil
		})
	})
	if err != nil {
		b.log.ErrorObj("ledger read failed, starting empty", "ledger_error", map[string]any{
			"path":  b.db.Path(),
			"error": err.Error(),
		})
		return NewSet()
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	set := NewSet()
	for _, e := range entries {
		set.Add(e.id)
	}
	return set
}

// Save replaces the bucket contents with ids in a single transaction.
func (b *boltStore) Save(ids *Set) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(seenBucket)) != nil {
			if err := tx.DeleteBucket([]byte(seenBucket)); err != nil {
				return fmt.Errorf("reset bucket: %w", err)
			}
		}
		bucket, err := tx.CreateBucket([]byte(seenBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for i, id := range ids.IDs() {
			if err := bucket.Put([]byte(id), encodeSeq(uint64(i+1))); err != nil {
				return fmt.Errorf("put %q: %w", id, err)
			}
		}
		return nil
	})
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, seqValueBytes)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// decodeSeq decodes the insertion sequence from the stored byte slice.
func decodeSeq(value []byte) (uint64, bool) {
	if len(value) != seqValueBytes {
		return 0, false
	}
	return binary.BigEndian.Uint64(value), true
}
