// Package dbtest holds a conformance suite for ledgerdb.KeyValueStore
// implementations.
package dbtest

import (
	"bytes"
	"sort"
	"testing"

	"github.com/solana-developers/Confidential-Transfer-Sample/ledgerdb"
	"github.com/stretchr/testify/assert"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() ledgerdb.KeyValueStore) {
	t.Run("Iterator", func(t *testing.T) {
		tests := []struct {
			content map[string]string
			prefix  string
			start   string
			order   []string
		}{
			// Empty databases should be iterable
			{map[string]string{}, "", "", nil},
			{map[string]string{}, "non-existent-prefix", "", nil},

			// Single-item databases should be iterable
			{map[string]string{"key": "val"}, "", "", []string{"key"}},
			{map[string]string{"key": "val"}, "k", "", []string{"key"}},
			{map[string]string{"key": "val"}, "l", "", nil},

			// Multi-item databases should be fully iterable
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"k", "",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			// Prefix and start position combined
			{
				map[string]string{"ka1": "va1", "ka2": "va2", "kb1": "vb1", "kb2": "vb2"},
				"ka", "2",
				[]string{"ka2"},
			},
			{
				map[string]string{"ka1": "va1", "ka2": "va2", "kb1": "vb1", "kb2": "vb2"},
				"kb", "",
				[]string{"kb1", "kb2"},
			},
		}
		for i, tt := range tests {
			db := New()
			for key, val := range tt.content {
				if err := db.Put([]byte(key), []byte(val)); err != nil {
					t.Fatalf("test %d: failed to insert item %s:%s into database: %v", i, key, val, err)
				}
			}
			it := db.NewIterator([]byte(tt.prefix), []byte(tt.start))
			idx := 0
			for it.Next() {
				if len(tt.order) <= idx {
					t.Errorf("test %d: prefix=%q more items than expected: checking idx=%d (key %q), expecting len=%d", i, tt.prefix, idx, it.Key(), len(tt.order))
					break
				}
				if !bytes.Equal(it.Key(), []byte(tt.order[idx])) {
					t.Errorf("test %d: item %d: key mismatch: have %s, want %s", i, idx, string(it.Key()), tt.order[idx])
				}
				if !bytes.Equal(it.Value(), []byte(tt.content[tt.order[idx]])) {
					t.Errorf("test %d: item %d: value mismatch: have %s, want %s", i, idx, string(it.Value()), tt.content[tt.order[idx]])
				}
				idx++
			}
			if err := it.Error(); err != nil {
				t.Errorf("test %d: iteration failed: %v", i, err)
			}
			if idx != len(tt.order) {
				t.Errorf("test %d: iteration terminated prematurely: have %d, want %d", i, idx, len(tt.order))
			}
			it.Release()
			db.Close()
		}
	})

	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		got, err := db.Has(key)
		assert.NoError(t, err)
		assert.False(t, got, "key should be absent")

		value := []byte("hello world")
		assert.NoError(t, db.Put(key, value))

		got, err = db.Has(key)
		assert.NoError(t, err)
		assert.True(t, got, "key should be present")

		dbValue, err := db.Get(key)
		assert.NoError(t, err)
		assert.Equal(t, value, dbValue)

		assert.NoError(t, db.Delete(key))

		got, err = db.Has(key)
		assert.NoError(t, err)
		assert.False(t, got, "key should be absent after delete")

		_, err = db.Get(key)
		assert.ErrorIs(t, err, ledgerdb.ErrNotFound)
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			assert.NoError(t, b.Put([]byte(k), nil))
		}
		if has, err := db.Has([]byte("1")); err != nil || has {
			t.Fatalf("batch wrote before Write: has=%v err=%v", has, err)
		}
		assert.NoError(t, b.Write())
		assert.Equal(t, []string{"1", "2", "3", "4"}, iterateKeys(db.NewIterator(nil, nil)))

		b.Reset()
		assert.Equal(t, 0, b.ValueSize())

		// Mix writes and deletes in batch
		b.Put([]byte("5"), nil)
		b.Delete([]byte("1"))
		b.Put([]byte("6"), nil)
		b.Delete([]byte("3"))
		b.Put([]byte("3"), nil)
		assert.NoError(t, b.Write())
		assert.Equal(t, []string{"2", "3", "4", "5", "6"}, iterateKeys(db.NewIterator(nil, nil)))
	})

	t.Run("BatchReplay", func(t *testing.T) {
		db := New()
		defer db.Close()

		want := []string{"1", "2", "3", "4"}
		b := db.NewBatch()
		for _, k := range want {
			b.Put([]byte(k), []byte(k))
		}
		assert.True(t, b.ValueSize() > 0)
		assert.NoError(t, b.Write())

		for _, k := range want {
			v, err := db.Get([]byte(k))
			assert.NoError(t, err)
			assert.Equal(t, []byte(k), v)
		}
	})
}

func iterateKeys(it ledgerdb.Iterator) []string {
	keys := []string{}
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	sort.Strings(keys)
	it.Release()
	return keys
}
