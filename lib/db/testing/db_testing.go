package testing

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ValentinKolb/edqs/lib/db"
)

// DBFactory creates a new, not yet initialized SnapshotDB that stores its
// data below path. Calling it twice with the same path must yield two
// handles on the same data for durable implementations.
type DBFactory func(path string) db.SnapshotDB

// RunSnapshotDBTests runs the conformance suite for a SnapshotDB implementation.
func RunSnapshotDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("InitFresh", func(t *testing.T) {
			testInitFresh(t, factory)
		})

		t.Run("Put&ForEach", func(t *testing.T) {
			testPutForEach(t, open(t, factory))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("VisitError", func(t *testing.T) {
			testVisitError(t, open(t, factory))
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory)
		})

		t.Run("NotOpen", func(t *testing.T) {
			testNotOpen(t, factory)
		})

		t.Run("Reopen", func(t *testing.T) {
			testReopen(t, factory)
		})

		t.Run("ConcurrentWrites", func(t *testing.T) {
			testConcurrentWrites(t, open(t, factory))
		})
	})
}

func requireFeature(t testing.TB, database db.SnapshotDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// open creates and initializes a database in a fresh temporary directory
func open(t testing.TB, factory DBFactory) db.SnapshotDB {
	database := factory(filepath.Join(t.TempDir(), "snapshot"))
	if _, err := database.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return database
}

// collect returns all rows in visit order
func collect(t testing.TB, database db.SnapshotDB) (keys []string, values map[string][]byte) {
	values = make(map[string][]byte)
	err := database.ForEach(func(key string, value []byte) error {
		keys = append(keys, key)
		values[key] = bytes.Clone(value)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	return keys, values
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInitFresh(t *testing.T, factory DBFactory) {
	database := factory(filepath.Join(t.TempDir(), "nested", "dir", "snapshot"))
	defer database.Close()
	requireFeature(t, database, db.FeatureFreshnessTag)

	fresh, err := database.Init()
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !fresh {
		t.Errorf("Init on an empty directory should report fresh")
	}

	keys, _ := collect(t, database)
	if len(keys) != 0 {
		t.Errorf("fresh store should be empty, got %d rows", len(keys))
	}
}

func testPutForEach(t *testing.T, database db.SnapshotDB) {
	defer database.Close()

	rows := map[string][]byte{
		"DEVICE/2":        []byte("device-2"),
		"ASSET/1":         []byte("asset-1"),
		"RELATION/a/b":    {0x00, 0xff, 0x10},
		"DEVICE/1":        []byte("device-1"),
		"ATTRIBUTE_KV/x":  []byte{},
		"LATEST_TS_KV/zz": bytes.Repeat([]byte("v"), 64*1024),
	}
	for k, v := range rows {
		if err := database.Put(k, v); err != nil {
			t.Fatalf("Put(%q) failed: %v", k, err)
		}
	}

	keys, values := collect(t, database)
	if len(keys) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(keys))
	}
	for k, want := range rows {
		if got, ok := values[k]; !ok {
			t.Errorf("row %q missing", k)
		} else if !bytes.Equal(got, want) {
			t.Errorf("row %q: expected %d bytes, got %d", k, len(want), len(got))
		}
	}

	if database.SupportsFeature(db.FeatureOrderedScan) {
		for i := 1; i < len(keys); i++ {
			if keys[i-1] >= keys[i] {
				t.Errorf("keys not in ascending order: %q before %q", keys[i-1], keys[i])
			}
		}
	}
}

func testOverwrite(t *testing.T, database db.SnapshotDB) {
	defer database.Close()

	if err := database.Put("key", []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := database.Put("key", []byte("v2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	keys, values := collect(t, database)
	if len(keys) != 1 {
		t.Fatalf("overwrite should keep a single row, got %d", len(keys))
	}
	if string(values["key"]) != "v2" {
		t.Errorf("expected v2, got %q", values["key"])
	}
}

func testDelete(t *testing.T, database db.SnapshotDB) {
	defer database.Close()

	for i := 0; i < 10; i++ {
		if err := database.Put(fmt.Sprintf("key-%d", i), []byte("value")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	for i := 0; i < 10; i += 2 {
		if err := database.Delete(fmt.Sprintf("key-%d", i)); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
	}
	if err := database.Delete("never-written"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}

	keys, values := collect(t, database)
	if len(keys) != 5 {
		t.Errorf("expected 5 rows after delete, got %d", len(keys))
	}
	for i := 0; i < 10; i++ {
		_, ok := values[fmt.Sprintf("key-%d", i)]
		if ok != (i%2 == 1) {
			t.Errorf("key-%d: present=%v", i, ok)
		}
	}
}

func testVisitError(t *testing.T, database db.SnapshotDB) {
	defer database.Close()

	for i := 0; i < 5; i++ {
		if err := database.Put(fmt.Sprintf("key-%d", i), []byte("value")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	stop := errors.New("stop")
	visited := 0
	err := database.ForEach(func(key string, value []byte) error {
		visited++
		if visited == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected the visit error to be returned, got %v", err)
	}
	if visited != 2 {
		t.Errorf("scan should stop after the failing visit, visited %d rows", visited)
	}
}

func testClose(t *testing.T, factory DBFactory) {
	database := factory(filepath.Join(t.TempDir(), "snapshot"))
	if err := database.Close(); err != nil {
		t.Errorf("Close before Init should be a no-op, got %v", err)
	}

	if _, err := database.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func testNotOpen(t *testing.T, factory DBFactory) {
	database := factory(filepath.Join(t.TempDir(), "snapshot"))

	if err := database.Put("key", []byte("value")); !errors.Is(err, db.ErrNotOpen) {
		t.Errorf("Put before Init: expected ErrNotOpen, got %v", err)
	}
	if err := database.Delete("key"); !errors.Is(err, db.ErrNotOpen) {
		t.Errorf("Delete before Init: expected ErrNotOpen, got %v", err)
	}
	err := database.ForEach(func(string, []byte) error { return nil })
	if !errors.Is(err, db.ErrNotOpen) {
		t.Errorf("ForEach before Init: expected ErrNotOpen, got %v", err)
	}

	if _, err := database.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	database.Close()
	if err := database.Put("key", []byte("value")); !errors.Is(err, db.ErrNotOpen) {
		t.Errorf("Put after Close: expected ErrNotOpen, got %v", err)
	}
}

// testReopen writes rows, closes the store and checks that a second handle on
// the same path sees all of them and is not reported as fresh.
func testReopen(t *testing.T, factory DBFactory) {
	path := filepath.Join(t.TempDir(), "snapshot")

	database := factory(path)
	requireFeature(t, database, db.FeatureDurable)

	if _, err := database.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	const numRows = 1000
	for i := 0; i < numRows; i++ {
		if err := database.Put(fmt.Sprintf("DEVICE/%05d", i), []byte(fmt.Sprintf("payload-%d", i))); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := database.Delete("DEVICE/00000"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := factory(path)
	defer reopened.Close()
	fresh, err := reopened.Init()
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.SupportsFeature(db.FeatureFreshnessTag) && fresh {
		t.Errorf("reopened store should not be reported as fresh")
	}

	keys, values := collect(t, reopened)
	if len(keys) != numRows-1 {
		t.Fatalf("expected %d rows after reopen, got %d", numRows-1, len(keys))
	}
	if _, ok := values["DEVICE/00000"]; ok {
		t.Errorf("deleted row survived reopen")
	}
	if got := string(values["DEVICE/00042"]); got != "payload-42" {
		t.Errorf("expected payload-42, got %q", got)
	}
}

func testConcurrentWrites(t *testing.T, database db.SnapshotDB) {
	defer database.Close()

	const workers, perWorker = 8, 100
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := database.Put(fmt.Sprintf("w%d/%03d", w, i), []byte{byte(i)}); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Put failed: %v", err)
	}

	keys, _ := collect(t, database)
	if len(keys) != workers*perWorker {
		t.Errorf("expected %d rows, got %d", workers*perWorker, len(keys))
	}
}
