package testing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/edqs/lib/db"
)

// RunSnapshotDBBenchmarks runs all benchmarks for a SnapshotDB implementation
func RunSnapshotDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Put", func(b *testing.B) {
			benchmarkPut(b, open(b, factory), 128)
		})

		b.Run("PutLargeValue", func(b *testing.B) {
			benchmarkPut(b, open(b, factory), 16*1024)
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, open(b, factory))
		})

		b.Run("ForEach", func(b *testing.B) {
			benchmarkForEach(b, open(b, factory))
		})

		b.Run("Reopen", func(b *testing.B) {
			benchmarkReopen(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkPut(b *testing.B, database db.SnapshotDB, valueSize int) {
	b.Cleanup(func() {
		database.Close()
	})

	value := bytes.Repeat([]byte("x"), valueSize)
	var counter atomic.Int64

	b.SetBytes(int64(valueSize))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			if err := database.Put(fmt.Sprintf("DEVICE/%012d", i), value); err != nil {
				b.Fatalf("Put failed: %v", err)
			}
		}
	})
}

func benchmarkDelete(b *testing.B, database db.SnapshotDB) {
	b.Cleanup(func() {
		database.Close()
	})

	for i := 0; i < b.N; i++ {
		if err := database.Put(fmt.Sprintf("DEVICE/%012d", i), []byte("value")); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Delete(fmt.Sprintf("DEVICE/%012d", i)); err != nil {
			b.Fatalf("Delete failed: %v", err)
		}
	}
}

func benchmarkForEach(b *testing.B, database db.SnapshotDB) {
	b.Cleanup(func() {
		database.Close()
	})

	const numRows = 10_000
	for i := 0; i < numRows; i++ {
		if err := database.Put(fmt.Sprintf("DEVICE/%012d", i), []byte("value")); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows := 0
		err := database.ForEach(func(string, []byte) error {
			rows++
			return nil
		})
		if err != nil || rows != numRows {
			b.Fatalf("ForEach visited %d rows: %v", rows, err)
		}
	}
}

// benchmarkReopen measures Close followed by Init on a populated store
func benchmarkReopen(b *testing.B, factory DBFactory) {
	path := filepath.Join(b.TempDir(), "snapshot")
	database := factory(path)
	if !database.SupportsFeature(db.FeatureDurable) {
		b.Skip()
	}
	if _, err := database.Init(); err != nil {
		b.Fatalf("Init failed: %v", err)
	}
	for i := 0; i < 10_000; i++ {
		if err := database.Put(fmt.Sprintf("DEVICE/%012d", i), []byte("value")); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}
	database.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reopened := factory(path)
		if _, err := reopened.Init(); err != nil {
			b.Fatalf("Init failed: %v", err)
		}
		reopened.Close()
	}
}
