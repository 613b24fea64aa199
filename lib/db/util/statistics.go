// This file implements a size histogram used by the storage engines to
// report value sizes without scanning. Buckets grow by a factor of four
// starting at 16 bytes, so the last bucket boundary is at 4GiB.
package util

import (
	"math"
	"sync"
)

const (
	firstBoundary = 16
	numBuckets    = 16 // 15 boundaries + 1 for larger values
)

// boundary returns the inclusive upper size of bucket i
func boundary(i int) int64 {
	return int64(firstBoundary) << (2 * i)
}

func bucketOf(size int) int {
	for i := 0; i < numBuckets-1; i++ {
		if int64(size) <= boundary(i) {
			return i
		}
	}
	return numBuckets - 1
}

// estimate returns a representative size for bucket i
func estimate(i int) int {
	switch {
	case i == 0:
		return firstBoundary / 2
	case i < numBuckets-1:
		return int((boundary(i-1) + boundary(i)) / 2)
	default:
		return int(boundary(numBuckets-2) * 2)
	}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeHistogram tracks the distribution of written value sizes.
//
// Thread-safe: all methods are safe for concurrent use
type SizeHistogram struct {
	mutex   sync.RWMutex
	buckets [numBuckets]int64
	count   int64
	sum     int64
}

// SizeSummary is a point-in-time view of a SizeHistogram
type SizeSummary struct {
	Count   int64 `json:"count"`
	Average int   `json:"average"`
	Median  int   `json:"median"`
	P99     int   `json:"p99"`
}

func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{}
}

// AddSample records one value of the given size in bytes.
func (h *SizeHistogram) AddSample(size int) {
	if size < 0 {
		size = 0
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.buckets[bucketOf(size)]++
	h.count++
	h.sum += int64(size)
}

func (h *SizeHistogram) GetCount() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// GetPercentileEstimate returns an estimate for the given percentile (0-100).
// Out of range percentiles and an empty histogram yield 0.
func (h *SizeHistogram) GetPercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.percentile(percentile)
}

func (h *SizeHistogram) percentile(percentile int) int {
	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	cumulative := int64(0)
	for i, count := range h.buckets {
		cumulative += count
		if cumulative >= target {
			return estimate(i)
		}
	}
	return int(h.sum / h.count)
}

// Summary returns count, average, median and p99 in one consistent read.
func (h *SizeHistogram) Summary() SizeSummary {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	s := SizeSummary{Count: h.count}
	if h.count > 0 {
		s.Average = int(h.sum / h.count)
		s.Median = h.percentile(50)
		s.P99 = h.percentile(99)
	}
	return s
}

func (h *SizeHistogram) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.count = 0
	h.sum = 0
	h.buckets = [numBuckets]int64{}
}
