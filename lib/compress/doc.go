// Package compress provides the text compressor used for large string and
// json data points, and the counters that observe it.
package compress
