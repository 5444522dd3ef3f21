// Package bench runs the perf matrix: generated documents of several sizes
// parsed under five engine scenarios.
//
//	S1  stream on, cache dropped before every append, chunked fallback on
//	S2  stream on, cache kept, chunked fallback off
//	S3  stream on, cache kept, chunked fallback on
//	S4  stream off, full chunked fallback on
//	S5  stream off, plain tokenization
//
// Each cell records the mean one-shot parse time and the mean time of an
// append workload that grows the document in AppendSteps pieces. Runs are
// stored with package storage and compared against an accepted baseline
// with Diff.
package bench
