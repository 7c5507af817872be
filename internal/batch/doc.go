// Package batch splits a slice into fixed-size batches and runs a callback
// over them with bounded concurrency, reporting progress after every batch.
//
// The widget uses it to fan prefetch requests for the children of a listing
// out over a limited number of goroutines. Failures are isolated: one failed
// batch never stops the others, and all failures are reported together.
package batch
