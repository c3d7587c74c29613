// Package batch runs corpus-wide passes over every annotation of a
// datastore: label tidying and cross-corpus comparison.
//
// Passes are serial. Between annotations they check the context, yield the
// processor every few annotations and report coarse progress. A failure
// confined to one annotation is written to the pass Report and the pass
// moves on; a datastore I/O failure or cancellation stops it with a single
// error.
package batch
