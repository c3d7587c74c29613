// Package timeline merges per-level comparisons into one chronological view
// and counts difference regions.
//
// Each level is diffed on its own. Merge interleaves the rows of all levels
// by time with a deterministic order, Layout pads the result so that every
// level advances through time buckets together, and CountDifferences counts
// per level, independently of the merge.
package timeline
