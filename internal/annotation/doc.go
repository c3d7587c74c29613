// Package annotation holds the in-memory annotation model: time-stamped
// elements, the four tier variants built from them and the per-speaker
// TierGroup bundles that datastores produce and consume.
//
// Times are RealTime values (integer nanoseconds) so that boundary equality
// is exact. Interval tiers are kept contiguous by every mutator; sequence and
// relation tiers reference intervals of a companion tier by index.
package annotation
