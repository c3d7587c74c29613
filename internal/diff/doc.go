// Package diff computes content-based edit scripts between ordered token
// sequences and uses them to compare and re-synchronise interval tiers.
//
// Tokens are equal when their keys are equal. Time bounds never take part
// in equality, so a token that moved keeps matching. The script is a
// shortest edit script: a longest common subsequence of the two key
// sequences, with ties broken so that Diff(a, b) and Diff(b, a) match the
// same pairs of tokens.
//
// FindAnchors and Retime build on the script to warp the timestamps of a
// recogniser's output onto a reference transcription.
package diff
