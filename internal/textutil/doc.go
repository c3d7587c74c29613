// Package textutil normalises annotation labels and compares running text.
//
// Fold and Tidy are the two label normalisations used across the module:
// Fold is a lossy comparison key (case folded, compatibility decomposed,
// diacritics removed, whitespace collapsed) and Tidy is the lossless clean-up
// written back by batch passes (NFC, trimmed, single spaces).
//
// Terms counts folded tokens; Cosine over two counts gives a similarity
// score for two tiers whose labels differ.
package textutil
