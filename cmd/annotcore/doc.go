// Package main hosts the annotcore CLI.
//
// The Cobra command tree opens the corpus repository named by the
// configuration (or --repo), runs structure changes, tier comparisons,
// alignment and batch passes against it, and renders the results as tables
// or, with --json, as machine readable output. Logs go to stderr.
//
// Keep this package thin: behaviour lives in the internal packages and the
// commands here only parse arguments and format results.
package main
