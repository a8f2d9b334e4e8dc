// Package fsop classifies Nix log messages into filesystem operations.
//
// An Op is a typed fact such as "this file was evaluated" or "this path was
// copied into the store". The Classifier recognises a fixed, ordered table of
// message shapes; the Collector folds a whole log into a deduplicated set of
// ops, which is the dependency set of one invocation.
//
// A message the classifier fails to recognise is indistinguishable from
// unrelated progress output, so a missing pattern shows up downstream as a
// stale cache hit rather than as an error.
package fsop
