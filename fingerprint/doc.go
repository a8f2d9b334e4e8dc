// Package fingerprint computes change-detection values for dependency paths
// and deterministic identities for command invocations.
//
// Path fingerprints are strings prefixed with their method: "sha256:" for
// content hashes and "stat:" for size/mtime/mode digests. A path that does
// not exist fingerprints to Absent, so a deleted dependency is a change like
// any other.
package fingerprint
