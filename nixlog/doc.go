// Package nixlog decodes the machine-readable log Nix writes to stderr when run
// with --log-format internal-json.
//
// Each log line is the literal prefix "@nix " followed by a JSON object whose
// "action" field tags the record kind. Only "msg" records carry free text; the
// other kinds (start, stop, result) describe activity lifecycles. Unknown
// actions decode to ActionUnknown and are never rejected.
//
// Lines without the prefix are ordinary stderr output and are handed back to
// the caller unchanged.
package nixlog
