package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"sort"
)

// ErrNoProgram is returned when an invocation names no executable.
var ErrNoProgram = errors.New("fingerprint: program is required")

// Identity is the cache key of a command invocation.
type Identity string

// IdentityPrefix starts every Identity.
const IdentityPrefix = "cmd:"

// String returns the identity as a string.
func (i Identity) String() string {
	return string(i)
}

// Invocation holds everything that contributes to a command's identity.
type Invocation struct {
	// Program is the executable name or path, as given.
	Program string

	// Args are the arguments after the program. Order matters.
	Args []string

	// Dir is the working directory. Relative paths in Args resolve against
	// it, so it is part of the identity.
	Dir string

	// Env holds the values of the cache-relevant environment variables.
	// Variables that are unset are simply absent.
	Env map[string]string
}

// Keyer derives identities from invocations.
//
// Contract:
// - Determinism: equal invocations produce equal identities, independent of map order.
// - Order: argument order is significant.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(inv Invocation) (Identity, error)
}

// DefaultKeyer hashes invocations with SHA-256 over length-prefixed fields.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns "cmd:<hex sha256>".
//
// Fields are written in a fixed order: program, argument count, each
// argument, directory, then environment pairs sorted by name. Every field is
// length-prefixed so that ["a b"] and ["a", "b"] never collide.
func (k *DefaultKeyer) Key(inv Invocation) (Identity, error) {
	if inv.Program == "" {
		return "", ErrNoProgram
	}

	h := sha256.New()
	writeField(h, []byte(inv.Program))

	writeCount(h, len(inv.Args))
	for _, arg := range inv.Args {
		writeField(h, []byte(arg))
	}

	writeField(h, []byte(inv.Dir))

	names := make([]string, 0, len(inv.Env))
	for name := range inv.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	writeCount(h, len(names))
	for _, name := range names {
		writeField(h, []byte(name))
		writeField(h, []byte(inv.Env[name]))
	}

	return Identity(IdentityPrefix + hex.EncodeToString(h.Sum(nil))), nil
}

func writeField(h hash.Hash, data []byte) {
	writeCount(h, len(data))
	h.Write(data)
}

func writeCount(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

// SelectEnv returns the allow-listed variables that lookup reports as set.
func SelectEnv(allow []string, lookup func(string) (string, bool)) map[string]string {
	env := make(map[string]string, len(allow))
	for _, name := range allow {
		if v, ok := lookup(name); ok {
			env[name] = v
		}
	}
	return env
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
