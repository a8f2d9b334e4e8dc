package doctor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/jonwraymond/evalcache/cache"
	"github.com/jonwraymond/evalcache/fingerprint"
)

// CheckIdentity is the key StoreChecker writes and removes again.
const CheckIdentity fingerprint.Identity = fingerprint.IdentityPrefix + "doctor-check"

// StoreChecker verifies the store accepts a write and reads it back.
type StoreChecker struct {
	store cache.Store
}

// NewStoreChecker returns a checker probing store.
func NewStoreChecker(store cache.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// Name returns "store".
func (c *StoreChecker) Name() string { return "store" }

// Check round-trips a scratch entry through the store. A store that cannot
// be read or written degrades caching but does not stop commands from running.
func (c *StoreChecker) Check(ctx context.Context) Result {
	entry := &cache.Entry{
		Identity: CheckIdentity,
		Program:  "evalcache",
		Stdout:   []byte("doctor"),
	}
	if err := c.store.Put(ctx, entry); err != nil {
		return Degraded("store is not writable", err)
	}
	defer func() { _ = c.store.Delete(context.WithoutCancel(ctx), CheckIdentity) }()

	got, err := c.store.Get(ctx, CheckIdentity)
	if err != nil {
		return Degraded("store is not readable", err)
	}
	if got == nil || !bytes.Equal(got.Stdout, entry.Stdout) {
		return Degraded("store lost the check entry", ErrRoundTripMismatch)
	}
	return Healthy("read and write ok")
}

// ProgramChecker verifies an executable resolves on PATH.
type ProgramChecker struct {
	program  string
	lookPath func(string) (string, error)
}

// NewProgramChecker returns a checker for program.
func NewProgramChecker(program string) *ProgramChecker {
	return &ProgramChecker{program: program, lookPath: exec.LookPath}
}

// Name returns "program:<name>".
func (c *ProgramChecker) Name() string { return "program:" + c.program }

// Check resolves the program.
func (c *ProgramChecker) Check(context.Context) Result {
	path, err := c.lookPath(c.program)
	if err != nil {
		return Unhealthy(fmt.Sprintf("%s not found", c.program), err)
	}
	return Healthy(path)
}
