package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/evalcache/fingerprint"
	"github.com/jonwraymond/evalcache/fsop"
)

// TestValidateIdentity tests identity validation rules.
func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		id      fingerprint.Identity
		wantErr error
	}{
		{"empty", "", ErrInvalidIdentity},
		{"valid", "cmd:0123abcd", nil},
		{"too long", fingerprint.Identity(strings.Repeat("x", MaxIdentityLength+1)), ErrIdentityTooLong},
		{"max length exactly", fingerprint.Identity(strings.Repeat("x", MaxIdentityLength)), nil},
		{"newline", "cmd:a\nb", ErrInvalidIdentity},
		{"slash", "cmd:../../etc", ErrInvalidIdentity},
		{"backslash", `cmd:a\b`, ErrInvalidIdentity},
		{"dotdot", "cmd:..", ErrInvalidIdentity},
		{"whitespace only", "   ", ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity(tt.id)
			if err != tt.wantErr {
				t.Errorf("ValidateIdentity(%q) = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

// TestSentinelErrors verifies sentinel errors are distinct and prefixed.
func TestSentinelErrors(t *testing.T) {
	errs := []error{
		ErrNilStore, ErrNilEntry, ErrInvalidIdentity, ErrIdentityTooLong,
		ErrLookup, ErrStore, ErrStoreBusy, ErrCorrupt,
	}
	seen := make(map[string]bool)
	for _, err := range errs {
		msg := err.Error()
		if !strings.HasPrefix(msg, "cache: ") {
			t.Errorf("%q lacks cache: prefix", msg)
		}
		if seen[msg] {
			t.Errorf("duplicate error message %q", msg)
		}
		seen[msg] = true
	}
}

func TestEntry_Clone(t *testing.T) {
	orig := &Entry{
		Identity: "cmd:1",
		Args:     []string{"eval"},
		Stdout:   []byte("out"),
		Dependencies: []Dependency{
			{Kind: fsop.ReadFile, Path: "/a", Fingerprint: "sha256:1"},
		},
	}
	cp := orig.Clone()
	cp.Args[0] = "build"
	cp.Stdout[0] = 'X'
	cp.Dependencies[0].Path = "/b"

	if orig.Args[0] != "eval" || string(orig.Stdout) != "out" || orig.Dependencies[0].Path != "/a" {
		t.Errorf("Clone() shares memory with original: %+v", orig)
	}
	if (*Entry)(nil).Clone() != nil {
		t.Error("nil Clone() should be nil")
	}
}

func TestCodec_SchemaMismatchIsMiss(t *testing.T) {
	entry, err := decodeEntry([]byte(`{"schema":999,"entry":{"identity":"cmd:1"}}`))
	if err != nil || entry != nil {
		t.Errorf("decodeEntry(other schema) = %v, %v; want nil, nil", entry, err)
	}

	_, err = decodeEntry([]byte(`{not json`))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("decodeEntry(garbage) error = %v, want ErrCorrupt", err)
	}

	_, err = decodeEntry([]byte(`{"schema":1}`))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("decodeEntry(no entry) error = %v, want ErrCorrupt", err)
	}
}

func sampleEntry(id fingerprint.Identity, stdout string) *Entry {
	return &Entry{
		Identity: id,
		Program:  "nix",
		Args:     []string{"eval", ".#x"},
		Stdout:   []byte(stdout),
		Stderr:   []byte("warning: dirty tree\n"),
		ExitCode: 0,
		Dependencies: []Dependency{
			{Kind: fsop.EvaluatedFile, Path: "/a/default.nix", Fingerprint: "sha256:aa"},
			{Kind: fsop.CopiedSource, Path: "/a/src", Target: "/nix/store/h-src", Fingerprint: "stat:01"},
		},
	}
}

// testStoreContract exercises the Store contract against any implementation.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	id := fingerprint.Identity("cmd:abcdef0123")

	got, err := store.Get(ctx, id)
	if err != nil || got != nil {
		t.Fatalf("Get(empty) = %v, %v; want nil, nil", got, err)
	}

	if err := store.Put(ctx, sampleEntry(id, "first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || string(got.Stdout) != "first" {
		t.Fatalf("Get() = %+v, want stdout first", got)
	}
	if len(got.Dependencies) != 2 || got.Dependencies[1].Target != "/nix/store/h-src" {
		t.Errorf("Get() dependencies = %+v", got.Dependencies)
	}
	if got.Dependencies[0].Kind != fsop.EvaluatedFile {
		t.Errorf("Get() kind = %v, want EvaluatedFile", got.Dependencies[0].Kind)
	}

	// Overwrite replaces the whole entry.
	replacement := sampleEntry(id, "second")
	replacement.Dependencies = replacement.Dependencies[:1]
	if err := store.Put(ctx, replacement); err != nil {
		t.Fatalf("Put(replacement) error = %v", err)
	}
	got, _ = store.Get(ctx, id)
	if string(got.Stdout) != "second" || len(got.Dependencies) != 1 {
		t.Errorf("after overwrite Get() = %q with %d deps, want second with 1", got.Stdout, len(got.Dependencies))
	}

	// Returned entries are copies.
	got.Stdout[0] = 'X'
	again, _ := store.Get(ctx, id)
	if string(again.Stdout) != "second" {
		t.Error("mutating a returned entry changed the store")
	}

	if err := store.Put(ctx, nil); err != ErrNilEntry {
		t.Errorf("Put(nil) = %v, want ErrNilEntry", err)
	}
	if err := store.Put(ctx, &Entry{Identity: "bad/id"}); err != ErrInvalidIdentity {
		t.Errorf("Put(bad id) = %v, want ErrInvalidIdentity", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get(ctx, id); got != nil {
		t.Error("Get() after Delete() returned an entry")
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Put(canceled, sampleEntry(id, "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put(canceled) = %v, want context.Canceled", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
