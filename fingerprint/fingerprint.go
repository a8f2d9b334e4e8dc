package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/cespare/xxhash/v2"

	"github.com/jonwraymond/evalcache/fsop"
)

// DefaultMaxHashSize is the largest file hashed by content. Larger files fall
// back to a stat fingerprint.
const DefaultMaxHashSize int64 = 64 << 20

// Fingerprint summarises a path's content or identity at a point in time.
// The prefix before the first colon names the method ("sha256", "stat").
type Fingerprint string

// Absent is the fingerprint of a path that does not exist.
const Absent Fingerprint = "absent"

const (
	methodContent = "sha256"
	methodStat    = "stat"
)

// Method returns the method prefix, or "absent".
func (f Fingerprint) Method() string {
	if f == Absent {
		return string(Absent)
	}
	method, _, _ := strings.Cut(string(f), ":")
	return method
}

// IsAbsent reports whether f is the absence sentinel.
func (f Fingerprint) IsAbsent() bool {
	return f == Absent
}

// Fingerprinter computes fingerprints for dependency paths.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: a missing path is not an error; it yields Absent.
type Fingerprinter struct {
	// MaxHashSize caps content hashing. Zero means DefaultMaxHashSize;
	// negative disables content hashing entirely.
	MaxHashSize int64
}

// New returns a Fingerprinter with default limits.
func New() *Fingerprinter {
	return &Fingerprinter{MaxHashSize: DefaultMaxHashSize}
}

// Path fingerprints path according to how an op of kind consumes it.
//
// Content-consumed kinds (EvaluatedFile, ReadFile) are hashed; the others use
// the cheaper stat signal. Directories and oversized files always use stat.
func (f *Fingerprinter) Path(kind fsop.Kind, path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return Absent, nil
		}
		return "", fmt.Errorf("fingerprint: stat %s: %w", path, err)
	}

	if kind.ContentAddressed() && info.Mode().IsRegular() && info.Size() <= f.maxHashSize() {
		fp, err := contentFingerprint(path)
		if err != nil && isNotExist(err) {
			return Absent, nil
		}
		return fp, err
	}
	return statFingerprint(path, info)
}

func (f *Fingerprinter) maxHashSize() int64 {
	switch {
	case f.MaxHashSize == 0:
		return DefaultMaxHashSize
	case f.MaxHashSize < 0:
		return -1
	default:
		return f.MaxHashSize
	}
}

func contentFingerprint(path string) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("fingerprint: hash %s: %w", path, err)
	}
	return Fingerprint(methodContent + ":" + hex.EncodeToString(h.Sum(nil))), nil
}

// statFingerprint digests size, mtime and mode. For a directory the sorted
// entry names are included, since adding or removing a file does not always
// move the directory mtime on every filesystem.
func statFingerprint(path string, info fs.FileInfo) (Fingerprint, error) {
	d := xxhash.New()

	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	writeInt(info.Size())
	writeInt(info.ModTime().UnixNano())
	writeInt(int64(info.Mode()))

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			if isNotExist(err) {
				return Absent, nil
			}
			return "", fmt.Errorf("fingerprint: read dir %s: %w", path, err)
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = d.WriteString(name)
			_, _ = d.Write([]byte{0})
		}
	}

	return Fingerprint(fmt.Sprintf("%s:%016x", methodStat, d.Sum64())), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
