package fsop

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/jonwraymond/evalcache/nixlog"
)

// DefaultEntryFile is the file Nix loads when asked to evaluate a directory.
const DefaultEntryFile = "default.nix"

// PathKind answers whether a path names a directory.
//
// Contract:
// - Errors: implementations must report false on any failure to inspect the path.
// - Concurrency: implementations must be safe for concurrent use.
type PathKind interface {
	IsDir(path string) bool
}

// OSPathKind stats the real filesystem.
type OSPathKind struct{}

// IsDir reports whether path is a directory. Stat errors count as "not a directory".
func (OSPathKind) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// PathKindFunc adapts a function to PathKind.
type PathKindFunc func(path string) bool

// IsDir calls f(path).
func (f PathKindFunc) IsDir(path string) bool { return f(path) }

// matcher turns one message shape into an Op.
type matcher struct {
	kind Kind
	re   *regexp.Regexp
}

// matchers is evaluated in order; the first match wins. The Nix message
// shapes are disjoint, but order keeps classification deterministic if that
// ever changes.
var matchers = []matcher{
	{CopiedSource, regexp.MustCompile(`^copied source '(?P<source>.*)' -> '(?P<target>.*)'$`)},
	{EvaluatedFile, regexp.MustCompile(`^evaluating file '(?P<source>.*)'$`)},
	{ReadFile, regexp.MustCompile(`^trace: devenv readFile: '(?P<source>.*)'$`)},
	{TrackedPath, regexp.MustCompile(`^trace: devenv path: '(?P<source>.*)'$`)},
}

// Classifier maps log records to filesystem operations.
type Classifier struct {
	paths PathKind
}

// NewClassifier returns a Classifier. If paths is nil, OSPathKind is used.
func NewClassifier(paths PathKind) *Classifier {
	if paths == nil {
		paths = OSPathKind{}
	}
	return &Classifier{paths: paths}
}

// Classify returns the operation described by rec, if any.
//
// Only message records are considered. The returned bool is false when the
// record is not a message or its text matches no known shape.
func (c *Classifier) Classify(rec nixlog.Record) (Op, bool) {
	if !rec.IsMessage() {
		return Op{}, false
	}
	return c.ClassifyText(rec.Msg)
}

// ClassifyText classifies a bare message string.
func (c *Classifier) ClassifyText(msg string) (Op, bool) {
	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(msg)
		if groups == nil {
			continue
		}
		source := groups[m.re.SubexpIndex("source")]

		switch m.kind {
		case CopiedSource:
			return NewCopiedSource(source, groups[m.re.SubexpIndex("target")]), true
		case EvaluatedFile:
			if c.paths.IsDir(source) {
				source = filepath.Join(source, DefaultEntryFile)
			}
			return NewEvaluatedFile(source), true
		case ReadFile:
			return NewReadFile(source), true
		case TrackedPath:
			return NewTrackedPath(source), true
		}
	}
	return Op{}, false
}
