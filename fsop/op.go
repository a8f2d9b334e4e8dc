package fsop

import (
	"errors"
	"fmt"
)

// ErrClassification is reserved for classifier failures. Classify never
// returns it for malformed or unrecognised records; those are dropped.
var ErrClassification = errors.New("fsop: classification failed")

// Kind tags the variant of an Op.
type Kind int

const (
	// CopiedSource: an artifact was copied into the store.
	CopiedSource Kind = iota + 1
	// EvaluatedFile: a file was loaded and evaluated as code.
	EvaluatedFile
	// ReadFile: file contents were read as data.
	ReadFile
	// TrackedPath: a path was referenced by name only.
	TrackedPath
)

// Kinds lists every variant in classifier priority order.
var Kinds = []Kind{CopiedSource, EvaluatedFile, ReadFile, TrackedPath}

func (k Kind) String() string {
	switch k {
	case CopiedSource:
		return "copied_source"
	case EvaluatedFile:
		return "evaluated_file"
	case ReadFile:
		return "read_file"
	case TrackedPath:
		return "tracked_path"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("fsop: unknown kind %q", s)
}

// ContentAddressed reports whether paths of this kind are consumed as content
// and should therefore be fingerprinted by hashing.
func (k Kind) ContentAddressed() bool {
	return k == EvaluatedFile || k == ReadFile
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k.String() == "unknown" {
		return nil, fmt.Errorf("fsop: cannot marshal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Op is a filesystem operation observed in a log.
//
// Target is only set for CopiedSource, where it names the store path the
// source was copied to. It is informational: staleness is decided by Source.
// Op is comparable; two ops are the same dependency iff they are ==.
type Op struct {
	Kind   Kind
	Source string
	Target string
}

// NewCopiedSource returns a CopiedSource op.
func NewCopiedSource(source, target string) Op {
	return Op{Kind: CopiedSource, Source: source, Target: target}
}

// NewEvaluatedFile returns an EvaluatedFile op.
func NewEvaluatedFile(source string) Op {
	return Op{Kind: EvaluatedFile, Source: source}
}

// NewReadFile returns a ReadFile op.
func NewReadFile(source string) Op {
	return Op{Kind: ReadFile, Source: source}
}

// NewTrackedPath returns a TrackedPath op.
func NewTrackedPath(source string) Op {
	return Op{Kind: TrackedPath, Source: source}
}

func (o Op) String() string {
	if o.Kind == CopiedSource {
		return fmt.Sprintf("%s %s -> %s", o.Kind, o.Source, o.Target)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Source)
}

// less orders ops by kind, then source, then target.
func (o Op) less(other Op) bool {
	if o.Kind != other.Kind {
		return o.Kind < other.Kind
	}
	if o.Source != other.Source {
		return o.Source < other.Source
	}
	return o.Target < other.Target
}
