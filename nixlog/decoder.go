package nixlog

import (
	"bufio"
	"io"
)

// MaxLineSize bounds a single stderr line. Nix can print very long traces.
const MaxLineSize = 16 << 20

// Decoder splits a stderr stream into structured records and plain lines.
//
// It reads incrementally so that records can be consumed while the producing
// process is still running. A Decoder is not safe for concurrent use.
type Decoder struct {
	sc        *bufio.Scanner
	line      []byte
	rec       Record
	isRecord  bool
	malformed int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Decoder{sc: sc}
}

// Scan advances to the next line. It returns false at EOF or on a read error;
// Err distinguishes the two.
func (d *Decoder) Scan() bool {
	if !d.sc.Scan() {
		return false
	}
	d.line = d.sc.Bytes()
	rec, ok, err := Decode(d.line)
	switch {
	case !ok:
		d.isRecord = false
	case err != nil:
		// Malformed records are surfaced as plain output rather than lost.
		d.malformed++
		d.isRecord = false
	default:
		d.rec = rec
		d.isRecord = true
	}
	return true
}

// Record returns the current record when the current line is one.
func (d *Decoder) Record() (Record, bool) {
	if !d.isRecord {
		return Record{}, false
	}
	return d.rec, true
}

// Line returns the current raw line without its trailing newline. The slice is
// only valid until the next call to Scan.
func (d *Decoder) Line() []byte {
	return d.line
}

// Malformed returns the number of prefixed lines that failed to decode.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Err returns the first non-EOF read error.
func (d *Decoder) Err() error {
	return d.sc.Err()
}
