package nixlog

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
)

// Prefix marks a structured log line on stderr.
const Prefix = "@nix "

// Sentinel errors for record decoding.
var (
	ErrMalformed = errors.New("nixlog: malformed record")
	ErrNoAction  = errors.New("nixlog: record has no action")
)

// Action is the record kind tag.
type Action int

const (
	ActionUnknown Action = iota
	ActionMsg
	ActionStart
	ActionStop
	ActionResult
)

// ParseAction maps the wire tag to an Action.
func ParseAction(s string) Action {
	switch s {
	case "msg":
		return ActionMsg
	case "start":
		return ActionStart
	case "stop":
		return ActionStop
	case "result":
		return ActionResult
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionMsg:
		return "msg"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionResult:
		return "result"
	default:
		return "unknown"
	}
}

// Level is the Nix verbosity of a record.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelNotice
	LevelInfo
	LevelTalkative
	LevelChatty
	LevelDebug
	LevelVomit
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelNotice:
		return "notice"
	case LevelInfo:
		return "info"
	case LevelTalkative:
		return "talkative"
	case LevelChatty:
		return "chatty"
	case LevelDebug:
		return "debug"
	case LevelVomit:
		return "vomit"
	default:
		return "unknown"
	}
}

// Record is one structured log entry.
//
// Msg and RawMsg are only populated for ActionMsg. ID and Text are populated
// for activity records (start/stop/result) when present.
type Record struct {
	Action Action
	Level  Level
	Msg    string
	RawMsg string
	ID     int64
	Text   string
}

// IsMessage reports whether the record is a plain message.
func (r Record) IsMessage() bool {
	return r.Action == ActionMsg
}

// Message builds a plain message record. It is mostly useful in tests.
func Message(level Level, msg string) Record {
	return Record{Action: ActionMsg, Level: level, Msg: msg}
}

// Decode parses a single stderr line.
//
// ok is false when the line does not carry the "@nix " prefix. A prefixed
// line whose payload is not a JSON object returns ErrMalformed.
func Decode(line []byte) (rec Record, ok bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte(Prefix)) {
		return Record{}, false, nil
	}
	payload := line[len(Prefix):]
	if !gjson.ValidBytes(payload) {
		return Record{}, true, ErrMalformed
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return Record{}, true, ErrMalformed
	}

	action := doc.Get("action")
	if !action.Exists() {
		return Record{}, true, ErrNoAction
	}

	rec = Record{
		Action: ParseAction(action.String()),
		Level:  Level(doc.Get("level").Int()),
	}
	switch rec.Action {
	case ActionMsg:
		rec.Msg = doc.Get("msg").String()
		rec.RawMsg = doc.Get("raw_msg").String()
	default:
		rec.ID = doc.Get("id").Int()
		rec.Text = doc.Get("text").String()
	}
	return rec, true, nil
}
