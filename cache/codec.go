package cache

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is bumped whenever the persisted layout changes. Entries with
// any other version are treated as misses.
const SchemaVersion = 1

type record struct {
	Schema int    `json:"schema"`
	Entry  *Entry `json:"entry"`
}

func encodeEntry(e *Entry) ([]byte, error) {
	data, err := json.Marshal(record{Schema: SchemaVersion, Entry: e})
	if err != nil {
		return nil, fmt.Errorf("cache: encode entry: %w", err)
	}
	return data, nil
}

// decodeEntry returns (nil, nil) for a record written under another schema.
func decodeEntry(data []byte) (*Entry, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Schema != SchemaVersion {
		return nil, nil
	}
	if rec.Entry == nil {
		return nil, fmt.Errorf("%w: missing entry", ErrCorrupt)
	}
	return rec.Entry, nil
}
