package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// EventCachePage snapshots the overflow of one computed result page so the
// issued page token replays against the same data. ParamsDigest covers the
// immutable query parameters; ContentDigest additionally covers the ordered
// overflow items, the upstream cursor and the deferred starred ids, and is
// used both to deduplicate rows and to detect tampered tokens.
type EventCachePage struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	ParamsDigest  string          `db:"params_digest"`
	ContentDigest string          `db:"content_digest"`
	Items         json.RawMessage `db:"items"`
	Cursor        string          `db:"cursor"`
	ExtraStarred  pq.StringArray  `db:"extra_starred"`
	CreatedAt     time.Time       `db:"created_at"`
}

// DecodeItems unmarshals the cached overflow events.
func (p *EventCachePage) DecodeItems() ([]EventRecord, error) {
	if len(p.Items) == 0 {
		return nil, nil
	}
	var items []EventRecord
	if err := json.Unmarshal(p.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// EncodeItems marshals overflow events for storage.
func (p *EventCachePage) EncodeItems(items []EventRecord) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	p.Items = raw
	return nil
}
