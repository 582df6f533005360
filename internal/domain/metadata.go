package domain

import (
	"encoding/json"
	"fmt"
)

// Metadata is the per-subtype payload of a tracked message. The concrete type
// is always *CounterMetadata or *CTFdMetadata.
type Metadata interface {
	Subtype() Subtype
	// Clone returns an independent copy so cache entries are replaced, never shared.
	Clone() Metadata
}

// CounterMetadata backs the counter subtype.
type CounterMetadata struct {
	Count uint64
}

func (m *CounterMetadata) Subtype() Subtype { return SubtypeCounter }
func (m *CounterMetadata) Clone() Metadata  { c := *m; return &c }

// CTFdMetadata backs the ctfd_tracker subtype.
type CTFdMetadata struct {
	Domain         string
	APIKey         string    // empty when the scoreboard is public
	ForumChannelID Snowflake // zero when no companion forum is configured
}

func (m *CTFdMetadata) Subtype() Subtype { return SubtypeCTFdTracker }
func (m *CTFdMetadata) Clone() Metadata  { c := *m; return &c }

// storedCounter / storedCTFd are the only places the free-form key/value
// shape exists: the JSON blob kept in the metadata column.
type storedCounter struct {
	Counter uint64 `json:"counter"`
}

type storedCTFd struct {
	Domain         string    `json:"domain"`
	APIKey         string    `json:"api_key,omitempty"`
	ForumChannelID Snowflake `json:"forum_channel_id,omitempty"`
}

// publicCTFd is what leaves the bot process: the API key is never echoed.
type publicCTFd struct {
	Domain         string    `json:"domain"`
	HasAPIKey      bool      `json:"has_api_key"`
	ForumChannelID Snowflake `json:"forum_channel_id,omitempty"`
}

// EncodeMetadata serialises metadata for the store.
func EncodeMetadata(m Metadata) ([]byte, error) {
	switch v := m.(type) {
	case *CounterMetadata:
		return json.Marshal(storedCounter{Counter: v.Count})
	case *CTFdMetadata:
		return json.Marshal(storedCTFd{Domain: v.Domain, APIKey: v.APIKey, ForumChannelID: v.ForumChannelID})
	default:
		return nil, fmt.Errorf("unsupported metadata type %T", m)
	}
}

// DecodeMetadata rebuilds typed metadata from a stored blob. A missing or
// malformed blob yields the subtype's zero value rather than an error.
func DecodeMetadata(subtype Subtype, blob []byte) Metadata {
	switch subtype {
	case SubtypeCTFdTracker:
		var s storedCTFd
		if len(blob) > 0 {
			if err := json.Unmarshal(blob, &s); err != nil {
				s = storedCTFd{}
			}
		}
		return &CTFdMetadata{Domain: s.Domain, APIKey: s.APIKey, ForumChannelID: s.ForumChannelID}
	default:
		var s storedCounter
		if len(blob) > 0 {
			if err := json.Unmarshal(blob, &s); err != nil {
				s = storedCounter{}
			}
		}
		return &CounterMetadata{Count: s.Counter}
	}
}

// PublicMetadata returns the JSON-facing view of metadata (secrets removed).
func PublicMetadata(m Metadata) any {
	switch v := m.(type) {
	case *CounterMetadata:
		return storedCounter{Counter: v.Count}
	case *CTFdMetadata:
		return publicCTFd{Domain: v.Domain, HasAPIKey: v.APIKey != "", ForumChannelID: v.ForumChannelID}
	default:
		return map[string]any{}
	}
}

func decodePublicMetadata(subtype Subtype, raw json.RawMessage) (Metadata, error) {
	switch subtype {
	case SubtypeCTFdTracker:
		var p publicCTFd
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return &CTFdMetadata{Domain: p.Domain, ForumChannelID: p.ForumChannelID}, nil
	default:
		var s storedCounter
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
		}
		return &CounterMetadata{Count: s.Counter}, nil
	}
}
