package domain

import "encoding/json"

// CacheEntry is what the tracker keeps in memory per message id.
type CacheEntry struct {
	ChannelID Snowflake
	GuildID   Snowflake
	Subtype   Subtype
	Metadata  Metadata
}

type cacheEntryJSON struct {
	ChannelID   Snowflake       `json:"channel_id"`
	GuildID     Snowflake       `json:"guild_id"`
	MessageType Subtype         `json:"message_type"`
	Metadata    json.RawMessage `json:"metadata"`
}

// Clone deep-copies the entry.
func (e CacheEntry) Clone() CacheEntry {
	if e.Metadata != nil {
		e.Metadata = e.Metadata.Clone()
	}
	return e
}

// Counter returns the counter value and whether the entry is a counter.
func (e CacheEntry) Counter() (uint64, bool) {
	c, ok := e.Metadata.(*CounterMetadata)
	if !ok {
		return 0, false
	}
	return c.Count, true
}

func (e CacheEntry) MarshalJSON() ([]byte, error) {
	md := e.Metadata
	if md == nil {
		md = DecodeMetadata(e.Subtype, nil)
	}
	raw, err := json.Marshal(PublicMetadata(md))
	if err != nil {
		return nil, err
	}
	return json.Marshal(cacheEntryJSON{
		ChannelID:   e.ChannelID,
		GuildID:     e.GuildID,
		MessageType: e.Subtype,
		Metadata:    raw,
	})
}

// UnmarshalJSON reads the public view back. API keys never travel, so a
// decoded tracker entry always has an empty APIKey.
func (e *CacheEntry) UnmarshalJSON(data []byte) error {
	var raw cacheEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	subtype, err := ParseSubtype(string(raw.MessageType))
	if err != nil {
		return err
	}
	md, err := decodePublicMetadata(subtype, raw.Metadata)
	if err != nil {
		return err
	}
	*e = CacheEntry{
		ChannelID: raw.ChannelID,
		GuildID:   raw.GuildID,
		Subtype:   subtype,
		Metadata:  md,
	}
	return nil
}
