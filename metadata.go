package objectstore

import "encoding/json"

// Metadata is the on-disk sibling record for a stored object (§3, §6).
//
// Field names are fixed by the wire format and must not change: readers
// written against older versions of this store depend on them.
type Metadata struct {
	UUID      string    `json:"uuid"`
	Class     string    `json:"class"`
	Checksum  string    `json:"checksum"`
	CreatedAt float64   `json:"createdAt"`
	UpdatedAt float64   `json:"updatedAt"`
	TTL       *float64  `json:"ttl"`
	Children  []string  `json:"children"`
	Parents   []string  `json:"parents"`
}

// Expired reports whether the record is expired as of nowSec (epoch
// seconds), per invariant 3: ttl non-null and now > updatedAt+ttl. A ttl of
// zero or less is always expired.
func (m *Metadata) Expired(nowSec float64) bool {
	if m.TTL == nil {
		return false
	}

	if *m.TTL <= 0 {
		return true
	}

	return nowSec > m.UpdatedAt+*m.TTL
}

// RemainingLifetime returns the seconds left before expiry, or nil if the
// record has no TTL. A negative value means already expired.
func (m *Metadata) RemainingLifetime(nowSec float64) *float64 {
	if m.TTL == nil {
		return nil
	}

	remaining := (m.UpdatedAt + *m.TTL) - nowSec

	return &remaining
}

// MarshalMetadata encodes m as the JSON wire format described in §6.
func MarshalMetadata(m *Metadata) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMetadata decodes the JSON wire format described in §6.
func UnmarshalMetadata(data []byte) (*Metadata, error) {
	var m Metadata

	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

func ttlPtr(seconds float64) *float64 {
	return &seconds
}
