package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	PostingIDField       = "ID"
	PostingCategoryField = "Category"
)

// Keys of the posting fields the matcher understands. Anything else is kept in Extra.
const (
	keyID               = "id"
	keyTitle            = "title"
	keyDescription      = "description"
	keyRequirements     = "requirements"
	keyResponsibilities = "responsibilities"
	keyCategory         = "category"
	keyExperienceLevel  = "experience_level"
	keyCreatedAt        = "created_at"
	keyUrgent           = "urgent"
	keyFeatured         = "featured"
)

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Posting is a single open position. Unknown JSON keys survive a decode/encode round trip in Extra.
type Posting struct {
	ID               string
	Title            string
	Description      string
	Requirements     string
	Responsibilities string
	Category         string
	ExperienceLevel  string
	CreatedAt        *time.Time
	Urgent           bool
	Featured         bool

	Extra map[string]json.RawMessage
}

// UnmarshalJSON decodes known keys leniently: a value of an unexpected type
// is ignored instead of failing the whole posting.
func (p *Posting) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode posting: %w", err)
	}

	*p = Posting{}

	p.ID = rawID(raw[keyID])
	p.Title = rawString(raw[keyTitle])
	p.Description = rawString(raw[keyDescription])
	p.Requirements = rawString(raw[keyRequirements])
	p.Responsibilities = rawString(raw[keyResponsibilities])
	p.Category = rawString(raw[keyCategory])
	p.ExperienceLevel = rawString(raw[keyExperienceLevel])
	p.CreatedAt = rawTime(raw[keyCreatedAt])
	p.Urgent = rawBool(raw[keyUrgent])
	p.Featured = rawBool(raw[keyFeatured])

	for _, key := range knownKeys() {
		delete(raw, key)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	return nil
}

// MarshalJSON writes the known fields back next to the preserved extra keys.
func (p Posting) MarshalJSON() ([]byte, error) {
	fields, err := p.Fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Fields returns the JSON object of the posting as a key to raw value map.
// Known fields win over extra keys with the same name.
func (p Posting) Fields() (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(p.Extra)+10)
	maps.Copy(fields, p.Extra)

	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode posting field %s: %w", key, err)
		}
		fields[key] = b
		return nil
	}

	entries := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyID, p.ID, p.ID == ""},
		{keyTitle, p.Title, p.Title == ""},
		{keyDescription, p.Description, p.Description == ""},
		{keyRequirements, p.Requirements, p.Requirements == ""},
		{keyResponsibilities, p.Responsibilities, p.Responsibilities == ""},
		{keyCategory, p.Category, p.Category == ""},
		{keyExperienceLevel, p.ExperienceLevel, p.ExperienceLevel == ""},
		{keyCreatedAt, p.CreatedAt, p.CreatedAt == nil},
		{keyUrgent, p.Urgent, !p.Urgent},
		{keyFeatured, p.Featured, !p.Featured},
	}

	for _, e := range entries {
		if e.skip {
			continue
		}
		if err := set(e.key, e.value); err != nil {
			return nil, err
		}
	}

	return fields, nil
}

// Clone returns a deep copy so callers can derive new values without touching the source.
func (p *Posting) Clone() Posting {
	if p == nil {
		return Posting{}
	}

	c := *p
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		c.CreatedAt = &t
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = bytes.Clone(v)
		}
	}
	return c
}

// SearchText is the lowercased, space joined text the skill matcher searches in.
func (p *Posting) SearchText() string {
	return strings.ToLower(strings.Join([]string{p.Title, p.Description, p.Requirements, p.Responsibilities}, " "))
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ID
	case PostingCategoryField:
		return p.Category
	default:
		return ""
	}
}

func knownKeys() []string {
	return []string{
		keyID, keyTitle, keyDescription, keyRequirements, keyResponsibilities,
		keyCategory, keyExperienceLevel, keyCreatedAt, keyUrgent, keyFeatured,
	}
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// rawID accepts both string and numeric identifiers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if s := rawString(raw); s != "" {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func rawBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func rawTime(raw json.RawMessage) *time.Time {
	return ParseTime(rawString(raw))
}

// ParseTime parses a posting timestamp. It returns nil for empty or unparsable values.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
