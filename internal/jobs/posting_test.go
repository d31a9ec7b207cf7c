package jobs

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPostingUnmarshalPreservesUnknownFields(t *testing.T) {
	input := `{
		"id": 42,
		"title": "Go Developer",
		"category": "software-development",
		"created_at": "2024-05-01T10:00:00Z",
		"urgent": true,
		"company": {"name": "Acme"},
		"salary": 1000
	}`

	var p Posting
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ID != "42" {
		t.Fatalf("expected numeric id to decode as \"42\", got %q", p.ID)
	}
	if !p.Urgent || p.Featured {
		t.Fatalf("unexpected flags: urgent=%v featured=%v", p.Urgent, p.Featured)
	}
	if p.CreatedAt == nil || !p.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at: %v", p.CreatedAt)
	}
	if len(p.Extra) != 2 {
		t.Fatalf("expected 2 extra fields, got %d", len(p.Extra))
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	company, ok := decoded["company"].(map[string]any)
	if !ok || company["name"] != "Acme" {
		t.Fatalf("expected company to pass through, got %v", decoded["company"])
	}
	if decoded["salary"] != float64(1000) {
		t.Fatalf("expected salary to pass through, got %v", decoded["salary"])
	}
	if decoded["title"] != "Go Developer" {
		t.Fatalf("unexpected title: %v", decoded["title"])
	}
	if _, ok := decoded["featured"]; ok {
		t.Fatalf("did not expect featured in output")
	}
}

func TestPostingUnmarshalIgnoresMalformedKnownFields(t *testing.T) {
	input := `{"title": 5, "urgent": "yes", "created_at": "last week", "description": "ok"}`

	var p Posting
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Title != "" {
		t.Fatalf("expected non-string title to be ignored, got %q", p.Title)
	}
	if p.Urgent {
		t.Fatalf("expected non-bool urgent to default to false")
	}
	if p.CreatedAt != nil {
		t.Fatalf("expected unparsable created_at to be nil")
	}
	if p.Description != "ok" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if len(p.Extra) != 0 {
		t.Fatalf("known keys must not leak into extra: %v", p.Extra)
	}
}

func TestPostingCloneIsIndependent(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	original := &Posting{
		ID:        "1",
		CreatedAt: &created,
		Extra:     map[string]json.RawMessage{"company": json.RawMessage(`"Acme"`)},
	}

	clone := original.Clone()
	clone.Extra["company"][1] = 'X'
	*clone.CreatedAt = created.AddDate(1, 0, 0)
	clone.ID = "2"

	if string(original.Extra["company"]) != `"Acme"` {
		t.Fatalf("original extra mutated: %s", original.Extra["company"])
	}
	if !original.CreatedAt.Equal(created) {
		t.Fatalf("original created_at mutated: %v", original.CreatedAt)
	}
	if original.ID != "1" {
		t.Fatalf("original id mutated")
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect *time.Time
	}{
		{name: "empty", input: "  ", expect: nil},
		{name: "rfc3339 with fraction", input: "2024-03-02T01:02:03.5Z", expect: ptr(time.Date(2024, 3, 2, 1, 2, 3, 500000000, time.UTC))},
		{name: "date only", input: "2024-03-02", expect: ptr(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))},
		{name: "garbage", input: "yesterday", expect: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseTime(tt.input)
			switch {
			case tt.expect == nil && got != nil:
				t.Fatalf("expected nil, got %v", got)
			case tt.expect != nil && (got == nil || !got.Equal(*tt.expect)):
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }
