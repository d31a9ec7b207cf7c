package jobs

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDecodeAcceptsArrayAndWrappedItems(t *testing.T) {
	arr, err := Decode([]byte(`[{"id": "1"}, null, {"id": "2"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := arr.IDs(); !slices.Equal(got, []string{"1", "2"}) {
		t.Fatalf("unexpected ids: %v", got)
	}

	wrapped, err := Decode([]byte(`{"items": [{"id": "3"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wrapped.Len() != 1 || wrapped.Items[0].ID != "3" {
		t.Fatalf("unexpected items: %v", wrapped.IDs())
	}

	if _, err := Decode([]byte(`"nope"`)); err == nil {
		t.Fatalf("expected error for non-object input")
	}
}

func TestExcludePreservesOrder(t *testing.T) {
	postings := &Postings{Items: []*Posting{
		{ID: "1", Category: "design"},
		{ID: "2", Category: "marketing"},
		{ID: "3", Category: "design"},
		{ID: "4", Category: "sales"},
	}}

	removed := postings.Exclude(PostingCategoryField, []string{"design"})
	if !slices.Equal(removed, []string{"1", "3"}) {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if got := postings.IDs(); !slices.Equal(got, []string{"2", "4"}) {
		t.Fatalf("unexpected remaining ids: %v", got)
	}

	if removed := postings.Exclude(PostingIDField, nil); removed != nil {
		t.Fatalf("expected nothing removed for empty targets, got %v", removed)
	}
}

func TestReportByCategory(t *testing.T) {
	postings := &Postings{Items: []*Posting{
		{ID: "1", Title: "Designer", Category: "design", Urgent: true},
		{ID: "2", Title: "Intern"},
	}}

	report := postings.ReportByCategory()

	design := report["design"]
	if len(design) != 1 || design[0]["title"] != "Designer" || design[0]["urgent"] != "true" {
		t.Fatalf("unexpected design entries: %v", design)
	}
	if len(report["uncategorized"]) != 1 {
		t.Fatalf("expected uncategorized bucket, got %v", report)
	}
}

func TestExcludedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	empty, err := GetExcludedFromFile(path)
	if err != nil {
		t.Fatalf("missing file must be treated as empty: %v", err)
	}
	if len(empty.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(empty.Items))
	}

	postings := &Postings{Items: []*Posting{{ID: "a"}, {ID: "b"}}}
	empty.Append(postings.ToExcluded())
	if err := empty.ToFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := GetExcludedFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(loaded.IDs(), []string{"a", "b"}) {
		t.Fatalf("unexpected ids: %v", loaded.IDs())
	}
}

func TestDumpToTmpFile(t *testing.T) {
	postings := &Postings{Items: []*Posting{{ID: "1", Title: "Go Developer"}}}

	name, err := postings.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { os.Remove(name) })

	loaded, err := LoadFile(name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.FindByID("1") == nil || loaded.FindByID("1").Title != "Go Developer" {
		t.Fatalf("unexpected dump contents: %v", loaded.IDs())
	}
}
