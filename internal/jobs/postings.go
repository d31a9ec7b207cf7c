package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"
)

type Postings struct {
	Items []*Posting
}

type ExcludedPostings struct {
	Items []*ExcludedPosting
}

type ExcludedPosting struct {
	ID         string
	Title      string
	Category   string
	ExcludedAt time.Time
}

// LoadFile reads postings from a JSON file holding either an array of
// postings or an object with an "items" array.
func LoadFile(path string) (*Postings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Decode(data)
}

func Decode(data []byte) (*Postings, error) {
	var items []*Posting
	if err := json.Unmarshal(data, &items); err == nil {
		return &Postings{Items: compact(items)}, nil
	}

	var wrapped struct {
		Items []*Posting `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	return &Postings{Items: compact(wrapped.Items)}, nil
}

func compact(items []*Posting) []*Posting {
	return slices.DeleteFunc(items, func(p *Posting) bool { return p == nil })
}

func (p *Postings) DumpToTmpFile() (string, error) {
	return DumpToTmpFile("postings_*.json", p.Items)
}

// DumpToTmpFile writes v as indented JSON to a new temp file named after pattern.
func DumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (p *Postings) ToExcluded() *ExcludedPostings {
	excluded := &ExcludedPostings{}
	for _, posting := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			ID:         posting.ID,
			Title:      posting.Title,
			Category:   posting.Category,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

func GetExcludedFromFile(path string) (*ExcludedPostings, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedPostings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedPostings) Append(s *ExcludedPostings) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedPostings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, posting := range e.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

func (e *ExcludedPostings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// ReportByCategory groups posting summaries by category. Postings without a category go under "uncategorized".
func (p *Postings) ReportByCategory() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Category
		if key == "" {
			key = "uncategorized"
		}

		entry := map[string]string{
			"id":    posting.ID,
			"title": posting.Title,
		}
		if posting.ExperienceLevel != "" {
			entry["experience_level"] = posting.ExperienceLevel
		}
		if posting.CreatedAt != nil {
			entry["created_at"] = posting.CreatedAt.Format(time.DateOnly)
		}
		if posting.Urgent {
			entry["urgent"] = "true"
		}
		if posting.Featured {
			entry["featured"] = "true"
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

func (p *Postings) FindByID(id string) *Posting {
	for _, posting := range p.Items {
		if posting.ID == id {
			return posting
		}
	}
	return nil
}

// Exclude removes every posting whose field matches one of targets and returns the removed IDs.
// Relative order of the remaining postings is preserved.
func (p *Postings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}

	return p.ExcludeFunc(func(posting *Posting) bool {
		_, ok := set[posting.GetStringField(name)]
		return ok
	})
}

// ExcludeFunc removes postings for which drop returns true and returns their IDs.
func (p *Postings) ExcludeFunc(drop func(*Posting) bool) []string {
	var excluded []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if drop(posting) {
			excluded = append(excluded, posting.ID)
			continue
		}
		kept = append(kept, posting)
	}
	clear(p.Items[len(kept):])
	p.Items = kept
	return excluded
}
