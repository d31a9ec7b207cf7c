package jobs

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"go.uber.org/zap"
)

func TestClientFetchFollowsPages(t *testing.T) {
	var auth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))

		page := r.URL.Query().Get("page")
		body := map[string]any{"pages": 2, "per_page": 1}
		switch page {
		case "", "0":
			body["page"] = 0
			body["items"] = []map[string]any{{"id": "1", "title": "Go Developer"}}
		case "1":
			body["page"] = 1
			body["items"] = []map[string]any{{"id": "2", "title": "Data Analyst", "team": "bi"}}
		default:
			t.Errorf("unexpected page %q", page)
		}

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(body); err != nil {
			t.Errorf("encode: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), "secret")
	postings, err := client.Fetch(context.Background(), server.URL+"/jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := postings.IDs(); !slices.Equal(got, []string{"1", "2"}) {
		t.Fatalf("unexpected ids: %v", got)
	}
	if string(postings.Items[1].Extra["team"]) != `"bi"` {
		t.Fatalf("expected extra field to survive, got %v", postings.Items[1].Extra)
	}
	for _, header := range auth {
		if header != "Bearer secret" {
			t.Fatalf("unexpected authorization header: %q", header)
		}
	}
}

func TestClientFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(nil, "")
	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error on bad status")
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com/jobs": true,
		"http://localhost:8080":    true,
		"jobs.json":                false,
		"/tmp/jobs.json":           false,
	}

	for source, expect := range cases {
		if got := IsRemote(source); got != expect {
			t.Fatalf("IsRemote(%q) = %v, want %v", source, got, expect)
		}
	}
}
