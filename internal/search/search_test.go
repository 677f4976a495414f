package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestEmbeddingClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		resp := EmbeddingResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	ec := NewEmbeddingClient(srv.URL+"/", "nomic-embed-text", 0)

	vecs, err := ec.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Errorf("vecs = %v", vecs)
	}

	vec, err := EmbedSingle(context.Background(), ec, "c")
	if err != nil {
		t.Fatalf("EmbedSingle: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vec = %v", vec)
	}

	if vecs, err := ec.Embed(context.Background(), nil); err != nil || vecs != nil {
		t.Errorf("empty input = %v, %v", vecs, err)
	}
}

func TestEmbeddingClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusServiceUnavailable, "loading model", "status 503"},
		{"count mismatch", http.StatusOK, `{"embeddings":[]}`, "got 0 embeddings"},
		{"bad json", http.StatusOK, `nope`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewEmbeddingClient(srv.URL, "m", 0).Embed(context.Background(), []string{"x"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentEmbeddingText(t *testing.T) {
	if got := (Document{Title: "Buy milk"}).embeddingText(); got != "Buy milk" {
		t.Errorf("title only = %q", got)
	}
	if got := (Document{Title: "Call", Text: "Sam"}).embeddingText(); got != "Call\nSam" {
		t.Errorf("title+text = %q", got)
	}
}

func TestPayloadString(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{"title": "Pay rent", "count": 3})

	if got := payloadString(payload, "title"); got != "Pay rent" {
		t.Errorf("title = %q", got)
	}
	if got := payloadString(payload, "count"); got != "" {
		t.Errorf("non-string = %q, want empty", got)
	}
	if got := payloadString(payload, "missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}
