package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dom/tft-catalog/internal/domain"
)

// TestVersion is the Data Dragon version used across tests
const TestVersion = "15.9.1"

// RecordBuilder creates upstream records with a builder pattern
type RecordBuilder struct {
	fields map[string]interface{}
	image  map[string]interface{}
}

// NewRecordBuilder creates a record with sensible image defaults derived from id
func NewRecordBuilder(id string) *RecordBuilder {
	short := id
	if i := strings.LastIndex(id, "_"); i >= 0 && i < len(id)-1 {
		short = id[i+1:]
	}
	return &RecordBuilder{
		fields: map[string]interface{}{
			"id":   id,
			"name": short,
		},
		image: map[string]interface{}{
			"full":   short + ".png",
			"sprite": "tft-item0.png",
			"group":  "tft-item",
			"x":      0,
			"y":      0,
			"w":      48,
			"h":      48,
		},
	}
}

// WithName sets the display name
func (b *RecordBuilder) WithName(name string) *RecordBuilder {
	b.fields["name"] = name
	return b
}

// WithTier sets the champion cost
func (b *RecordBuilder) WithTier(tier int) *RecordBuilder {
	b.fields["tier"] = tier
	return b
}

// WithField sets any other upstream field
func (b *RecordBuilder) WithField(key string, value interface{}) *RecordBuilder {
	b.fields[key] = value
	return b
}

// WithImage sets the image file names and sprite offset
func (b *RecordBuilder) WithImage(full, sprite string, x, y, w, h int) *RecordBuilder {
	b.image["full"] = full
	b.image["sprite"] = sprite
	b.image["x"], b.image["y"], b.image["w"], b.image["h"] = x, y, w, h
	return b
}

// WithoutImage drops the image sub-record
func (b *RecordBuilder) WithoutImage() *RecordBuilder {
	b.image = nil
	return b
}

// Build returns the record
func (b *RecordBuilder) Build(t *testing.T) domain.Record {
	t.Helper()

	record := make(domain.Record, len(b.fields)+1)
	for k, v := range b.fields {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode field %s: %v", k, err)
		}
		record[k] = raw
	}
	if b.image != nil {
		raw, err := json.Marshal(b.image)
		if err != nil {
			t.Fatalf("failed to encode image: %v", err)
		}
		record["image"] = raw
	}
	return record
}

// CatalogPath returns the upstream path of a catalog document
func CatalogPath(version, name string) string {
	return fmt.Sprintf("/cdn/%s/data/en_US/%s", version, name)
}

// Upstream is a fake Data Dragon server
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	docs     map[string][]byte
	statuses map[string]int
	hits     map[string]int
	hang     bool
	release  chan struct{}
}

// NewUpstream starts a fake Data Dragon. Unknown paths answer 404.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()

	u := &Upstream{
		docs:     make(map[string][]byte),
		statuses: make(map[string]int),
		hits:     make(map[string]int),
		release:  make(chan struct{}),
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))

	t.Cleanup(u.Server.Close)
	// Runs before Server.Close so hanging handlers return.
	t.Cleanup(func() { close(u.release) })

	return u
}

// URL returns the host root, to be used as DataDragonHost
func (u *Upstream) URL() string {
	return u.Server.URL
}

// BaseURL returns the versioned CDN root
func (u *Upstream) BaseURL(version string) string {
	return u.Server.URL + "/cdn/" + version
}

// SetCatalog serves records under {data: {id: record}} in the given order
func (u *Upstream) SetCatalog(t *testing.T, version, name string, records ...domain.Record) {
	t.Helper()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"type":%q,"version":%q,"data":{`, strings.TrimSuffix(name, ".json"), version)
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(r.ID())
		value, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("failed to encode record %s: %v", r.ID(), err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString("}}")

	u.SetRaw(CatalogPath(version, name), buf.Bytes())
}

// SetRaw serves body verbatim at path
func (u *Upstream) SetRaw(path string, body []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.docs[path] = body
}

// SetVersions serves the versions list
func (u *Upstream) SetVersions(versions ...string) {
	body, _ := json.Marshal(versions)
	u.SetRaw("/api/versions.json", body)
}

// SetStatus forces a status code for path
func (u *Upstream) SetStatus(path string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses[path] = status
}

// Hang makes every request block until the client gives up
func (u *Upstream) Hang() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hang = true
}

// Hits returns how often path was requested
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	hang := u.hang
	status, forced := u.statuses[r.URL.Path]
	body, found := u.docs[r.URL.Path]
	u.mu.Unlock()

	if hang {
		select {
		case <-r.Context().Done():
		case <-u.release:
		}
		return
	}
	if forced {
		w.WriteHeader(status)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
