// Package testutil provides an in-process stand-in for the MetaDefender Cloud API.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	ApiKey = "test-api-key"
	DataId = "bzIzMDkxOEdnWmZ4Mk9NZk9lZVdvaDdQT1A"
)

// Upload records one request received by the file submission endpoint.
type Upload struct {
	ContentType   string
	ContentLength int64
	Filename      string
	Body          []byte
}

// MockMetadefender serves the hash lookup, file submission and submission
// status endpoints under /v4 and counts every call.
type MockMetadefender struct {
	Server *httptest.Server

	mu sync.Mutex
	// Reports maps a digest to the report returned by the hash lookup.
	Reports map[string]map[string]interface{}
	// Progress is returned, one value per call, by the submission status
	// endpoint. The last value repeats once the sequence is exhausted.
	Progress []int
	// LookupHandler and UploadHandler replace the default behaviour when set.
	LookupHandler http.HandlerFunc
	UploadHandler http.HandlerFunc
	PollHandler   http.HandlerFunc

	lookupCalls int
	pollCalls   int
	uploads     []Upload
}

func NewMockMetadefender(t *testing.T) *MockMetadefender {
	t.Helper()

	m := &MockMetadefender{
		Reports:  make(map[string]map[string]interface{}),
		Progress: []int{100},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v4/hash/{hash}", m.authorized(m.handleLookup))
	mux.HandleFunc("POST /v4/file", m.authorized(m.handleUpload))
	mux.HandleFunc("GET /v4/file/{id}", m.authorized(m.handlePoll))

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)

	return m
}

// BaseUrl is the value to configure as the client's base url.
func (m *MockMetadefender) BaseUrl() string {
	return m.Server.URL + "/v4"
}

func (m *MockMetadefender) LookupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupCalls
}

func (m *MockMetadefender) PollCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCalls
}

func (m *MockMetadefender) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Upload(nil), m.uploads...)
}

func (m *MockMetadefender) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != ApiKey {
			JSONHandler(http.StatusUnauthorized, ErrorBody(401006, "Invalid API key"))(w, r)
			return
		}
		next(w, r)
	}
}

func (m *MockMetadefender) handleLookup(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.lookupCalls++
	override := m.LookupHandler
	report, ok := m.Reports[strings.ToLower(r.PathValue("hash"))]
	m.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}
	if !ok {
		JSONHandler(http.StatusNotFound, ErrorBody(404003, "The hash was not found"))(w, r)
		return
	}
	JSONHandler(http.StatusOK, report)(w, r)
}

func (m *MockMetadefender) handleUpload(w http.ResponseWriter, r *http.Request) {
	upload := Upload{
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		Filename:      r.Header.Get("filename"),
	}

	if strings.HasPrefix(upload.ContentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			JSONHandler(http.StatusBadRequest, ErrorBody(400064, "Provide a single file"))(w, r)
			return
		}
		defer file.Close()
		upload.Body, _ = io.ReadAll(file)
		upload.Filename = header.Filename
	} else {
		upload.Body, _ = io.ReadAll(r.Body)
	}

	m.mu.Lock()
	m.uploads = append(m.uploads, upload)
	override := m.UploadHandler
	m.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}
	JSONHandler(http.StatusOK, map[string]interface{}{
		"data_id":        DataId,
		"status":         "inqueue",
		"in_queue":       0,
		"queue_priority": "normal",
	})(w, r)
}

func (m *MockMetadefender) handlePoll(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.pollCalls++
	override := m.PollHandler
	progress := 100
	if len(m.Progress) > 0 {
		idx := m.pollCalls - 1
		if idx >= len(m.Progress) {
			idx = len(m.Progress) - 1
		}
		progress = m.Progress[idx]
	}
	m.mu.Unlock()

	if override != nil {
		override(w, r)
		return
	}
	if r.PathValue("id") != DataId {
		JSONHandler(http.StatusNotFound, ErrorBody(404008, "The data_id was not found"))(w, r)
		return
	}
	JSONHandler(http.StatusOK, Report("sample.exe", progress))(w, r)
}

// JSONHandler returns an http.HandlerFunc that responds with the given status code and JSON body.
func JSONHandler(statusCode int, body interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}
}

func ErrorBody(code int, messages ...string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":     code,
			"messages": messages,
		},
	}
}

// Report builds a scan report with two engines, one of which flags the file.
func Report(displayName string, progress int) map[string]interface{} {
	return map[string]interface{}{
		"data_id": DataId,
		"file_info": map[string]interface{}{
			"display_name": displayName,
			"file_size":    68,
			"sha256":       "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f",
		},
		"scan_results": map[string]interface{}{
			"scan_all_result_a":   "Infected",
			"scan_all_result_i":   1,
			"progress_percentage": progress,
			"total_avs":           2,
			"total_detected_avs":  1,
			"scan_details": map[string]interface{}{
				"ClamAV": map[string]interface{}{
					"threat_found":  "Eicar-Signature",
					"scan_result_i": 1,
					"def_time":      "2026-10-17T00:00:00.000Z",
					"scan_time":     12,
				},
				"Avira": map[string]interface{}{
					"threat_found":  "",
					"scan_result_i": 0,
					"def_time":      "2026-10-16T00:00:00.000Z",
					"scan_time":     4,
				},
			},
		},
	}
}
