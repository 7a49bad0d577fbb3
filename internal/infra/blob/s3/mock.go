package s3

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// NewMockForTests returns a *Store backed by an in-memory fake HTTP transport.
// Only the object operations used by core.Store are implemented.
func NewMockForTests() *Store {
	store, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "mock-bucket",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: newMockRoundTripper()},
	})
	if err != nil {
		panic(fmt.Sprintf("mock s3 store: %v", err))
	}
	return store
}

// mockRoundTripper fakes Head/Get/Put on a single path-style bucket.
type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string]mockObj
}

type mockObj struct {
	body        []byte
	contentType string
	metadata    http.Header
	modified    time.Time
}

func newMockRoundTripper() *mockRoundTripper {
	return &mockRoundTripper{state: make(map[string]mockObj)}
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		st, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound, nil, http.Header{}), nil
		}
		header := http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(st.body))},
			"Content-Type":   {st.contentType},
			"ETag":           {"\"" + etagOf(st.body) + "\""},
			"Last-Modified":  {st.modified.Format(http.TimeFormat)},
		}
		for k, v := range st.metadata {
			header[k] = v
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil, header), nil
		}
		return respond(http.StatusOK, st.body, header), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if isAWSChunked(req.Header) {
			dec, ok := decodeChunked(body)
			if !ok {
				return respond(http.StatusBadRequest, nil, http.Header{}), nil
			}
			body = dec
		}
		md := http.Header{}
		for k, v := range req.Header {
			if strings.HasPrefix(strings.ToLower(k), "x-amz-meta-") {
				md[k] = v
			}
		}
		m.state[key] = mockObj{body: body, contentType: req.Header.Get("Content-Type"), metadata: md, modified: time.Now().UTC()}
		return respond(http.StatusOK, nil, http.Header{"ETag": {"\"" + etagOf(body) + "\""}}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func isAWSChunked(h http.Header) bool {
	return strings.Contains(h.Get("Content-Encoding"), "aws-chunked") || h.Get("X-Amz-Decoded-Content-Length") != ""
}

func respond(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

func etagOf(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// decodeChunked decodes an aws-chunked payload (<hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>).
func decodeChunked(b []byte) ([]byte, bool) {
	var out []byte
	rest := b
	for {
		line, after, found := bytes.Cut(rest, []byte("\r\n"))
		if !found {
			return nil, false
		}
		sz, err := parseHex(strings.SplitN(string(line), ";", 2)[0])
		if err != nil {
			return nil, false
		}
		if sz == 0 {
			return out, true
		}
		if int64(len(after)) < sz+2 {
			return nil, false
		}
		out = append(out, after[:sz]...)
		rest = after[sz+2:]
	}
}

func parseHex(h string) (int64, error) {
	if h == "" {
		return 0, fmt.Errorf("invalid hex")
	}
	var v int64
	for _, c := range h {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v += int64(c - '0')
		case c >= 'a' && c <= 'f':
			v += int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v += int64(c-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex")
		}
	}
	return v, nil
}
