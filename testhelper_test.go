package revenium

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingLogger captures log lines for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	infos  []string
	warns  []string
	errs   []string
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record(&l.debugs, msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record(&l.infos, msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record(&l.warns, msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record(&l.errs, msg, args) }

func (l *recordingLogger) record(dst *[]string, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func (l *recordingLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errs...)
}

// clearEnv blanks every environment variable the middleware reads so tests
// are hermetic regardless of the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REVENIUM_METERING_API_KEY", "REVENIUM_API_KEY",
		"REVENIUM_METERING_BASE_URL", "REVENIUM_BASE_URL",
		"REVENIUM_TEAM_ID", "REVENIUM_CAPTURE_PROMPTS",
		"REVENIUM_MAX_PROMPT_SIZE", "REVENIUM_PRINT_SUMMARY",
		"REVENIUM_DEBUG", "REVENIUM_ENVIRONMENT", "DEPLOYMENT_ENV",
		"REVENIUM_CREDENTIAL_ALIAS", "REVENIUM_TRACE_TYPE",
		"REVENIUM_TRACE_NAME", "REVENIUM_PARENT_TRANSACTION_ID",
		"REVENIUM_TRANSACTION_NAME", "REVENIUM_RETRY_NUMBER",
		"AWS_REGION", "AZURE_REGION", "GCP_REGION", "REVENIUM_REGION",
	} {
		t.Setenv(key, "")
	}
}

// setTestRegion pins the region via env so no test touches the instance
// metadata endpoint, and resets the process-wide cache afterwards.
func setTestRegion(t *testing.T) {
	t.Helper()
	t.Setenv("AWS_REGION", "us-east-1")
	ResetRegionCache()
	t.Cleanup(ResetRegionCache)
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	base := []Option{WithAPIKey("hak_test-key"), WithLogger(logger)}
	client, err := NewClient(append(base, opts...)...)
	require.NoError(t, err)
	return client, logger
}

// captureServer records every metering payload POSTed to it.
type captureServer struct {
	*httptest.Server
	mu      sync.Mutex
	records []UsageRecord
	headers []http.Header
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var record UsageRecord
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cs.mu.Lock()
		cs.records = append(cs.records, record)
		cs.headers = append(cs.headers, r.Header.Clone())
		cs.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) received() []UsageRecord {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]UsageRecord(nil), cs.records...)
}

// fakeChunkStream replays a fixed chunk sequence. When failWith is set, the
// stream surfaces it after the chunks instead of a natural end.
type fakeChunkStream struct {
	chunks   []*ChatCompletionChunk
	failWith error
	pos      int
	closed   bool
}

func (f *fakeChunkStream) Recv() (*ChatCompletionChunk, error) {
	if f.pos >= len(f.chunks) {
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, io.EOF
	}
	chunk := f.chunks[f.pos]
	f.pos++
	return chunk, nil
}

func (f *fakeChunkStream) Close() error {
	f.closed = true
	return nil
}
