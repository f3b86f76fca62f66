package revenium

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TraceContext carries the environment, region, and trace identifiers
// attached to a usage record for distributed-tracing correlation. Region is
// resolved once per process and cached; the other fields resolve from the
// environment on every access.
type TraceContext struct {
	Environment         string
	Region              string
	CredentialAlias     string
	TraceType           string
	TraceName           string
	ParentTransactionID string
	TransactionName     string
	RetryNumber         *int
	OperationSubtype    string
}

const (
	defaultRegionMetadataURL = "http://169.254.169.254/latest/meta-data/placement/region"
	regionLookupTimeout      = 500 * time.Millisecond
)

// Cloud-provider region variables checked before any metadata lookup.
var regionEnvVars = []string{"AWS_REGION", "AZURE_REGION", "GCP_REGION", "REVENIUM_REGION"}

// regionResolver caches the deployment region for the process lifetime.
// Concurrent first-time callers share one metadata request via singleflight.
type regionResolver struct {
	url    string
	client *http.Client

	group  singleflight.Group
	mu     sync.Mutex
	region string
	cached bool
}

func newRegionResolver(url string) *regionResolver {
	return &regionResolver{url: url, client: &http.Client{}}
}

// Resolve returns the deployment region, or "" when it cannot be determined.
// Environment variables win without any network call; otherwise the cloud
// instance metadata endpoint is queried once and the result cached. Failed
// lookups are not cached so a later call may retry.
func (r *regionResolver) Resolve(ctx context.Context, logger Logger) string {
	r.mu.Lock()
	if r.cached {
		region := r.region
		r.mu.Unlock()
		return region
	}
	r.mu.Unlock()

	for _, key := range regionEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			r.mu.Lock()
			r.region, r.cached = v, true
			r.mu.Unlock()
			return v
		}
	}

	v, _, _ := r.group.Do("region", func() (any, error) {
		region, err := r.fetch(ctx)
		if err != nil {
			if logger != nil {
				logger.Debug("region metadata lookup failed: %v", err)
			}
			return "", nil
		}
		r.mu.Lock()
		r.region, r.cached = region, true
		r.mu.Unlock()
		return region, nil
	})
	return v.(string)
}

func (r *regionResolver) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, regionLookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata endpoint returned %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

// Reset clears the cached region and forgets any in-flight lookup.
func (r *regionResolver) Reset() {
	r.mu.Lock()
	r.region, r.cached = "", false
	r.mu.Unlock()
	r.group.Forget("region")
}

var regionCache = newRegionResolver(defaultRegionMetadataURL)

// ResolveRegion returns the deployment region for this process, caching the
// first successful resolution.
func ResolveRegion(ctx context.Context) string {
	return regionCache.Resolve(ctx, nil)
}

// ResetRegionCache clears the process-wide region cache. Intended for tests.
func ResetRegionCache() {
	regionCache.Reset()
}

const (
	maxEnvironmentLen     = 255
	maxCredentialAliasLen = 255
	maxTraceTypeLen       = 128
	maxTraceNameLen       = 256
)

var traceTypeRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func getEnvironment(logger Logger) string {
	env := os.Getenv("REVENIUM_ENVIRONMENT")
	if env == "" {
		env = os.Getenv("DEPLOYMENT_ENV")
	}
	trimmed := strings.TrimSpace(env)
	if len(trimmed) > maxEnvironmentLen {
		logger.Warn("environment exceeds max length of %d characters, truncating", maxEnvironmentLen)
		return trimmed[:maxEnvironmentLen]
	}
	return trimmed
}

func getCredentialAlias(logger Logger) string {
	alias := strings.TrimSpace(os.Getenv("REVENIUM_CREDENTIAL_ALIAS"))
	if len(alias) > maxCredentialAliasLen {
		logger.Warn("credentialAlias exceeds max length of %d characters, truncating", maxCredentialAliasLen)
		return alias[:maxCredentialAliasLen]
	}
	return alias
}

func getTraceType(logger Logger) string {
	traceType := os.Getenv("REVENIUM_TRACE_TYPE")
	if traceType == "" {
		return ""
	}
	if len(traceType) > maxTraceTypeLen {
		logger.Warn("trace type exceeds max length of %d characters: %s, truncating", maxTraceTypeLen, traceType)
		traceType = traceType[:maxTraceTypeLen]
	}
	if !traceTypeRe.MatchString(traceType) {
		logger.Warn("invalid trace type format: %s, must be alphanumeric with hyphens/underscores only", traceType)
		return ""
	}
	return traceType
}

func getTraceName(logger Logger) string {
	traceName := os.Getenv("REVENIUM_TRACE_NAME")
	if len(traceName) > maxTraceNameLen {
		logger.Warn("trace name exceeds max length of %d characters, truncating", maxTraceNameLen)
		return traceName[:maxTraceNameLen]
	}
	return traceName
}

func getParentTransactionID() string {
	return os.Getenv("REVENIUM_PARENT_TRANSACTION_ID")
}

func getTransactionName() string {
	return os.Getenv("REVENIUM_TRANSACTION_NAME")
}

func getRetryNumber() *int {
	v := os.Getenv("REVENIUM_RETRY_NUMBER")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// detectOperationSubtype reports "function_call" when the request carries
// tool or function definitions.
func detectOperationSubtype(req *ChatRequest) string {
	if req != nil && (len(req.Tools) > 0 || len(req.Functions) > 0) {
		return "function_call"
	}
	return ""
}

// resolveTraceContext gathers all trace fields for a single record.
func resolveTraceContext(ctx context.Context, req *ChatRequest, logger Logger) *TraceContext {
	return &TraceContext{
		Environment:         getEnvironment(logger),
		Region:              regionCache.Resolve(ctx, logger),
		CredentialAlias:     getCredentialAlias(logger),
		TraceType:           getTraceType(logger),
		TraceName:           getTraceName(logger),
		ParentTransactionID: getParentTransactionID(),
		TransactionName:     getTransactionName(),
		RetryNumber:         getRetryNumber(),
		OperationSubtype:    detectOperationSubtype(req),
	}
}
