package combiner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-transform-registry/internal/httpclient"
	"github.com/stacklok/toolhive-transform-registry/internal/otel"
)

// ConfigPath is appended to an engine base URL to read its transform configuration
const ConfigPath = "/transform/config"

// ErrNoTransformers is recorded when an engine answered 200 but added no transformers
var ErrNoTransformers = errors.New("returned no transformers")

// FetchError is the failure of a single engine. It is logged, never returned by
// AddRemoteConfig.
type FetchError struct {
	URL        string
	RemoteType string
	Err        error
}

// Error returns the error message
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s on %s %v", e.RemoteType, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is returned for an engine that answered with a status other than 200
type StatusError struct {
	StatusCode int

	// Message is the error message found in the response body, possibly empty
	Message string

	Err error
}

// Error returns the error message
func (e *StatusError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("returned a %d status %s", e.StatusCode, e.Message))
}

// Unwrap returns the underlying error
func (e *StatusError) Unwrap() error {
	return e.Err
}

// ConfigURL returns the transform configuration URL of an engine
func ConfigURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + ConfigPath
}

// download is the raw outcome of fetching one engine
type download struct {
	baseURL  string
	url      string
	body     []byte
	err      error
	duration time.Duration
}

// AddRemoteConfig reads the configuration of every engine in urls. remoteType labels the
// engines in origins and log messages, for example "T-Engine".
//
// Every URL is attempted. It returns true only when every engine contributed at least one
// transformer; the run engine count grows by one for each engine that did.
func (r *Run) AddRemoteConfig(ctx context.Context, urls []string, remoteType string) bool {
	ctx, span := otel.StartSpan(ctx, r.combiner.tracer, "combiner.AddRemoteConfig",
		trace.WithAttributes(
			otel.AttrRunID.String(r.id),
			otel.AttrRemoteType.String(remoteType),
			otel.AttrResultCount.Int(len(urls)),
		),
	)
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("run_id", r.id, "remote_type", remoteType)

	success := true
	for _, d := range r.combiner.downloadAll(ctx, urls) {
		err := r.mergeDownload(ctx, d, remoteType)
		r.combiner.metrics.RecordFetchDuration(ctx, d.baseURL, d.duration, err == nil)
		if err != nil {
			logger.Error(err, "Failed to read transform engine config", "url", d.url)
			success = false
			continue
		}
		r.stats.EngineCount++
	}

	span.SetAttributes(otel.AttrEngineCount.Int(r.stats.EngineCount))
	if !success {
		otel.RecordError(span, fmt.Errorf("failed to read the config of one or more %s engines", remoteType))
	}
	return success
}

// downloadAll fetches every engine and returns the results in the order of urls.
// At most c.concurrency requests are in flight.
func (c *Combiner) downloadAll(ctx context.Context, urls []string) []download {
	results := make([]download, len(urls))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, baseURL := range urls {
		g.Go(func() error {
			results[i] = c.download(ctx, baseURL)
			return nil
		})
	}
	// Per engine failures are kept in results; the group never fails
	_ = g.Wait()

	return results
}

func (c *Combiner) download(ctx context.Context, baseURL string) download {
	url := ConfigURL(baseURL)

	ctx, span := otel.StartSpan(ctx, c.tracer, "combiner.download",
		trace.WithAttributes(otel.AttrEngineURL.String(url)),
	)
	defer span.End()

	start := time.Now()
	body, err := c.client.Get(ctx, url)
	otel.RecordError(span, err)

	return download{
		baseURL:  baseURL,
		url:      url,
		body:     body,
		err:      err,
		duration: time.Since(start),
	}
}

// mergeDownload merges a successful download into the run, or describes why it failed
func (r *Run) mergeDownload(ctx context.Context, d download, remoteType string) error {
	if d.err != nil {
		return &FetchError{URL: d.url, RemoteType: remoteType, Err: describeFetchError(d.err)}
	}

	before := len(r.entries)
	readFrom := remoteType + " on " + d.baseURL
	if err := r.combiner.reader.ReadDocument(ctx, d.body, readFrom, d.baseURL, r.AddDocument); err != nil {
		return &FetchError{URL: d.url, RemoteType: remoteType, Err: fmt.Errorf("returned an unreadable config: %w", err)}
	}
	r.stats.DocumentCount++

	if len(r.entries) == before {
		return &FetchError{URL: d.url, RemoteType: remoteType, Err: ErrNoTransformers}
	}
	return nil
}

func describeFetchError(err error) error {
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		return &StatusError{
			StatusCode: httpErr.StatusCode,
			Message:    ExtractErrorMessage(httpErr.Body),
			Err:        httpErr,
		}
	}
	if errors.Is(err, httpclient.ErrNoEntity) {
		return fmt.Errorf("did not return an entity: %w", err)
	}
	return fmt.Errorf("failed to connect or to read the response: %w", err)
}
