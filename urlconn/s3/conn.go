package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pithecene-io/s3url/urlconn"
)

const tracerName = "github.com/pithecene-io/s3url/urlconn/s3"

// API defines the subset of the S3 client interface used by connections.
// This enables testing with mock implementations.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger. Nil is ignored.
func WithLogger(l log15.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records fetches into m. Nil is ignored.
func WithMetrics(m *Metrics) Option {
	return func(c *Conn) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer for fetch spans. Nil is ignored.
func WithTracer(t trace.Tracer) Option {
	return func(c *Conn) {
		if t != nil {
			c.tracer = t
		}
	}
}

// Conn is a urlconn.Connection for one S3 object.
//
// A Conn is owned by a single goroutine; distinct Conns are independent.
type Conn struct {
	urlconn.Base

	baseCtx context.Context
	client  API
	log     log15.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// Populated by a successful fetch.
	out    *s3.GetObjectOutput
	body   io.ReadCloser
	header urlconn.Header
	date   time.Time
}

// NewConn creates an unconnected Conn for u. No request is made until
// Connect, Body, or a metadata accessor is called.
//
// ctx is used for fetches started implicitly by metadata accessors.
// A nil ctx means context.Background().
// Returns ErrInvalidScheme unless u's scheme is "s3" (any case).
func NewConn(ctx context.Context, u *url.URL, client API, opts ...Option) (*Conn, error) {
	if err := validateScheme(u); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Conn{
		Base:    urlconn.NewBase(u),
		baseCtx: ctx,
		client:  client,
		log:     discardLogger,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	bucket, key := BucketKey(u)
	c.log = c.log.New("conn", uuid.NewString(), "bucket", bucket, "key", key)
	return c, nil
}

func validateScheme(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("s3: %w: nil url", urlconn.ErrInvalidScheme)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return fmt.Errorf("s3: %w: only s3 protocol is supported, got %q", urlconn.ErrInvalidScheme, u.Scheme)
	}
	return nil
}

// BucketKey derives the bucket (URL host) and key (URL path with a single
// leading "/" removed).
func BucketKey(u *url.URL) (bucket, key string) {
	return u.Host, strings.TrimPrefix(u.Path, "/")
}

// -----------------------------------------------------------------------------
// Connect
// -----------------------------------------------------------------------------

// Connect fetches the object. After a success it is a no-op; after a failure
// it returns the stored error without issuing another request.
//
// Returns ErrUnsupportedOperation when output was requested. Fetch errors
// wrap urlconn.ErrNotFound or urlconn.ErrNotModified when they match.
func (c *Conn) Connect(ctx context.Context) error {
	return c.Establish(func() error {
		return c.fetch(ctx)
	})
}

func (c *Conn) fetch(ctx context.Context) error {
	if err := validateScheme(c.URL()); err != nil {
		return err
	}
	if c.DoOutput() {
		return fmt.Errorf("s3: %w: output is not supported", urlconn.ErrUnsupportedOperation)
	}

	bucket, key := BucketKey(c.URL())
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if ims := c.IfModifiedSince(); !ims.IsZero() {
		input.IfModifiedSince = aws.Time(ims)
	}

	ctx, span := c.tracer.Start(ctx, "s3.GetObject",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := c.client.GetObject(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		result, wrapped := classifyFetchError(bucket, key, err)
		c.metrics.observeFetch(result, elapsed)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, result)
		c.log.Debug("get object failed", "result", result, "err", err, "elapsed", elapsed)
		return wrapped
	}
	c.metrics.observeFetch(resultOK, elapsed)

	c.out = out
	c.header, c.date = responseHeader(out)

	body := out.Body
	if body == nil {
		body = http.NoBody
	}
	if c.DoInput() {
		c.body = &countingBody{ReadCloser: body, metrics: c.metrics}
	} else {
		_ = body.Close()
	}

	span.SetAttributes(attribute.Int64("s3.content_length", aws.ToInt64(out.ContentLength)))
	c.log.Debug("get object",
		"content_type", aws.ToString(out.ContentType),
		"content_length", aws.ToInt64(out.ContentLength),
		"elapsed", elapsed,
	)
	return nil
}

// tryConnect attempts a connection for metadata accessors. Errors are kept
// in the connection state and not reported.
func (c *Conn) tryConnect() {
	if c.Attempted() {
		return
	}
	if err := c.Connect(c.baseCtx); err != nil {
		c.log.Debug("metadata requested without response", "err", err)
	}
}

// Body connects and returns the object contents. Repeated calls return the
// same reader; the caller closes it.
//
// Returns ErrUnsupportedOperation when input was disabled.
func (c *Conn) Body(ctx context.Context) (io.ReadCloser, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if c.body == nil {
		return nil, fmt.Errorf("s3: %w: input is disabled", urlconn.ErrUnsupportedOperation)
	}
	return c.body, nil
}

// -----------------------------------------------------------------------------
// Metadata
// -----------------------------------------------------------------------------

// ContentType returns the object's Content-Type, or "".
func (c *Conn) ContentType() string {
	c.tryConnect()
	if c.out == nil {
		return ""
	}
	return aws.ToString(c.out.ContentType)
}

// ContentEncoding returns the object's Content-Encoding, or "".
func (c *Conn) ContentEncoding() string {
	c.tryConnect()
	if c.out == nil {
		return ""
	}
	return aws.ToString(c.out.ContentEncoding)
}

// ContentLength returns the object's length, or -1 when unknown.
func (c *Conn) ContentLength() int64 {
	c.tryConnect()
	if c.out == nil || c.out.ContentLength == nil {
		return -1
	}
	return *c.out.ContentLength
}

// Date returns the response Date header when the raw response carried one,
// otherwise the object's last-modified time.
func (c *Conn) Date() time.Time {
	c.tryConnect()
	if !c.date.IsZero() {
		return c.date
	}
	return c.LastModified()
}

// LastModified returns the object's last-modified time, or the zero time.
func (c *Conn) LastModified() time.Time {
	c.tryConnect()
	if c.out == nil {
		return time.Time{}
	}
	return aws.ToTime(c.out.LastModified)
}

// Expiration returns the object's Expires time, or the zero time.
func (c *Conn) Expiration() time.Time {
	c.tryConnect()
	if c.out == nil {
		return time.Time{}
	}
	return expires(c.out)
}

// Header returns the response headers.
func (c *Conn) Header() urlconn.Header {
	c.tryConnect()
	return c.header
}

// HeaderField returns the last value of the named header, or "".
func (c *Conn) HeaderField(name string) string {
	return c.Header().Get(name)
}

// HeaderFieldAt returns the last value of the n-th header, or "".
func (c *Conn) HeaderFieldAt(n int) string {
	return c.Header().Value(n)
}

// HeaderFieldKey returns the name of the n-th header, or "".
func (c *Conn) HeaderFieldKey(n int) string {
	return c.Header().Key(n)
}

var _ urlconn.Connection = (*Conn)(nil)

// -----------------------------------------------------------------------------
// Response mapping
// -----------------------------------------------------------------------------

// responseHeader returns the raw HTTP response headers and Date when the
// SDK exposes them, otherwise headers rebuilt from the typed output.
func responseHeader(out *s3.GetObjectOutput) (urlconn.Header, time.Time) {
	if raw, ok := awsmiddleware.GetRawResponse(out.ResultMetadata).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		date, _ := http.ParseTime(raw.Header.Get("Date"))
		return urlconn.HeaderFromHTTP(raw.Header), date
	}
	return urlconn.HeaderFromHTTP(synthesizeHeader(out)), time.Time{}
}

func synthesizeHeader(out *s3.GetObjectOutput) http.Header {
	h := make(http.Header)
	set := func(name string, v *string) {
		if v != nil && *v != "" {
			h.Set(name, *v)
		}
	}
	set("Cache-Control", out.CacheControl)
	set("Content-Disposition", out.ContentDisposition)
	set("Content-Encoding", out.ContentEncoding)
	set("Content-Language", out.ContentLanguage)
	set("Content-Type", out.ContentType)
	set("ETag", out.ETag)
	set("X-Amz-Version-Id", out.VersionId)
	if out.ContentLength != nil {
		h.Set("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}
	if out.LastModified != nil {
		h.Set("Last-Modified", out.LastModified.UTC().Format(http.TimeFormat))
	}
	if t := expires(out); !t.IsZero() {
		h.Set("Expires", t.UTC().Format(http.TimeFormat))
	}

	keys := make([]string, 0, len(out.Metadata))
	for k := range out.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		h.Set("X-Amz-Meta-"+k, out.Metadata[k])
	}
	return h
}

func expires(out *s3.GetObjectOutput) time.Time {
	if s := aws.ToString(out.ExpiresString); s != "" {
		if t, err := http.ParseTime(s); err == nil {
			return t
		}
	}
	//nolint:staticcheck // deprecated field, still set by some endpoints
	return aws.ToTime(out.Expires)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Fetch results, used as metric labels and span status.
const (
	resultOK          = "ok"
	resultNotFound    = "not_found"
	resultNotModified = "not_modified"
	resultError       = "error"
)

func classifyFetchError(bucket, key string, err error) (string, error) {
	switch {
	case isNotFound(err):
		return resultNotFound, fmt.Errorf("s3: get object %s/%s: %w: %w", bucket, key, urlconn.ErrNotFound, err)
	case isNotModified(err):
		return resultNotModified, fmt.Errorf("s3: get object %s/%s: %w: %w", bucket, key, urlconn.ErrNotModified, err)
	default:
		return resultError, fmt.Errorf("s3: get object %s/%s: %w", bucket, key, err)
	}
}

// isNotFound checks if an error indicates the object was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NotFound" || code == "NoSuchKey" || code == "NoSuchBucket" || code == "404" {
			return true
		}
	}
	return httpStatus(err) == http.StatusNotFound
}

// isNotModified checks if an error is a 304 answer to a conditional fetch.
func isNotModified(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NotModified" || code == "304" {
			return true
		}
	}
	return httpStatus(err) == http.StatusNotModified
}

func httpStatus(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

// -----------------------------------------------------------------------------
// Body
// -----------------------------------------------------------------------------

// countingBody reports bytes read to metrics.
type countingBody struct {
	io.ReadCloser
	metrics *Metrics
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.metrics.addBytesRead(n)
	return n, err
}

var discardLogger = func() log15.Logger {
	l := log15.New("pkg", "s3url")
	l.SetHandler(log15.DiscardHandler())
	return l
}()
