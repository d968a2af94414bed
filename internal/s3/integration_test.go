//go:build integration

package s3_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"

	s3client "github.com/pithecene-io/s3url/internal/s3"
	"github.com/pithecene-io/s3url/urlconn"
	s3conn "github.com/pithecene-io/s3url/urlconn/s3"
)

// Integration tests for S3-compatible backends.
// These require LocalStack on :4566 and MinIO on :9000.
//
// To run:
//   S3URL_S3_TESTS=1 go test -v -tags=integration ./internal/s3/...

func skipIfNoS3(t *testing.T) {
	if os.Getenv("S3URL_S3_TESTS") != "1" {
		t.Skip("S3URL_S3_TESTS=1 not set; skipping integration tests")
	}
}

// -----------------------------------------------------------------------------
// Backends
// -----------------------------------------------------------------------------

func TestLocalStack_Integration(t *testing.T) {
	skipIfNoS3(t)

	client, err := s3client.NewLocalStackClient(context.Background())
	if err != nil {
		t.Fatalf("failed to create LocalStack client: %v", err)
	}
	runConnIntegrationTests(t, client, withBucket(t, client))
}

func TestMinIO_Integration(t *testing.T) {
	skipIfNoS3(t)

	client, err := s3client.NewMinIOClient(context.Background())
	if err != nil {
		t.Fatalf("failed to create MinIO client: %v", err)
	}
	runConnIntegrationTests(t, client, withBucket(t, client))
}

// withBucket creates a fresh bucket and removes it, with its objects, when
// the test ends.
func withBucket(t *testing.T, client *s3.Client) string {
	t.Helper()
	ctx := context.Background()
	bucket := fmt.Sprintf("s3url-test-%d", time.Now().UnixNano())

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	t.Cleanup(func() {
		out, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		if out != nil {
			for _, obj := range out.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucket),
					Key:    obj.Key,
				})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})
	return bucket
}

// -----------------------------------------------------------------------------
// Common Integration Test Suite
// -----------------------------------------------------------------------------

func runConnIntegrationTests(t *testing.T, client *s3.Client, bucket string) {
	ctx := context.Background()
	handler := &s3conn.Handler{Client: client}

	put := func(t *testing.T, in *s3.PutObjectInput) {
		t.Helper()
		in.Bucket = aws.String(bucket)
		if _, err := client.PutObject(ctx, in); err != nil {
			t.Fatalf("PutObject failed: %v", err)
		}
	}
	open := func(t *testing.T, key string) urlconn.Connection {
		t.Helper()
		u, err := url.Parse("s3://" + bucket + "/" + key)
		if err != nil {
			t.Fatalf("url.Parse failed: %v", err)
		}
		conn, err := handler.OpenConnection(ctx, u)
		if err != nil {
			t.Fatalf("OpenConnection failed: %v", err)
		}
		return conn
	}

	t.Run("read_with_metadata", func(t *testing.T) {
		put(t, &s3.PutObjectInput{
			Key:         aws.String("test/file.txt"),
			Body:        bytes.NewReader([]byte("hello world")),
			ContentType: aws.String("text/plain"),
			Metadata:    map[string]string{"owner": "tests"},
		})

		conn := open(t, "test/file.txt")
		body, err := conn.Body(ctx)
		if err != nil {
			t.Fatalf("Body failed: %v", err)
		}
		data, err := io.ReadAll(body)
		_ = body.Close()
		if err != nil {
			t.Fatalf("reading body failed: %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("expected %q, got %q", "hello world", string(data))
		}

		if got := conn.ContentType(); got != "text/plain" {
			t.Errorf("ContentType = %q", got)
		}
		if got := conn.ContentLength(); got != 11 {
			t.Errorf("ContentLength = %d, want 11", got)
		}
		if conn.LastModified().IsZero() {
			t.Error("LastModified should be set")
		}
		if conn.Date().IsZero() {
			t.Error("Date should be set")
		}
		if got := conn.HeaderField("X-Amz-Meta-Owner"); got != "tests" {
			t.Errorf("HeaderField(X-Amz-Meta-Owner) = %q", got)
		}
	})

	t.Run("decoded_gzip", func(t *testing.T) {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		_, _ = w.Write([]byte(`{"id":1}`))
		_ = w.Close()

		put(t, &s3.PutObjectInput{
			Key:             aws.String("test/data.json.gz"),
			Body:            bytes.NewReader(buf.Bytes()),
			ContentType:     aws.String("application/json"),
			ContentEncoding: aws.String("gzip"),
		})

		rc, err := urlconn.DecodedBody(ctx, open(t, "test/data.json.gz"))
		if err != nil {
			t.Fatalf("DecodedBody failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		data, _ := io.ReadAll(rc)
		if string(data) != `{"id":1}` {
			t.Errorf("decoded = %q", data)
		}
	})

	t.Run("not_modified", func(t *testing.T) {
		put(t, &s3.PutObjectInput{
			Key:  aws.String("test/cond.txt"),
			Body: bytes.NewReader([]byte("conditional")),
		})

		conn := open(t, "test/cond.txt")
		if err := conn.SetIfModifiedSince(time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("SetIfModifiedSince failed: %v", err)
		}
		if err := conn.Connect(ctx); !errors.Is(err, urlconn.ErrNotModified) {
			t.Errorf("expected ErrNotModified, got: %v", err)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		conn := open(t, "nonexistent/path.txt")
		if got := conn.ContentLength(); got != -1 {
			t.Errorf("ContentLength = %d, want -1", got)
		}
		if err := conn.Connect(ctx); !errors.Is(err, urlconn.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("missing_bucket", func(t *testing.T) {
		u, _ := url.Parse(fmt.Sprintf("s3://%s-missing/key", bucket))
		conn, err := handler.OpenConnection(ctx, u)
		if err != nil {
			t.Fatalf("OpenConnection failed: %v", err)
		}
		if err := conn.Connect(ctx); !errors.Is(err, urlconn.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}
