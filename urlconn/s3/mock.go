package s3

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// -----------------------------------------------------------------------------
// Mock S3 Client for Testing
// -----------------------------------------------------------------------------

// MockObject is an object served by MockS3Client.
type MockObject struct {
	Body            []byte
	ContentType     string
	ContentEncoding string
	ETag            string
	LastModified    time.Time
	Expires         time.Time
	Metadata        map[string]string

	// ContentLength overrides len(Body) when non-nil.
	ContentLength *int64
}

// MockS3Client is a test double for API.
type MockS3Client struct {
	mu      sync.Mutex
	objects map[string]MockObject
	errs    map[string]error

	getObjectCalls int
	lastInput      *s3.GetObjectInput
	bodies         []*MockBody
}

// NewMockS3Client creates a new mock S3 client for testing.
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{
		objects: make(map[string]MockObject),
		errs:    make(map[string]error),
	}
}

func mockKey(bucket, key string) string {
	return bucket + "/" + key
}

// SetObject stores obj under bucket/key.
func (m *MockS3Client) SetObject(bucket, key string, obj MockObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[mockKey(bucket, key)] = obj
}

// SetError makes GetObject for bucket/key fail with err.
func (m *MockS3Client) SetError(bucket, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[mockKey(bucket, key)] = err
}

// GetObjectCalls returns the number of GetObject calls.
func (m *MockS3Client) GetObjectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getObjectCalls
}

// LastInput returns the most recent GetObject input, or nil.
func (m *MockS3Client) LastInput() *s3.GetObjectInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}

// Bodies returns every body handed out, in order.
func (m *MockS3Client) Bodies() []*MockBody {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockBody(nil), m.bodies...)
}

// GetObject implements API.GetObject for testing.
//
// Missing objects fail with *types.NoSuchKey. An IfModifiedSince at or after
// the object's LastModified fails with a "NotModified" API error.
func (m *MockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	k := mockKey(aws.ToString(params.Bucket), aws.ToString(params.Key))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.getObjectCalls++
	m.lastInput = params

	if err, ok := m.errs[k]; ok {
		return nil, err
	}
	obj, ok := m.objects[k]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	if params.IfModifiedSince != nil && !obj.LastModified.After(*params.IfModifiedSince) {
		return nil, &smithyAPIError{code: "NotModified", message: "Not Modified"}
	}

	length := int64(len(obj.Body))
	if obj.ContentLength != nil {
		length = *obj.ContentLength
	}

	body := &MockBody{Reader: bytes.NewReader(obj.Body)}
	m.bodies = append(m.bodies, body)

	out := &s3.GetObjectOutput{
		Body:          body,
		ContentLength: aws.Int64(length),
		Metadata:      obj.Metadata,
	}
	if obj.ContentType != "" {
		out.ContentType = aws.String(obj.ContentType)
	}
	if obj.ContentEncoding != "" {
		out.ContentEncoding = aws.String(obj.ContentEncoding)
	}
	if obj.ETag != "" {
		out.ETag = aws.String(obj.ETag)
	}
	if !obj.LastModified.IsZero() {
		out.LastModified = aws.Time(obj.LastModified)
	}
	if !obj.Expires.IsZero() {
		out.ExpiresString = aws.String(obj.Expires.UTC().Format(http.TimeFormat))
	}
	return out, nil
}

var _ API = (*MockS3Client)(nil)

// MockBody is a response body that records Close.
type MockBody struct {
	*bytes.Reader

	mu     sync.Mutex
	closed bool
}

// Close implements io.Closer.
func (b *MockBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (b *MockBody) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// smithyAPIError implements smithy.APIError for testing.
type smithyAPIError struct {
	code    string
	message string
}

func (e *smithyAPIError) Error() string {
	return e.message
}

func (e *smithyAPIError) ErrorCode() string {
	return e.code
}

func (e *smithyAPIError) ErrorMessage() string {
	return e.message
}

func (e *smithyAPIError) ErrorFault() smithy.ErrorFault {
	return smithy.FaultUnknown
}

// NewAPIError returns a smithy.APIError with the given code, for tests that
// script backend failures.
func NewAPIError(code, message string) error {
	return &smithyAPIError{code: code, message: message}
}
