package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/pithecene-io/s3url/urlconn"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(urlconn.HandlerPathEnv, "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCat_File(t *testing.T) {
	a := writeFile(t, "a.txt", []byte("alpha\n"))
	b := writeFile(t, "b.txt", []byte("beta\n"))

	out, _, err := execute(t, "file://"+a, "file://"+b)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "alpha\nbeta\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCat_RegistersS3(t *testing.T) {
	p := writeFile(t, "a.txt", []byte("x"))
	if _, _, err := execute(t, "file://"+p); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if got := os.Getenv(urlconn.HandlerPathEnv); !strings.Contains(got, "urlconn/s3") {
		t.Errorf("%s = %q, want the s3 namespace", urlconn.HandlerPathEnv, got)
	}
}

func TestCat_Head(t *testing.T) {
	p := writeFile(t, "a.txt", []byte("hello world\n"))

	out, _, err := execute(t, "--head", "file://"+p)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	var m metadata
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if m.URL != "file://"+p {
		t.Errorf("url = %q", m.URL)
	}
	if m.ContentLength != 12 {
		t.Errorf("content_length = %d, want 12", m.ContentLength)
	}
	if !strings.HasPrefix(m.ContentType, "text/plain") {
		t.Errorf("content_type = %q", m.ContentType)
	}
	if m.LastModified == nil {
		t.Error("last_modified missing")
	}
	if m.Expiration != nil {
		t.Errorf("expiration = %v, want omitted", m.Expiration)
	}
	if got := m.Headers["Content-Length"]; len(got) != 1 || got[0] != "12" {
		t.Errorf("headers[Content-Length] = %v", got)
	}
}

func TestCat_Decode(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write([]byte("compressed"))
	_ = w.Close()
	p := writeFile(t, "a.gz", buf.Bytes())

	// file URLs carry no Content-Encoding, so --decode passes bytes through.
	out, _, err := execute(t, "--decode", "file://"+p)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != buf.String() {
		t.Errorf("stdout differs from file contents")
	}
}

func TestCat_NotModifiedIsQuiet(t *testing.T) {
	p := writeFile(t, "a.txt", []byte("old"))
	mtime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	out, _, err := execute(t, "--if-modified-since", "2026-06-01T00:00:00Z", "file://"+p)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
}

func TestCat_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", []string{}, ""},
		{"bad time", []string{"--if-modified-since", "yesterday", "file:///x"}, "invalid --if-modified-since"},
		{"unknown protocol", []string{"gopher://host/x"}, "unknown protocol"},
		{"missing file", []string{"file:///definitely/not/here"}, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != "" && !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to mention %q", stderr, tt.want)
			}
		})
	}
}
