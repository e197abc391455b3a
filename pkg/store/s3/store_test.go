package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChrisMcGann/sqvolcano/pkg/store/core"
)

// fakeS3 serves the handful of path-style S3 calls the store makes.
type fakeS3 struct {
	mu   sync.Mutex
	objs map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objs {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objs[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objs[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objs[key]
		if !ok {
			return response(http.StatusNotFound, nil, http.Header{}), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"ETag":           {`"etag"`},
			"Last-Modified":  {time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return response(http.StatusOK, nil, h), nil
		}
		return response(http.StatusOK, obj.body, h), nil
	case http.MethodDelete:
		delete(f.objs, key)
		return response(http.StatusNoContent, nil, http.Header{}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func response(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

// decodeChunked unwraps a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.SplitN(string(b), "\r\n", 3)
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != n || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Bucket:          "results",
		Region:          "eu-central-1",
		Endpoint:        "https://minio.test",
		PathStyle:       true,
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		HTTPClient:      &fakeS3{objs: make(map[string]fakeObject)},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestPutGetListDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	info, err := s.Put(ctx, "P1/DMSO_vs_A_2pep.tsv", strings.NewReader("a\tb\n"), core.PutOptions{ContentType: "text/tab-separated-values"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Size != 4 || info.ContentType != "text/tab-separated-values" || info.ETag != "etag" {
		t.Errorf("unexpected info: %+v", info)
	}

	// overwrite
	if _, err := s.Put(ctx, "P1/DMSO_vs_A_2pep.tsv", strings.NewReader("x\n"), core.PutOptions{}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	_, rc, err := s.Get(ctx, "P1/DMSO_vs_A_2pep.tsv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "x\n" {
		t.Errorf("Get() body = %q, want %q", body, "x\n")
	}

	if _, err := s.Put(ctx, "P1/plot.html", strings.NewReader("<html>"), core.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	list, err := s.List(ctx, "P1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Key != "P1/DMSO_vs_A_2pep.tsv" {
		t.Errorf("unexpected list: %+v", list)
	}

	ok, err := s.Delete(ctx, "P1/plot.html")
	if err != nil || !ok {
		t.Errorf("Delete() = %v, %v", ok, err)
	}
	ok, err = s.Delete(ctx, "P1/plot.html")
	if err != nil || ok {
		t.Errorf("second Delete() = %v, %v", ok, err)
	}
}

func TestHeadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Head(context.Background(), "missing.tsv")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPresignURL(t *testing.T) {
	s := newTestStore(t)
	u, err := s.PresignURL(context.Background(), "P1/plot.html", core.SignedURLOptions{Expiry: time.Minute})
	if err != nil {
		t.Fatalf("PresignURL() error = %v", err)
	}
	if !strings.HasPrefix(u, "https://minio.test/results/P1/plot.html?") || !strings.Contains(u, "X-Amz-Expires=60") {
		t.Errorf("unexpected URL %s", u)
	}
}
