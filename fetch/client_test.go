package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franksops/gopull/fetch"
)

func TestFetch_SendsIdentificationHeaders(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := fetch.NewClient(fetch.Options{
		UserAgent: "gopull-test/1.0",
		Referer:   "https://example.com/catalog",
	})
	body, _, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	body.Close()

	if gotUA != "gopull-test/1.0" {
		t.Errorf("Expected User-Agent gopull-test/1.0, got %q", gotUA)
	}
	if gotReferer != "https://example.com/catalog" {
		t.Errorf("Expected Referer to be sent, got %q", gotReferer)
	}
}

func TestFetch_OmitsEmptyReferer(t *testing.T) {
	var hadReferer bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadReferer = r.Header["Referer"]
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := fetch.NewClient(fetch.DefaultOptions())
	body, _, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	body.Close()

	if hadReferer {
		t.Error("Referer header must not be sent when unconfigured")
	}
}

func TestFetch_BodyAndSize(t *testing.T) {
	const content = "some payload bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, content)
	}))
	defer srv.Close()

	c := fetch.NewClient(fetch.DefaultOptions())
	body, size, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("Expected %q, got %q", content, got)
	}
	if size != int64(len(content)) {
		t.Errorf("Expected size %d, got %d", len(content), size)
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := fetch.NewClient(fetch.DefaultOptions())
	_, _, err := c.Fetch(context.Background(), srv.URL)

	var fe *fetch.Error
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *fetch.Error, got %T: %v", err, err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fe.Status)
	}
}

func TestFetch_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := fetch.NewClient(fetch.DefaultOptions())
	_, _, err := c.Fetch(context.Background(), srv.URL)

	var fe *fetch.Error
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *fetch.Error, got %T: %v", err, err)
	}
	if fe.Err == nil {
		t.Error("Expected the underlying connection error to be preserved")
	}
}

func TestFetch_HonorsContextDeadline(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := fetch.NewClient(fetch.DefaultOptions())
	start := time.Now()
	_, _, err := c.Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("Expected a deadline error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch ignored the context deadline, blocked for %v", elapsed)
	}
}
