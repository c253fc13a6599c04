package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClientUploadSendsMultipartWithBearer(t *testing.T) {
	var gotName, gotBody, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"key":"reports/1-a.pdf","url":"https://storage.googleapis.com/b/reports/1-a.pdf"}`) //nolint:errcheck
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := &Client{addr: srv.URL, token: "tok", http: srv.Client()}
	result, err := c.upload("/v1/files/reports", path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotName != "a.pdf" || gotBody != "%PDF" {
		t.Errorf("server saw %q / %q", gotName, gotBody)
	}
	if result["key"] != "reports/1-a.pdf" {
		t.Errorf("unexpected result %v", result)
	}
}

func TestClientErrorsCarryCodeAndDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"status":500,"message":"failed to upload file","code":"STORAGE_ERROR","details":"quota exceeded"}`) //nolint:errcheck
	}))
	defer srv.Close()

	c := &Client{addr: srv.URL, http: srv.Client()}
	_, err := c.get("/v1/files/reports/a.pdf/url")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "failed to upload file (STORAGE_ERROR): quota exceeded"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	if err := c.delete("/v1/files/reports/a.pdf"); err == nil || !strings.Contains(err.Error(), "STORAGE_ERROR") {
		t.Errorf("delete: expected STORAGE_ERROR, got %v", err)
	}
}

func TestClientDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files/videos/1-intro.mp4" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"status":404,"message":"file not found","code":"NOT_FOUND"}`) //nolint:errcheck
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, "frames") //nolint:errcheck
	}))
	defer srv.Close()

	c := &Client{addr: srv.URL, http: srv.Client()}
	var buf bytes.Buffer
	n, err := c.download(filePath("videos", "1-intro.mp4"), &buf)
	if err != nil || n != 6 || buf.String() != "frames" {
		t.Fatalf("download: n=%d err=%v body=%q", n, err, buf.String())
	}

	_, err = c.download(filePath("videos", "missing.mp4"), &buf)
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("EXAMCTL_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	loadConfig()
	if cfg.Address != "http://127.0.0.1:8080" {
		t.Errorf("unexpected default address %q", cfg.Address)
	}
	cfg.Token = "abc"
	if err := saveConfig(); err != nil {
		t.Fatal(err)
	}
	cfg = CLIConfig{}
	loadConfig()
	if cfg.Token != "abc" {
		t.Errorf("token not persisted, got %q", cfg.Token)
	}
}
