package gcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestClientOptionsAnonymous(t *testing.T) {
	opts, err := ClientOptions(context.Background(), Config{Endpoint: "http://127.0.0.1:1/", Anonymous: true})
	if err != nil {
		t.Fatalf("ClientOptions: %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("expected endpoint, no-auth and http client options, got %d", len(opts))
	}
}

func TestTokenSourceMissingFile(t *testing.T) {
	_, err := TokenSource(context.Background(), filepath.Join(t.TempDir(), "creds.json"), CloudPlatformScope)
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}

func TestTokenSourceBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := TokenSource(context.Background(), path, CloudPlatformScope); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}
