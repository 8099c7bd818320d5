package minio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredentials(t, `{"access_key":"AKIA","secret_key":"s3cr3t"}`)

	creds, err := loadCredentials(path)
	if err != nil {
		t.Fatalf("loadCredentials() error = %v", err)
	}
	if creds.AccessKey != "AKIA" || creds.SecretKey != "s3cr3t" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestLoadCredentialsMissingKeys(t *testing.T) {
	path := writeCredentials(t, `{"access_key":"AKIA"}`)
	if _, err := loadCredentials(path); err == nil {
		t.Fatalf("expected error for missing secret_key")
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	if _, err := loadCredentials(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadCredentialsEmptyPath(t *testing.T) {
	if _, err := loadCredentials("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestObjectKeyJoinsProjectPrefix(t *testing.T) {
	store := &Store{bucket: "indexes", prefix: "onboarding-prod"}
	if got := store.objectKey("index.json"); got != "onboarding-prod/index.json" {
		t.Fatalf("expected prefixed key, got %q", got)
	}
}

func TestObjectKeyWithoutPrefix(t *testing.T) {
	store := &Store{bucket: "indexes"}
	if got := store.objectKey("model_info.json"); got != "model_info.json" {
		t.Fatalf("expected bare key, got %q", got)
	}
}
