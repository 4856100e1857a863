package files_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/photokiosk/internal/storage/files"
)

func TestLocalStore_PutGet(t *testing.T) {
	store, err := files.NewLocalStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	payload := []byte("jpeg-bytes")
	if err := store.Put("sessions/sess_abc/original.jpg", payload); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	data, err := store.Get("sessions/sess_abc/original.jpg")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("stored data mismatch")
	}
}

func TestLocalStore_URL(t *testing.T) {
	store, err := files.NewLocalStore(t.TempDir(), "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	url := store.URL("sessions/sess_abc/result.jpg")
	if url != "http://localhost:8080/media/sessions/sess_abc/result.jpg" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestLocalStore_PathTraversalContained(t *testing.T) {
	root := t.TempDir()
	store, err := files.NewLocalStore(root, "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("new store failed: %v", err)
	}

	abs := store.AbsolutePath("../../etc/passwd")
	if !strings.HasPrefix(abs, root) {
		t.Fatalf("path escaped media root: %s", abs)
	}
}
