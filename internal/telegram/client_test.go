package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_SendPhotoMultipart(t *testing.T) {
	var gotPath string
	var gotChatID string
	var gotPhoto []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		file, _, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			buf := make([]byte, 64)
			n, _ := file.Read(buf)
			gotPhoto = buf[:n]
			file.Close()
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	if err := client.SendPhoto(context.Background(), 42, []byte("jpeg-bytes"), "подпись"); err != nil {
		t.Fatalf("send photo: %v", err)
	}

	if gotPath != "/botsecret-token/sendPhoto" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotChatID != "42" {
		t.Errorf("expected chat_id 42, got %q", gotChatID)
	}
	if string(gotPhoto) != "jpeg-bytes" {
		t.Errorf("expected photo bytes, got %q", gotPhoto)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	err := client.SendMessage(context.Background(), 42, "привет")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api description in error, got %v", err)
	}
}
