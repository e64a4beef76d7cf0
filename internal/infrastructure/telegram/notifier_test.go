package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier("token123", "-10042", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err := n.PublishDigest(context.Background(), "News run finished"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotChat != "-10042" {
		t.Fatalf("unexpected chat %s", gotChat)
	}
	if gotText != "News run finished" {
		t.Fatalf("unexpected text %q", gotText)
	}
}

func TestPublishDigest_TruncatesLongMessages(t *testing.T) {
	t.Parallel()

	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotText = r.PostForm.Get("text")
	}))
	defer server.Close()

	n := NewNotifier("t", "c", WithBaseURL(server.URL))
	if err := n.PublishDigest(context.Background(), strings.Repeat("я", 5000)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := utf8.RuneCountInString(gotText); got != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, got)
	}
}

func TestPublishDigest_Errors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad chat", http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewNotifier("t", "c", WithBaseURL(server.URL))
	if err := n.PublishDigest(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
