package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSend_NoWebhook(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSender("", "TestJournal", zap.New(core))
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	s.Send("hello from test")
	if logs.FilterMessage("notice").Len() != 1 {
		t.Fatalf("expected one logged notice, got %d", logs.Len())
	}
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestJournal", nil)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Notify("Error: Could not delete the trade. Your changes have been reverted.")

	if received["username"] != "TestJournal" {
		t.Fatalf("username: got %s", received["username"])
	}
	want := "`[TestJournal] Error: Could not delete the trade. Your changes have been reverted.`"
	if received["text"] != want {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL+"/discord/webhook", "Journal", nil)
	s.Send("trade saved")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "Journal" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_WebhookError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewSender("http://localhost:1/bogus", "TestJournal", zap.New(core))
	s.retry.BaseDelay = 0
	s.Send("this will fail gracefully")
	if logs.FilterMessage("webhook delivery failed").Len() != 1 {
		t.Fatal("expected delivery failure to be logged")
	}
}

func TestDefaultName(t *testing.T) {
	s := NewSender("", "", nil)
	if s.name != DefaultName {
		t.Fatalf("expected default name, got %s", s.name)
	}
}
