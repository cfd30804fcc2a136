package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	resp, err := NewClient(5*time.Second).Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestClientPostJSON(t *testing.T) {
	var gotContentType, gotAPIKey string
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAPIKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	resp, err := NewClient(5*time.Second).PostJSON(context.Background(), ts.URL,
		map[string]string{"api-key": "secret"},
		map[string]string{"channel": "#sonuby-backend-errors"})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", gotContentType)
	}
	if gotAPIKey != "secret" {
		t.Errorf("api-key = %s, want secret", gotAPIKey)
	}
	if gotBody["channel"] != "#sonuby-backend-errors" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDecodeResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer ts.Close()

	resp, err := NewClient(5*time.Second).Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var target struct {
		Status string `json:"status"`
	}
	if err := DecodeResponse(resp, &target); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if target.Status != "healthy" {
		t.Errorf("status = %s, want healthy", target.Status)
	}
}

func TestDecodeResponse_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_token"))
	}))
	defer ts.Close()

	resp, err := NewClient(5*time.Second).Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	err = DecodeResponse(resp, nil)
	if err == nil {
		t.Fatal("DecodeResponse() accepted a 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "invalid_token") {
		t.Errorf("error = %v, want status and body in message", err)
	}
}

func TestDecodeResponse_DiscardsBodyWithNilTarget(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	resp, err := NewClient(5*time.Second).Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := DecodeResponse(resp, nil); err != nil {
		t.Errorf("DecodeResponse() error = %v", err)
	}
}
