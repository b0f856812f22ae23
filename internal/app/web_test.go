// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/feedme/internal/gesture"
)

func doJSON(t *testing.T, h http.Handler, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, body
}

func TestWebAPI(t *testing.T) {
	det := &fakeDetector{}
	mon := NewMonitor(det)
	r := newRouter(mon, "")

	tests := []struct {
		name       string
		method     string
		path       string
		wantCode   int
		wantActive bool
	}{
		{"status while stopped", http.MethodGet, "/api/status", http.StatusOK, false},
		{"start", http.MethodPost, "/api/start", http.StatusOK, true},
		{"status while running", http.MethodGet, "/api/status", http.StatusOK, true},
		{"toggle stops", http.MethodPost, "/api/toggle", http.StatusOK, false},
		{"toggle starts", http.MethodPost, "/api/toggle", http.StatusOK, true},
		{"stop", http.MethodPost, "/api/stop", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, r, tt.method, tt.path)
			if code != tt.wantCode {
				t.Fatalf("code = %d, want %d", code, tt.wantCode)
			}
			if body["active"] != tt.wantActive {
				t.Errorf("active = %v, want %v", body["active"], tt.wantActive)
			}
		})
	}
}

func TestWebAPI_MethodNotAllowed(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>Last fed:</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		staticDir string
		method    string
		path      string
		wantCode  int
	}{
		{"get start", "", http.MethodGet, "/api/start", http.StatusMethodNotAllowed},
		{"post status", "", http.MethodPost, "/api/status", http.StatusMethodNotAllowed},
		{"get start with static", static, http.MethodGet, "/api/start", http.StatusMethodNotAllowed},
		{"get toggle with static", static, http.MethodGet, "/api/toggle", http.StatusMethodNotAllowed},
		{"unknown api path with static", static, http.MethodGet, "/api/feed", http.StatusNotFound},
		{"static still served", static, http.MethodGet, "/", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{}
			r := newRouter(NewMonitor(det), tt.staticDir)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantCode)
			}
			if det.starts != 0 || det.stops != 0 {
				t.Errorf("rejected request reached the detector: starts=%d stops=%d", det.starts, det.stops)
			}
		})
	}
}

func TestWebAPI_NoSensor(t *testing.T) {
	r := newRouter(NewMonitor(&fakeDetector{startErr: gesture.ErrNoRotationSensor}), "")

	code, body := doJSON(t, r, http.MethodPost, "/api/start")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "no rotation vector sensor") {
		t.Errorf("error = %q", msg)
	}
}

func TestWebStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Last fed:</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := newRouter(NewMonitor(&fakeDetector{}), dir)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "Last fed:") {
		t.Errorf("GET / = %d %q", rec.Code, body)
	}
}

func TestWebSocketStatusStream(t *testing.T) {
	det := &fakeDetector{}
	mon := NewMonitor(det)
	if err := mon.Start(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(newRouter(mon, ""))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Status
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if !first.Active || first.Open {
		t.Errorf("initial status = %+v", first)
	}

	det.fire(true, 86)

	var next Status
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if !next.Open || next.Feeds != 1 || next.LastFed == nil {
		t.Errorf("update = %+v", next)
	}
}
