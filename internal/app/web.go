// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
	"github.com/relabs-tech/feedme/internal/gesture"
)

// controller is the part of *Monitor the HTTP API drives.
type controller interface {
	Start() error
	Stop()
	Toggle() (bool, error)
	Status() Status
	Subscribe(func(Status)) (cancel func())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type webServer struct {
	ctl       controller
	staticDir string
}

func newRouter(ctl controller, staticDir string) *mux.Router {
	s := &webServer{ctl: ctl, staticDir: staticDir}

	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", s.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/api/toggle", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS)

	// The static tree never answers for the API, so a wrong method there
	// stays a 405.
	if staticDir != "" {
		r.PathPrefix("/").MatcherFunc(notAPI).Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/ws"
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (s *webServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *webServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Start(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *webServer) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *webServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ctl.Toggle(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, gesture.ErrNoRotationSensor) {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// handleWS streams the status as JSON: once on connect, then on every
// change, until the client goes away.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan Status, 8)
	cancel := s.ctl.Subscribe(func(st Status) {
		select {
		case updates <- st:
		default:
		}
	})
	defer cancel()

	// The read loop only notices the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.ctl.Status()); err != nil {
		return
	}
	for {
		select {
		case st := <-updates:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(st); err != nil {
				log.Debugf("websocket write error: %v", err)
				return
			}
		case <-gone:
			return
		}
	}
}

// RunWeb serves the HTTP API and the page in WEB_STATIC_DIR, with the
// detector running in-process. Status is mirrored to MQTT when a broker is
// set.
func RunWeb() error {
	cfg := config.Get()

	det, mgr, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	var extra []gesture.Listener
	var pub *publisher
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		pub = newPublisher(client, cfg, det)
		extra = append(extra, pub.transitions)
	}

	mon := NewMonitor(det, extra...)
	if pub != nil {
		pub.attach(mon)
		defer pub.close()
	}
	defer mon.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newRouter(mon, cfg.WebStaticDir),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCh:
	}

	log.Println("web: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
