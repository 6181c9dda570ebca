// Package httpapi is the admin surface of a running peer: inspect it, inject
// a word by hand, and watch deliveries live.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/senutpal/lamportchat/internal/lamport"
	"github.com/senutpal/lamportchat/internal/node"
)

const maxPayload = 64 << 10

// Peer is the part of *node.Node the API drives.
type Peer interface {
	Status() node.Status
	Pending() []lamport.Message
	Submit(ctx context.Context, payload string) (lamport.Message, error)
}

type submitResponse struct {
	Timestamp int64  `json:"timestamp"`
	Sender    int64  `json:"sender"`
	Payload   string `json:"payload"`
	Error     string `json:"error,omitempty"`
}

// NewRouter wires the routes. feed may be nil, in which case /deliveries is
// not served.
func NewRouter(p Peer, feed http.HandlerFunc, logger *log.Logger) *mux.Router {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	h := &handlers{peer: p, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/pending", h.pending).Methods(http.MethodGet)
	r.HandleFunc("/submit", h.submit).Methods(http.MethodPost)
	if feed != nil {
		r.HandleFunc("/deliveries", feed).Methods(http.MethodGet)
	}
	return r
}

type handlers struct {
	peer   Peer
	logger *log.Logger
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.peer.Status())
}

type pendingEntry struct {
	Timestamp int64  `json:"timestamp"`
	Sender    int64  `json:"sender"`
	Ack       bool   `json:"ack"`
	Payload   string `json:"payload,omitempty"`
}

func (h *handlers) pending(w http.ResponseWriter, r *http.Request) {
	msgs := h.peer.Pending()
	out := make([]pendingEntry, len(msgs))
	for i, m := range msgs {
		out[i] = pendingEntry{Timestamp: m.Timestamp, Sender: m.Sender, Ack: m.IsAck, Payload: m.Payload}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > maxPayload {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	payload := strings.TrimSpace(string(body))
	if payload == "" {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}

	msg, err := h.peer.Submit(r.Context(), payload)
	resp := submitResponse{Timestamp: msg.Timestamp, Sender: msg.Sender, Payload: msg.Payload}
	if err != nil {
		h.logger.Printf("[http] submit %q: %v", payload, err)
		resp.Error = err.Error()
		var berr *node.BroadcastError
		if errors.As(err, &berr) {
			writeJSON(w, http.StatusBadGateway, resp)
			return
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
