package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/senutpal/lamportchat/internal/lamport"
)

func TestWriterSinkOneLinePerDelivery(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)
	s.Deliver(NewEntry(1, 4001, lamport.NewContent(5, 4001, "apple")))
	s.Deliver(NewEntry(2, 4001, lamport.NewContent(9, 4002, "banana")))

	if got := buf.String(); got != "apple\nbanana\n" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestMultiFansOut(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, &b}
	m.Deliver(NewEntry(1, 1, lamport.NewContent(1, 1, "x")))

	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("recorders = %d, %d", a.Len(), b.Len())
	}
	if got := a.Payloads(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("payloads = %v", got)
	}
}

func TestHubStreamsEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := NewEntry(3, 4001, lamport.NewContent(5, 4002, "apple"))
	hub.Deliver(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
