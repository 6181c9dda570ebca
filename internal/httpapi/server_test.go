package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/senutpal/lamportchat/internal/config"
	"github.com/senutpal/lamportchat/internal/lamport"
	"github.com/senutpal/lamportchat/internal/node"
)

type fakePeer struct {
	submitted []string
	err       error
}

func (f *fakePeer) Status() node.Status {
	return node.Status{ID: 4001, Name: "m1", Clock: 7, Quorum: 3}
}

func (f *fakePeer) Pending() []lamport.Message {
	return []lamport.Message{lamport.NewContent(3, 4002, "apple"), lamport.NewAck(4, 4001)}
}

func (f *fakePeer) Submit(_ context.Context, payload string) (lamport.Message, error) {
	f.submitted = append(f.submitted, payload)
	return lamport.NewContent(8, 4001, payload), f.err
}

func TestStatus(t *testing.T) {
	r := NewRouter(&fakePeer{}, nil, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var st node.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.ID != 4001 || st.Clock != 7 || st.Quorum != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestPending(t *testing.T) {
	r := NewRouter(&fakePeer{}, nil, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending", nil))

	var got []pendingEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := []pendingEntry{
		{Timestamp: 3, Sender: 4002, Payload: "apple"},
		{Timestamp: 4, Sender: 4001, Ack: true},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("pending = %+v, want %+v", got, want)
	}
}

func TestSubmit(t *testing.T) {
	partial := &node.BroadcastError{
		Msg:    lamport.NewContent(8, 4001, "apple"),
		Failed: []node.SendError{{Peer: config.Peer{ID: 4003, Name: "m3"}, Err: errors.New("refused")}},
	}
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"accepted", "apple\n", nil, http.StatusAccepted},
		{"partial broadcast", "apple", partial, http.StatusBadGateway},
		{"other failure", "apple", context.Canceled, http.StatusInternalServerError},
		{"empty", "  ", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePeer{err: tt.err}
			r := NewRouter(p, nil, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(tt.body)))

			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body)
			}
			if tt.code == http.StatusBadRequest {
				if len(p.submitted) != 0 {
					t.Fatalf("submitted %q", p.submitted)
				}
				return
			}
			if len(p.submitted) != 1 || p.submitted[0] != "apple" {
				t.Fatalf("submitted %q", p.submitted)
			}
			var resp submitResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Timestamp != 8 || resp.Sender != 4001 || (tt.err != nil) != (resp.Error != "") {
				t.Fatalf("response = %+v", resp)
			}
		})
	}
}

func TestRoutesCheckMethod(t *testing.T) {
	r := NewRouter(&fakePeer{}, nil, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /submit = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deliveries", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("/deliveries without a feed = %d", rec.Code)
	}
}
