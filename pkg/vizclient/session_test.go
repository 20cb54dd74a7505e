package vizclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizwave/api/pkg/vizclient"
)

// sessionServer accepts one upload and then serves the scripted statuses.
func sessionServer(t *testing.T, script []vizclient.Status) *httptest.Server {
	t.Helper()
	var statusHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			w.Write([]byte(`{"job_id":"sess1","status":"queued"}`))
		case strings.HasPrefix(r.URL.Path, "/job_status/"):
			n := int(atomic.AddInt32(&statusHits, 1)) - 1
			if n >= len(script) {
				n = len(script) - 1
			}
			json.NewEncoder(w).Encode(script[n])
		case strings.HasPrefix(r.URL.Path, "/cancel/"):
			w.Write([]byte(`{"job_id":"sess1","status":"canceled"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recorder struct {
	mu       sync.Mutex
	states   []vizclient.State
	progress []int
	errs     []error
	done     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 4)}
}

func (r *recorder) callbacks() vizclient.Callbacks {
	return vizclient.Callbacks{
		OnState: func(st vizclient.State) {
			r.mu.Lock()
			r.states = append(r.states, st)
			r.mu.Unlock()
			if st == vizclient.StateCompleted || st == vizclient.StateFailed {
				r.done <- struct{}{}
			}
		},
		OnProgress: func(p int, _ string) {
			r.mu.Lock()
			r.progress = append(r.progress, p)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) waitTerminal(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not reach a terminal state")
	}
}

func TestSession_HappyPath(t *testing.T) {
	srv := sessionServer(t, []vizclient.Status{
		{JobID: "sess1", Status: "processing", Progress: 40, Message: "Rendering frames"},
		{JobID: "sess1", Status: "processing", Progress: 85, Message: "Rendering frames"},
		{JobID: "sess1", Status: "completed", Progress: 100},
	})

	rec := newRecorder()
	client := vizclient.NewClient(srv.URL)
	session := vizclient.NewSession(client, nil, fastPoll(), rec.callbacks())

	require.NoError(t, session.Submit(context.Background(), minimalForm()))
	rec.waitTerminal(t)

	assert.Equal(t, vizclient.StateCompleted, session.State())
	assert.Equal(t, "sess1", session.JobID())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []vizclient.State{vizclient.StateProcessing, vizclient.StateCompleted}, rec.states)
	assert.Equal(t, []int{40, 85}, rec.progress, "terminal report should not fire OnProgress")
	assert.Empty(t, rec.errs)
}

func TestSession_FailureSticksUntilReset(t *testing.T) {
	srv := sessionServer(t, []vizclient.Status{
		{JobID: "sess1", Status: "failed", Error: "ffmpeg exited with code 1"},
	})

	rec := newRecorder()
	client := vizclient.NewClient(srv.URL)
	session := vizclient.NewSession(client, nil, fastPoll(), rec.callbacks())

	require.NoError(t, session.Submit(context.Background(), minimalForm()))
	rec.waitTerminal(t)

	assert.Equal(t, vizclient.StateFailed, session.State())
	rec.mu.Lock()
	require.Len(t, rec.errs, 1)
	rec.mu.Unlock()

	// A failed session refuses new submissions until acknowledged.
	err := session.Submit(context.Background(), minimalForm())
	require.ErrorIs(t, err, vizclient.ErrBusy)

	session.Reset()
	assert.Equal(t, vizclient.StateForm, session.State())
	assert.Empty(t, session.JobID())
}

func TestSession_ValidationFailureStaysOnForm(t *testing.T) {
	rec := newRecorder()
	client := vizclient.NewClient("http://127.0.0.1:0")
	session := vizclient.NewSession(client, vizclient.DefaultSpecs(), fastPoll(), rec.callbacks())

	form := vizclient.NewForm()
	form.AttachAudio("a.wav", strings.NewReader("x"))
	form.SetField("fps", "500")

	err := session.Submit(context.Background(), form)
	require.Error(t, err)

	var verr *vizclient.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fps", verr.Field)
	assert.Equal(t, vizclient.StateForm, session.State())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.states, "no state transition for a local validation failure")
	require.Len(t, rec.errs, 1)
}

func TestSession_CancelDuringProcessing(t *testing.T) {
	srv := sessionServer(t, []vizclient.Status{
		{JobID: "sess1", Status: "processing", Progress: 10},
	})

	rec := newRecorder()
	client := vizclient.NewClient(srv.URL)
	session := vizclient.NewSession(client, nil,
		vizclient.PollConfig{Interval: 10 * time.Millisecond, MaxWait: time.Minute}, rec.callbacks())

	require.NoError(t, session.Submit(context.Background(), minimalForm()))
	require.Eventually(t, func() bool { return session.JobID() != "" },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, session.Cancel(context.Background()))
	rec.waitTerminal(t)
	assert.Equal(t, vizclient.StateFailed, session.State())
}

func TestSession_ValidationRequiredBeforeUpload(t *testing.T) {
	// Missing visualizer on a required spec never reaches the network.
	rec := newRecorder()
	client := vizclient.NewClient("http://127.0.0.1:0")
	specs := []vizclient.FieldSpec{{Name: "visualizer", Required: true}}
	session := vizclient.NewSession(client, specs, fastPoll(), rec.callbacks())

	err := session.Submit(context.Background(), minimalForm())
	require.Error(t, err)
	assert.Equal(t, vizclient.StateForm, session.State())
}
