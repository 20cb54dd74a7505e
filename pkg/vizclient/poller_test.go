package vizclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizwave/api/pkg/vizclient"
)

// scriptedStatusServer serves one status payload per request, then repeats
// the last one.
func scriptedStatusServer(t *testing.T, jobID string, script []vizclient.Status) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/job_status/"+jobID, r.URL.Path)
		n := int(atomic.AddInt32(&hits, 1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(script[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func fastPoll() vizclient.PollConfig {
	return vizclient.PollConfig{Interval: time.Millisecond, MaxWait: time.Second}
}

func TestPoll_StopsOnCompleted(t *testing.T) {
	script := []vizclient.Status{
		{JobID: "j1", Status: "queued", Progress: 0, Message: "Waiting for a worker"},
		{JobID: "j1", Status: "processing", Progress: 40, Message: "Rendering frames"},
		{JobID: "j1", Status: "processing", Progress: 85, Message: "Rendering frames"},
		{JobID: "j1", Status: "completed", Progress: 100, Message: "Done"},
	}
	srv, hits := scriptedStatusServer(t, "j1", script)

	var seen []int
	client := vizclient.NewClient(srv.URL)
	final, err := client.Poll(context.Background(), "j1", fastPoll(), func(st *vizclient.Status) {
		seen = append(seen, st.Progress)
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", final.Status)
	assert.Equal(t, []int{0, 40, 85, 100}, seen)
	assert.Equal(t, int32(4), atomic.LoadInt32(hits), "polling must stop at the terminal report")
}

func TestPoll_FailedStatusReturnsJobError(t *testing.T) {
	script := []vizclient.Status{
		{JobID: "j2", Status: "processing", Progress: 20},
		{JobID: "j2", Status: "failed", Error: "ffmpeg exited with code 1", ErrorType: "generic_error"},
	}
	srv, _ := scriptedStatusServer(t, "j2", script)

	client := vizclient.NewClient(srv.URL)
	st, err := client.Poll(context.Background(), "j2", fastPoll(), nil)
	require.Error(t, err)
	require.NotNil(t, st)

	var je *vizclient.JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, vizclient.KindGeneric, je.Kind)
	assert.Equal(t, "ffmpeg exited with code 1", je.Message)
	assert.False(t, vizclient.IsShader(err))
}

func TestPoll_ShaderErrorType(t *testing.T) {
	script := []vizclient.Status{
		{
			JobID:      "j3",
			Status:     "failed",
			Error:      "SHADER ERROR: nebula.glsl line 12: undeclared identifier",
			ErrorType:  "shader_error",
			ShaderName: "nebula.glsl",
			ShaderPath: "shaders/nebula.glsl",
			Redirect:   "/shader-error/nebula.glsl",
		},
	}
	srv, _ := scriptedStatusServer(t, "j3", script)

	client := vizclient.NewClient(srv.URL)
	_, err := client.Poll(context.Background(), "j3", fastPoll(), nil)
	require.Error(t, err)
	require.True(t, vizclient.IsShader(err))

	je := err.(*vizclient.JobError)
	assert.Equal(t, "nebula.glsl", je.ShaderName)
	assert.Equal(t, "/shader-error/nebula.glsl", je.Redirect)
}

func TestPoll_LegacyShaderErrorHeuristic(t *testing.T) {
	// Older servers send only a message; the shader name is recovered
	// from the text.
	script := []vizclient.Status{
		{JobID: "j4", Status: "failed", Error: "SHADER ERROR: foo.glsl line 12: syntax error"},
	}
	srv, _ := scriptedStatusServer(t, "j4", script)

	client := vizclient.NewClient(srv.URL)
	_, err := client.Poll(context.Background(), "j4", fastPoll(), nil)
	require.Error(t, err)
	require.True(t, vizclient.IsShader(err))

	je := err.(*vizclient.JobError)
	assert.Equal(t, "foo.glsl", je.ShaderName)
	assert.Equal(t, "/shader-error/foo.glsl", je.Redirect)
}

func TestPoll_RedirectWinsOverStatus(t *testing.T) {
	script := []vizclient.Status{
		{
			JobID:    "j5",
			Status:   "processing",
			Redirect: "/shader-error/tunnel.glsl",
			Error:    "shader compilation failed",
		},
	}
	srv, hits := scriptedStatusServer(t, "j5", script)

	client := vizclient.NewClient(srv.URL)
	_, err := client.Poll(context.Background(), "j5", fastPoll(), nil)
	require.Error(t, err)
	assert.True(t, vizclient.IsShader(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestPoll_ContextCancelStopsLoop(t *testing.T) {
	script := []vizclient.Status{{JobID: "j6", Status: "processing", Progress: 10}}
	srv, _ := scriptedStatusServer(t, "j6", script)

	ctx, cancel := context.WithCancel(context.Background())
	client := vizclient.NewClient(srv.URL)

	done := make(chan error, 1)
	go func() {
		_, err := client.Poll(ctx, "j6", vizclient.PollConfig{Interval: 10 * time.Millisecond, MaxWait: time.Minute}, nil)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after context cancellation")
	}
}

func TestPoll_MaxWaitExpires(t *testing.T) {
	script := []vizclient.Status{{JobID: "j7", Status: "queued"}}
	srv, _ := scriptedStatusServer(t, "j7", script)

	client := vizclient.NewClient(srv.URL)
	_, err := client.Poll(context.Background(), "j7", vizclient.PollConfig{Interval: time.Millisecond, MaxWait: 20 * time.Millisecond}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still queued")
}
