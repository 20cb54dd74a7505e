package vizclient

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle phase of a submission session.
type State string

const (
	StateForm       State = "form"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrBusy is returned by Submit while a previous submission is still
// running or its outcome has not been acknowledged with Reset.
var ErrBusy = errors.New("a submission is already in progress")

// Callbacks receive session events. All callbacks are optional and are
// invoked from the session's worker goroutine.
type Callbacks struct {
	OnState     func(State)
	OnProgress  func(progress int, message string)
	OnCompleted func(jobID string)
	OnError     func(error)
}

// Session drives one submission at a time through upload, polling and a
// terminal outcome. A failed or completed session holds its state until
// Reset; it never slips back to the form on its own.
type Session struct {
	client    *Client
	specs     []FieldSpec
	poll      PollConfig
	callbacks Callbacks

	mu     sync.Mutex
	state  State
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(client *Client, specs []FieldSpec, poll PollConfig, callbacks Callbacks) *Session {
	return &Session{
		client:    client,
		specs:     specs,
		poll:      poll,
		callbacks: callbacks,
		state:     StateForm,
	}
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// JobID returns the id of the active or last submission, if any.
func (s *Session) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

// Submit validates the form and, when it passes, uploads it and polls the
// job to completion in the background. Validation failures are reported
// through OnError and leave the session on the form so the user can fix the
// field and resubmit. Only one submission may be active at a time.
func (s *Session) Submit(ctx context.Context, form *Form) error {
	s.mu.Lock()
	if s.state != StateForm {
		s.mu.Unlock()
		return ErrBusy
	}
	if verr := Validate(form, s.specs); verr != nil {
		s.mu.Unlock()
		s.emitError(verr)
		return verr
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateProcessing
	done := s.done
	s.mu.Unlock()
	s.emitState(StateProcessing)

	go func() {
		defer close(done)
		s.run(runCtx, form)
	}()
	return nil
}

func (s *Session) run(ctx context.Context, form *Form) {
	jobID, err := s.client.Upload(ctx, form)
	if err != nil {
		s.fail(err)
		return
	}
	s.mu.Lock()
	s.jobID = jobID
	s.mu.Unlock()

	_, err = s.client.Poll(ctx, jobID, s.poll, func(st *Status) {
		if s.callbacks.OnProgress != nil && !st.Terminal() {
			s.callbacks.OnProgress(st.Progress, st.Message)
		}
	})
	if err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.state = StateCompleted
	s.mu.Unlock()
	s.emitState(StateCompleted)
	if s.callbacks.OnCompleted != nil {
		s.callbacks.OnCompleted(jobID)
	}
}

// Cancel stops the background work and asks the server to abandon the job.
// It is a no-op outside of processing.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateProcessing {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	jobID := s.jobID
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if jobID == "" {
		return nil
	}
	return s.client.Cancel(ctx, jobID)
}

// Reset returns a finished session to the form so a new submission can
// start. It does nothing while a submission is running.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return
	}
	changed := s.state != StateForm
	s.jobID = ""
	s.cancel = nil
	s.done = nil
	s.state = StateForm
	s.mu.Unlock()
	if changed {
		s.emitState(StateForm)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()
	s.emitState(StateFailed)
	s.emitError(err)
}

func (s *Session) emitError(err error) {
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(err)
	}
}

func (s *Session) emitState(st State) {
	if s.callbacks.OnState != nil {
		s.callbacks.OnState(st)
	}
}
