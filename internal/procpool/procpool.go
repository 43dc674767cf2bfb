// Package procpool implements a bounded-concurrency subprocess executor
// (C4 in spec.md), grounded on crates/aoc/src/cli/mode/test/process.rs of
// the original implementation. N managers each own a job loop plus three IO
// goroutines (stdin writer, stdout reader, stderr reader) joined through
// internal/oneshot; jobs fan in through internal/mpmc and results fan out
// through a single event channel.
package procpool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ictrobot/aochand/internal/mpmc"
	"github.com/ictrobot/aochand/internal/obslog"
	"github.com/ictrobot/aochand/internal/oneshot"
)

// Job describes a single subprocess invocation.
type Job struct {
	Command []string
	Stdin   string
	Timeout time.Duration
}

// Result is everything collected about one finished (or killed) child.
type Result struct {
	Killed        bool
	ExitCode      int
	StdinWriteErr error
	Stdout        string
	StdoutErr     error
	Stderr        string
	StderrErr     error
}

// Success reports whether the child exited zero and was not killed.
func (r Result) Success() bool {
	return !r.Killed && r.ExitCode == 0
}

// Event is the tagged union emitted for each job: either the job starting,
// or finishing. StartID/ID are opaque tokens the caller associates with the
// job at Enqueue time; Pool never interprets them.
type Event[S, T any] struct {
	Started  bool
	StartID  S
	ID       T
	Result   Result
	SpawnErr error
}

// job is what crosses the mpmc queue: the caller's correlation tokens plus
// the job itself.
type job[S, T any] struct {
	startID S
	id      T
	job     Job
}

// Pool runs up to maxProcesses children concurrently.
//
// Field order matters for shutdown: Close must drop jobSender first so
// managers observe end-of-stream, then join the managers (which is what
// internally joins their IO goroutines too), and only then may the event
// channel be closed. Closing the event channel first would make a manager's
// attempt to emit an event panic instead of returning cleanly; closing
// managers before the job sender would deadlock them in their receive loop.
// This ordering requirement is carried over unchanged from the original
// implementation's field-ordering-as-drop-ordering comment on ProcessPool.
type Pool[S, T any] struct {
	jobSender      mpmc.Sender[job[S, T]]
	grp            *errgroup.Group
	events         chan Event[S, T]
	maxProcesses   int
	pendingResults int
	closed         bool
	log            *obslog.Logger
}

// New starts maxProcesses manager goroutines ready to accept jobs; each
// manager starts three IO helper goroutines for every job it runs. A nil log
// disables logging.
func New[S, T any](ctx context.Context, maxProcesses int, log *obslog.Logger) *Pool[S, T] {
	if maxProcesses < 1 {
		panic("procpool: maxProcesses must be >= 1")
	}
	if log == nil {
		log = obslog.Nop()
	}

	jobSender, jobReceiver := mpmc.New[job[S, T]]()
	events := make(chan Event[S, T])

	grp, ctx := errgroup.WithContext(ctx)
	for i := 0; i < maxProcesses; i++ {
		receiver := jobReceiver.Clone()
		grp.Go(func() error {
			defer receiver.Close()
			runManager(ctx, receiver, events, log)
			return nil
		})
	}
	jobReceiver.Close()

	return &Pool[S, T]{
		jobSender:    jobSender,
		grp:          grp,
		events:       events,
		maxProcesses: maxProcesses,
		log:          log,
	}
}

// Enqueue appends a job to the pool's queue and increments pendingResults.
// It panics if the pool has already been closed, matching the original's
// "pool has been closed to new jobs" assertion.
func (p *Pool[S, T]) Enqueue(cmd Job, startID S, id T) {
	if p.closed {
		panic("procpool: pool has been closed to new jobs")
	}
	p.pendingResults++
	if err := p.jobSender.Send(job[S, T]{startID: startID, id: id, job: cmd}); err != nil {
		panic("procpool: failed to send job: " + err.Error())
	}
}

// Close stops accepting new jobs, letting managers drain the queue and exit
// once it's empty.
func (p *Pool[S, T]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.jobSender.Close()
}

// RecvTimeout blocks up to timeout for the next Event. ok is false on
// timeout. Every Finished event decrements pendingResults.
func (p *Pool[S, T]) RecvTimeout(timeout time.Duration) (Event[S, T], bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event, ok := <-p.events:
		if !ok {
			return Event[S, T]{}, false
		}
		if !event.Started {
			p.pendingResults--
		}
		return event, true
	case <-timer.C:
		return Event[S, T]{}, false
	}
}

// MaxProcesses returns the number of manager goroutines backing this pool.
func (p *Pool[S, T]) MaxProcesses() int {
	return p.maxProcesses
}

// PendingResults returns (total enqueued so far) - (total Finished events
// delivered so far).
func (p *Pool[S, T]) PendingResults() int {
	return p.pendingResults
}

// Shutdown closes the pool to new jobs (idempotent with Close), waits for
// every manager and its IO helpers to exit, then closes the event channel.
// Call this exactly once, after the caller is done draining RecvTimeout.
func (p *Pool[S, T]) Shutdown() error {
	p.Close()
	err := p.grp.Wait()
	close(p.events)
	return err
}

// runManager is the per-manager job loop: receive (startID, id, job), emit
// Started, spawn the child, wait on it, and emit Finished. Each job is
// tagged with a random trace ID purely for correlating its start/finish log
// lines; it never crosses the Event boundary.
func runManager[S, T any](ctx context.Context, jobReceiver mpmc.Receiver[job[S, T]], events chan<- Event[S, T], log *obslog.Logger) {
	for {
		j, ok := jobReceiver.Recv()
		if !ok {
			return
		}

		traceID := uuid.New()
		log.Debug().Stringer(`job`, traceID).Log(`spawning process`)

		select {
		case events <- Event[S, T]{Started: true, StartID: j.startID}:
		case <-ctx.Done():
			return
		}

		result, spawnErr := spawnAndWait(ctx, j.job)

		if spawnErr != nil {
			log.Err().Stringer(`job`, traceID).Err(spawnErr).Log(`failed to spawn process`)
		} else {
			log.Debug().
				Stringer(`job`, traceID).
				Bool(`killed`, result.Killed).
				Int(`exit_code`, result.ExitCode).
				Log(`process finished`)
		}

		select {
		case events <- Event[S, T]{Started: false, ID: j.id, Result: result, SpawnErr: spawnErr}:
		case <-ctx.Done():
			return
		}
	}
}

// Poll schedule constants from spec.md §4.4 / §8.
const (
	pollInitialInterval = 250 * time.Microsecond
	pollBackoffAfter    = 5 * time.Millisecond
	pollMaxInterval     = 50 * time.Millisecond
	pollBackoffDivisor  = 12
)

// newPollBackOff builds the adaptive poll schedule: flat at
// pollInitialInterval until pollBackoffAfter has elapsed since spawn, then
// growing by 1/12 each step, capped at pollMaxInterval. It's built on
// cenkalti/backoff's ExponentialBackOff (with jitter disabled) rather than
// hand-rolled duration math, so the growth phase is exercised by a
// well-tested implementation; the flat-then-grow phase split is applied by
// the caller, not by the backoff object itself.
func newPollBackOff(clock backoff.Clock) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     pollInitialInterval,
		RandomizationFactor: 0,
		Multiplier:          1 + 1.0/pollBackoffDivisor,
		MaxInterval:         pollMaxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               clock,
	}
	b.Reset()
	return b
}

// realClock adapts time.Now to backoff.Clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// pollSchedule is the adaptive poll schedule itself, factored out of
// waitWithAdaptivePoll so its boundary behavior (flat until
// pollBackoffAfter, then growth by 1/12 capped at pollMaxInterval and by
// deadline) is directly testable against a mock clock, independent of any
// real process or real sleeping.
type pollSchedule struct {
	start, deadline time.Time
	backoff         *backoff.ExponentialBackOff
	interval        time.Duration
	next            time.Time
}

func newPollSchedule(start, deadline time.Time, clock backoff.Clock) *pollSchedule {
	s := &pollSchedule{
		start:    start,
		deadline: deadline,
		backoff:  newPollBackOff(clock),
		interval: pollInitialInterval,
	}
	s.next = capAt(start.Add(pollInitialInterval), deadline)
	return s
}

// advance records that a poll happened at now and found nothing, and
// returns the timestamp of the following scheduled poll.
func (s *pollSchedule) advance(now time.Time) time.Time {
	if now.Sub(s.start) > pollBackoffAfter {
		s.interval = s.backoff.NextBackOff()
	}
	s.next = capAt(now.Add(s.interval), s.deadline)
	return s.next
}

func capAt(t, deadline time.Time) time.Time {
	if t.After(deadline) {
		return deadline
	}
	return t
}

// spawnAndWait spawns cmd, streams stdin/stdout/stderr on dedicated
// goroutines, and waits for exit using the adaptive poll schedule, killing
// the child if its deadline is exceeded.
func spawnAndWait(ctx context.Context, j Job) (Result, error) {
	return spawnAndWaitClock(ctx, j, realClock{})
}

func spawnAndWaitClock(ctx context.Context, j Job, clock backoff.Clock) (Result, error) {
	if len(j.Command) == 0 {
		return Result{}, errors.New("procpool: empty command")
	}

	cmd := exec.CommandContext(ctx, j.Command[0], j.Command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}

	start := clock.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	stdinSender, stdinReceiver := oneshot.New[error]()
	go writeAll(stdin, j.Stdin, stdinSender)

	stdoutSender, stdoutReceiver := oneshot.New[readResult]()
	go readAll(stdout, stdoutSender)

	stderrSender, stderrReceiver := oneshot.New[readResult]()
	go readAll(stderr, stderrSender)

	deadline := start.Add(j.Timeout)
	killed, waitErr := waitWithAdaptivePoll(cmd, start, deadline, clock)

	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	} else if waitErr != nil && !killed {
		return Result{}, waitErr
	}
	if killed {
		exitCode = cmd.ProcessState.ExitCode()
	}

	stdinErr, _ := stdinReceiver.Recv()
	stdoutResult, _ := stdoutReceiver.Recv()
	stderrResult, _ := stderrReceiver.Recv()

	return Result{
		Killed:        killed,
		ExitCode:      exitCode,
		StdinWriteErr: stdinErr,
		Stdout:        stdoutResult.data,
		StdoutErr:     stdoutResult.err,
		Stderr:        stderrResult.data,
		StderrErr:     stderrResult.err,
	}, nil
}

// waitWithAdaptivePoll implements the schedule from spec.md §4.4: poll at
// pollInitialInterval for the first pollBackoffAfter, then grow by 1/12 each
// step capped at pollMaxInterval; each sleep is the minimum of the computed
// interval and the remaining time to deadline. A poll at or after the
// deadline is treated as timed out, per spec.md §8's boundary behavior.
func waitWithAdaptivePoll(cmd *exec.Cmd, start, deadline time.Time, clock backoff.Clock) (killed bool, err error) {
	schedule := newPollSchedule(start, deadline, clock)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	nextPoll := schedule.next
	for {
		now := clock.Now()
		sleepFor := nextPoll.Sub(now)
		if remaining := deadline.Sub(now); remaining < sleepFor {
			sleepFor = remaining
		}
		if sleepFor > 0 {
			timer := time.NewTimer(sleepFor)
			select {
			case err = <-done:
				timer.Stop()
				return false, err
			case <-timer.C:
			}
		} else {
			select {
			case err = <-done:
				return false, err
			default:
			}
		}

		now = clock.Now()
		if !now.Before(deadline) {
			_ = cmd.Process.Kill()
			err = <-done
			return true, err
		}

		nextPoll = schedule.advance(now)
	}
}

type readResult struct {
	data string
	err  error
}

// writeAll writes data to w, ignoring a failure to send the result (the
// receiver may have already dropped, per spec.md §4.4's IO worker contract).
func writeAll(w io.WriteCloser, data string, sender oneshot.Sender[error]) {
	_, err := io.WriteString(w, data)
	closeErr := w.Close()
	if err == nil {
		err = closeErr
	}
	_ = sender.Send(err)
}

// readAll reads r to completion, ignoring a failure to send the result.
func readAll(r io.Reader, sender oneshot.Sender[readResult]) {
	var buf bytes.Buffer
	_, err := io.Copy(&buf, r)
	_ = sender.Send(readResult{data: buf.String(), err: err})
}
