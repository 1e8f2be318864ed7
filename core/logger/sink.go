package logger

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: output closed")

// sinkOp is either a line to write or, when ack is set, a flush barrier.
type sinkOp struct {
	line []byte
	ack  chan error
}

// sink copies lines to every writer from a single goroutine so callers never
// block on slow outputs unless the queue is full.
type sink struct {
	ops  chan sinkOp
	done chan struct{}
	outs []io.Writer

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newSink(writers []io.Writer, queue int) *sink {
	s := &sink{
		ops:  make(chan sinkOp, queue),
		done: make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			s.outs = append(s.outs, w)
		}
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	for op := range s.ops {
		if op.ack != nil {
			op.ack <- s.Err()
			continue
		}
		for _, w := range s.outs {
			if _, err := w.Write(op.line); err != nil {
				s.fail(err)
			}
		}
	}
}

// Write queues a copy of p.
func (s *sink) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSinkClosed
	}
	s.ops <- sinkOp{line: bytes.Clone(p)}
	return nil
}

// Flush returns once every line queued before it has been written.
func (s *sink) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return s.Err()
	}
	ack := make(chan error, 1)
	s.ops <- sinkOp{ack: ack}
	s.mu.RUnlock()
	return <-ack
}

// Close drains the queue and reports the first write error.
func (s *sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ops)
	}
	s.mu.Unlock()
	<-s.done
	return s.Err()
}

func (s *sink) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *sink) fail(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
