// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package audit records security events off the request path. Events are
// queued onto a bounded channel and drained by a single writer goroutine;
// when the queue is full the event is dropped and counted rather than
// blocking a request.
package audit

import (
	"sync"

	"github.com/praetor-sec/praetor/internal/logging"
	"github.com/praetor-sec/praetor/internal/models"
)

// Sink accepts security events. Record must never block the caller.
type Sink interface {
	Record(ev *models.SecurityEvent)
}

// DefaultQueueSize is the event queue capacity of the async sink.
const DefaultQueueSize = 1024

// LogSink writes security events as structured log lines through a
// bounded async queue.
type LogSink struct {
	queue    chan *models.SecurityEvent
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLogSink creates and starts a log sink. queueSize <= 0 selects
// DefaultQueueSize.
func NewLogSink(queueSize int) *LogSink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	s := &LogSink{
		queue: make(chan *models.SecurityEvent, queueSize),
		done:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.drain()

	return s
}

// Record enqueues an event. Drops and counts the event when the queue is
// full or the sink is stopped.
func (s *LogSink) Record(ev *models.SecurityEvent) {
	if ev == nil {
		return
	}

	select {
	case <-s.done:
		RecordDropped()
		return
	default:
	}

	select {
	case s.queue <- ev:
		RecordQueued()
	default:
		RecordDropped()
	}
}

// Close stops the writer goroutine after draining queued events. The
// queue channel is never closed so a racing Record cannot panic; it just
// counts a drop once done is closed.
func (s *LogSink) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *LogSink) drain() {
	defer s.wg.Done()

	for {
		select {
		case ev := <-s.queue:
			s.write(ev)
		case <-s.done:
			for {
				select {
				case ev := <-s.queue:
					s.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *LogSink) write(ev *models.SecurityEvent) {
	entry := logging.Info()
	if ev.Result != models.ResultSuccess {
		entry = logging.Warn()
	}

	entry.
		Str("component", "audit").
		Str("request_id", ev.RequestID).
		Str("user_id", ev.UserID).
		Str("user_role", ev.UserRole).
		Str("path", ev.Pathname).
		Str("result", string(ev.Result)).
		Str("reason", ev.Reason).
		Str("ip", ev.IPAddress).
		Str("user_agent", ev.UserAgent).
		Time("event_time", ev.Timestamp).
		Bool("attempted_escalation", ev.AttemptedEscalation).
		Msg("Security event")

	RecordWritten(string(ev.Result))
}
