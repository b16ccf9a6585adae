package netio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// ErrNoListeners indicates that Run was called without any listeners.
var ErrNoListeners = errors.New("receiver run: no listeners provided")

// Demuxer routes a decoded Spark2 envelope received on ifName to the
// Spark2 engine (spark2.Engine.RecvEnvelope satisfies this). The interface
// lives in netio, not spark2, so netio need not import spark2 itself.
type Demuxer interface {
	RecvEnvelope(ifName string, env spark2msg.Envelope, recvTime time.Time)
}

// Receiver reads Spark2 datagrams from one or more Listeners, decodes
// them, and routes them to a Demuxer.
type Receiver struct {
	demuxer Demuxer
	logger  *slog.Logger
}

// NewReceiver creates a Receiver that routes decoded envelopes to demuxer.
func NewReceiver(demuxer Demuxer, logger *slog.Logger) *Receiver {
	return &Receiver{
		demuxer: demuxer,
		logger:  logger.With(slog.String("component", "netio.receiver")),
	}
}

// Run reads from all listeners concurrently until ctx is cancelled. Each
// listener gets its own goroutine. Run blocks until all listener
// goroutines complete.
func (r *Receiver) Run(ctx context.Context, listeners ...*Listener) error {
	if len(listeners) == 0 {
		return fmt.Errorf("receiver: %w", ErrNoListeners)
	}

	done := make(chan struct{}, len(listeners))
	for _, ln := range listeners {
		go func(l *Listener) {
			r.recvLoop(ctx, l)
			done <- struct{}{}
		}(ln)
	}

	for range len(listeners) {
		<-done
	}
	return nil
}

func (r *Receiver) recvLoop(ctx context.Context, ln *Listener) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := r.recvOne(ctx, ln); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("recv error", slog.String("error", err.Error()))
		}
	}
}

func (r *Receiver) recvOne(ctx context.Context, ln *Listener) error {
	raw, meta, err := ln.Recv(ctx)
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		r.logger.Debug("invalid spark2 packet",
			slog.String("src", meta.SrcAddr.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	r.demuxer.RecvEnvelope(meta.IfName, env, time.Now())
	return nil
}
