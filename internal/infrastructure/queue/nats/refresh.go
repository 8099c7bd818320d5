// Package nats subscribes to index rebuild notifications. The offline
// indexing job publishes on the refresh subject after uploading a new
// artifact; the service reloads its snapshot in response, so a restart is
// never needed to pick up a fresh index.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
)

type Refresher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

func New(url, subject string, logger *slog.Logger, options Options) (*Refresher, error) {
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = 2 * time.Second
	}
	if options.ReconnectWait <= 0 {
		options.ReconnectWait = 2 * time.Second
	}
	if options.MaxReconnects <= 0 {
		options.MaxReconnects = 60
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("onboarding-assistant"),
		nats.Timeout(options.ConnectTimeout),
		nats.ReconnectWait(options.ReconnectWait),
		nats.MaxReconnects(options.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Refresher{conn: conn, subject: subject, logger: logger}, nil
}

func (r *Refresher) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// Listen reloads the index on every rebuild notification until ctx is
// cancelled. A failed reload is logged and the old snapshot keeps serving;
// the next notification tries again.
func (r *Refresher) Listen(ctx context.Context, reloader ports.IndexReloader) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		r.logger.Info("index rebuild notification received", slog.String("subject", msg.Subject))
		if err := reloader.Reload(ctx); err != nil {
			r.logger.Error("index reload failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := r.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
