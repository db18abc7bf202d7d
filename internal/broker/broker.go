package broker

import (
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/tideline-io/tideline/internal/metrics"
	"github.com/tideline-io/tideline/internal/system"
	"github.com/tideline-io/tideline/internal/wire"
)

// Broker owns the TCP accept loop and dispatches framed requests to the
// streaming core.
type Broker struct {
	Config  Config
	System  *system.System
	Metrics *metrics.Registry
	Logger  *zap.Logger

	quit chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config, sys *system.System, reg *metrics.Registry, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		Config:  cfg,
		System:  sys,
		Metrics: reg,
		Logger:  logger,
		quit:    make(chan struct{}),
	}
}

func (b *Broker) Start() error {
	ln, err := net.Listen("tcp", b.Config.ListenAddr)
	if err != nil {
		return err
	}

	b.Logger.Info("broker listening", zap.String("addr", b.Config.ListenAddr))

	go func() {
		<-b.quit
		b.Logger.Info("broker stopping, closing listener")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-b.quit:
				return nil
			default:
				b.Logger.Warn("accept error", zap.Error(err))
				continue
			}
		}

		b.wg.Add(1)
		go b.handleConnection(conn)
	}
}

func (b *Broker) Stop() {
	close(b.quit)
	b.wg.Wait()
}

func (b *Broker) handleConnection(conn net.Conn) {
	defer func() {
		conn.Close()
		b.wg.Done()
	}()

	for {
		env, err := wire.ReadEnvelope(conn)
		if err != nil {
			if err != io.EOF {
				b.Logger.Debug("connection closed", zap.Error(err))
			}
			return
		}

		err = func() error {
			defer env.Release()
			status, respBody := b.handleRequest(env)
			return wire.WriteResponse(conn, env.CorrelationId, status, respBody)
		}()

		if err != nil {
			b.Logger.Warn("write response failed", zap.Error(err))
			return
		}
	}
}
