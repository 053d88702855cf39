// Package server answers DNS queries arriving on a UDP socket.
//
// Every datagram is handled in its own goroutine, bounded by
// MaxConcurrent. A handler error means the query gets no reply.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/LOOK4869/DNS-Resolver/wire"
	"go.uber.org/zap"
)

const DefaultMaxConcurrent = 1024

// Handler turns a raw query into a raw reply. Returning an error drops
// the query.
type Handler interface {
	Handle(ctx context.Context, req []byte) ([]byte, error)
}

type HandlerFunc func(ctx context.Context, req []byte) ([]byte, error)

func (f HandlerFunc) Handle(ctx context.Context, req []byte) ([]byte, error) {
	return f(ctx, req)
}

type Server struct {
	Addr          string      // UDP address to listen on, like ":53"
	Handler       Handler     // answers each datagram
	Logger        *zap.Logger // zap.NewNop() if nil
	MaxConcurrent int         // in-flight handlers, DefaultMaxConcurrent if zero or less
	wg            sync.WaitGroup
	mu            sync.Mutex // protects conn, orders wg.Add before Shutdown's wg.Wait
	conn          net.PacketConn
	closing       atomic.Bool
}

// ListenAndServe binds Addr and calls Serve.
func (srv *Server) ListenAndServe(ctx context.Context) (err error) {
	var lc net.ListenConfig
	var conn net.PacketConn
	if conn, err = lc.ListenPacket(ctx, "udp", srv.Addr); err == nil {
		err = srv.Serve(ctx, conn)
	} else {
		err = fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return
}

// Serve reads datagrams from conn until ctx is done or Shutdown is called,
// then waits for in-flight handlers and returns nil. Read errors are logged
// and do not stop the loop. conn is closed on return. After Shutdown, Serve
// closes conn and returns nil at once.
func (srv *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	srv.mu.Lock()
	if srv.closing.Load() {
		srv.mu.Unlock()
		return conn.Close()
	}
	srv.conn = conn
	srv.mu.Unlock()
	stop := context.AfterFunc(ctx, func() {
		srv.closing.Store(true)
		_ = conn.Close()
	})
	defer stop()
	defer srv.wg.Wait()
	defer conn.Close()

	log := srv.logger()
	log.Info("listening", zap.Stringer("addr", conn.LocalAddr()))
	sem := make(chan struct{}, srv.maxConcurrent())
	buf := make([]byte, wire.MaxUDPSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if srv.closing.Load() {
				log.Info("stopped", zap.Stringer("addr", conn.LocalAddr()))
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("read failed", zap.Error(err))
			continue
		}
		select {
		case sem <- struct{}{}:
			if !srv.track() {
				<-sem
				log.Info("stopped", zap.Stringer("addr", conn.LocalAddr()))
				return nil
			}
			req := append([]byte(nil), buf[:n]...)
			go srv.serveOne(ctx, conn, from, req, sem)
		default:
			log.Warn("query dropped, too many in flight", zap.Stringer("from", from))
		}
	}
}

// track registers a handler unless Shutdown has begun.
func (srv *Server) track() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.closing.Load() {
		return false
	}
	srv.wg.Add(1)
	return true
}

func (srv *Server) serveOne(ctx context.Context, conn net.PacketConn, from net.Addr, req []byte, sem chan struct{}) {
	log := srv.logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic", zap.Stringer("from", from), zap.Any("panic", r))
		}
		<-sem
		srv.wg.Done()
	}()
	reply, err := srv.Handler.Handle(ctx, req)
	if err != nil {
		log.Debug("query dropped", zap.Stringer("from", from), zap.Int("size", len(req)), zap.Error(err))
		return
	}
	if _, err = conn.WriteTo(reply, from); err != nil {
		log.Warn("write failed", zap.Stringer("to", from), zap.Error(err))
	}
}

// Shutdown closes the socket and waits for in-flight handlers, or for ctx
// to be done. A later Serve returns at once.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.mu.Lock()
	srv.closing.Store(true)
	if srv.conn != nil {
		_ = srv.conn.Close()
	}
	srv.mu.Unlock()
	done := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (srv *Server) logger() *zap.Logger {
	if srv.Logger != nil {
		return srv.Logger
	}
	return zap.NewNop()
}

func (srv *Server) maxConcurrent() int {
	if srv.MaxConcurrent > 0 {
		return srv.MaxConcurrent
	}
	return DefaultMaxConcurrent
}
