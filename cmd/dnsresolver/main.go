package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	resolver "github.com/LOOK4869/DNS-Resolver"
	"github.com/LOOK4869/DNS-Resolver/cache"
	"github.com/LOOK4869/DNS-Resolver/server"
	"go.uber.org/zap"
)

const defaultPort = 53

var errPortRange = errors.New("port must be between 1 and 65535")

// parsePort returns the port given as the only optional argument.
func parsePort(args []string) (port uint16, err error) {
	port = defaultPort
	switch len(args) {
	case 0:
	case 1:
		var n uint64
		if n, err = strconv.ParseUint(args[0], 10, 16); err == nil && n == 0 {
			err = errPortRange
		}
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				err = errPortRange
			}
			return 0, fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		port = uint16(n)
	default:
		err = errors.New("too many arguments")
	}
	return
}

func run(ctx context.Context, logger *zap.Logger, port uint16) (err error) {
	svc := resolver.New(resolver.DefaultConfig())
	svc.Logger = logger.Named("resolver")
	srv := &server.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(int(port))),
		Handler: svc,
		Logger:  logger.Named("server"),
	}
	err = srv.ListenAndServe(ctx)
	if c, ok := svc.Cache.(*cache.Cache); ok {
		logger.Info("cache statistics",
			zap.Int("entries", c.Entries()),
			zap.Float64("hit_ratio", c.HitRatio()),
			zap.Int("expired_purged", c.Clean()))
	}
	return
}

func main() {
	port, err := parsePort(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "usage: %s [port]\n%v\n", filepath.Base(os.Args[0]), err)
		os.Exit(2)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, logger, port)
	stop()
	_ = logger.Sync()
	if err != nil {
		logger.Error("server failed", zap.Uint16("port", port), zap.Error(err))
		os.Exit(1)
	}
}
