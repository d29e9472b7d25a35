// Command ledgertx-casd serves a local CAS backend over gRPC so several
// ledgertx clients can share one transaction store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"ledgertx.io/ledgertx/logger"
	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
	"ledgertx.io/ledgertx/storage/grpccas"

	_ "ledgertx.io/ledgertx/storage/badgercas"
	_ "ledgertx.io/ledgertx/storage/boltcas"
	_ "ledgertx.io/ledgertx/storage/ipfs"
	_ "ledgertx.io/ledgertx/storage/localfs"
	_ "ledgertx.io/ledgertx/storage/rediscas"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	app := &cli.App{
		Name:      "ledgertx-casd",
		Usage:     "Serve a CAS backend over gRPC",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Value: "127.0.0.1:7777", Usage: "listen address"},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Value: "localfs", Usage: "CAS backend name"},
			&cli.StringSliceFlag{Name: "opt", Aliases: []string{"o"}, Usage: "Backend setting as key=value"},
			&cli.BoolFlag{Name: "list-backends", Usage: "List supported backends and exit"},
			&cli.BoolFlag{Name: "debug", EnvVars: []string{"LEDGERTX_DEBUG"}},
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			if c.Bool("list-backends") {
				for _, b := range casregistry.List(casregistry.UsageDaemon) {
					if b.Description == "" {
						fmt.Fprintln(out, b.Name)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
				}
				return nil
			}
			settings := make(map[string]string)
			for _, kv := range c.StringSlice("opt") {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return cli.Exit(fmt.Sprintf("invalid --opt %q: want key=value", kv), 2)
				}
				settings[k] = v
			}

			log, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("debug")})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer log.Sync() //nolint:errcheck

			cas, closeFn, err := casregistry.Open(c.Context, c.String("backend"), casregistry.UsageDaemon, settings, log)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			if closeFn != nil {
				defer closeFn()
			}

			lis, err := net.Listen("tcp", c.String("listen"))
			if err != nil {
				return err
			}
			log.Info("Serving CAS",
				zap.String("addr", lis.Addr().String()),
				zap.String("backend", c.String("backend")))
			return serve(c.Context, lis, cas, log)
		},
	}
	if err := app.RunContext(ctx, args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(errOut, msg)
			}
			return ec.ExitCode()
		}
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

// serve blocks until ctx is done or the listener fails, then drains
// in-flight RPCs.
func serve(ctx context.Context, lis net.Listener, cas storage.CAS, log *zap.Logger) error {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpccas.UnaryLogger(log)))
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas, Logger: log})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		s.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
