package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"ledgertx.io/ledgertx/config"
	"ledgertx.io/ledgertx/keys"
	"ledgertx.io/ledgertx/logger"
	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txerr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env carries what every command needs once global flags are parsed.
type env struct {
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	log    *zap.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, out, errOut io.Writer) int {
	e := &env{stdin: stdin, out: out, errOut: errOut}
	app := newApp(e)
	if err := app.RunContext(ctx, args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(errOut, msg)
			}
			return ec.ExitCode()
		}
		if rule := txerr.RuleID(err); rule != "" {
			fmt.Fprintf(errOut, "%s: %v\n", rule, err)
			return 1
		}
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:  "ledgertx",
		Usage: "Build, sign, verify, store and submit ledger transactions",
		Description: `ledgertx produces signed, content-addressed transactions using
ed25519-sha-256 crypto-condition fulfillments and SHA3-256 ids.

Transactions are read from files (or - for stdin) as JSON and written to
stdout as canonical JSON without a trailing newline.`,
		Writer:    e.out,
		ErrWriter: e.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "keystore-dir",
				Usage: "Key store directory (default ~/.ledgertx/keys)",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			if c.Bool("debug") {
				cfg.Debug = true
			}
			if c.IsSet("keystore-dir") {
				cfg.Keystore.Dir = c.String("keystore-dir")
			}
			log, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug, Console: true})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			e.cfg = cfg
			e.log = log
			return nil
		},
		After: func(c *cli.Context) error {
			if e.log != nil {
				_ = e.log.Sync()
			}
			return nil
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			keygenCommand(e),
			pubkeyCommand(e),
			conditionCommand(e),
			keyCommand(e),
			createCommand(e),
			transferCommand(e),
			signCommand(e),
			verifyCommand(e),
			idCommand(e),
			canonicalizeCommand(e),
			storeCommand(e),
			bundleCommand(e),
			submitCommand(e),
		},
	}
}

func (e *env) readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, cli.Exit("missing input file (use - for stdin)", 2)
	}
	if path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

func (e *env) readTransaction(path string) (tx.Transaction, error) {
	b, err := e.readInput(path)
	if err != nil {
		return tx.Transaction{}, err
	}
	return tx.Parse(b)
}

// readPayload decodes an opaque JSON payload, keeping number literals.
// An empty path yields null.
func (e *env) readPayload(path string) (tx.Payload, error) {
	if path == "" {
		return nil, nil
	}
	b, err := e.readInput(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func (e *env) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(e.cfg.Keystore.Dir)
}

func (e *env) signer() *signer.Signer {
	return signer.New(
		signer.WithLogger(e.log),
		signer.WithParallelism(e.cfg.Signing.Parallelism),
	)
}
