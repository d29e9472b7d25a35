package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/urfave/cli/v2"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/cidutil"
	"ledgertx.io/ledgertx/model"
	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/bundle"
	"ledgertx.io/ledgertx/storage/casregistry"
	"ledgertx.io/ledgertx/submit"
	"ledgertx.io/ledgertx/tx"
	"ledgertx.io/ledgertx/txstore"

	_ "ledgertx.io/ledgertx/storage/badgercas"
	_ "ledgertx.io/ledgertx/storage/boltcas"
	_ "ledgertx.io/ledgertx/storage/grpccas"
	_ "ledgertx.io/ledgertx/storage/ipfs"
	_ "ledgertx.io/ledgertx/storage/localfs"
	_ "ledgertx.io/ledgertx/storage/rediscas"
)

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "CAS backend (overrides the config file's storage section)"},
		&cli.StringSliceFlag{Name: "opt", Aliases: []string{"o"}, Usage: "Backend setting as key=value"},
		&cli.StringFlag{Name: "prefer", Usage: "Configured backend name or id to write to first"},
	}
}

// openStore opens the CAS named by --backend, or the config's storage section.
func (e *env) openStore(c *cli.Context) (*txstore.Store, storage.CAS, func() error, error) {
	var (
		cas     storage.CAS
		closeFn func() error
		err     error
	)
	switch {
	case c.String("backend") != "":
		settings := make(map[string]string)
		for _, kv := range c.StringSlice("opt") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return nil, nil, nil, cli.Exit(fmt.Sprintf("invalid --opt %q: want key=value", kv), 2)
			}
			settings[k] = v
		}
		cas, closeFn, err = casregistry.Open(c.Context, c.String("backend"), casregistry.UsageCLI, settings, e.log)
	case e.cfg.Storage != nil:
		cas, closeFn, err = e.cfg.Storage.Open(c.Context, casregistry.UsageCLI, c.String("prefer"), e.log)
	default:
		return nil, nil, nil, cli.Exit("no storage configured: pass --backend or add a storage section to the config", 2)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	st, err := txstore.New(cas, txstore.Options{
		Mode:   e.cfg.ComplianceMode(),
		Signer: e.signer(),
		Logger: e.log,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, nil, err
	}
	return st, cas, closeFn, nil
}

func storeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Keep signed transactions in a content-addressed store",
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Verify and store a signed transaction; prints its CID",
				ArgsUsage: "<signed.json|->",
				Flags:     append(storageFlags(), &cli.BoolFlag{Name: "json"}),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: ledgertx store put [flags] <signed.json|->", 2)
					}
					signed, err := e.readTransaction(c.Args().First())
					if err != nil {
						return err
					}
					st, _, closeFn, err := e.openStore(c)
					if err != nil {
						return err
					}
					defer closeFn()
					id, err := st.Put(c.Context, signed)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return e.writeJSON(model.StoreResult{ID: *signed.ID, CID: id.String()})
					}
					_, err = fmt.Fprintln(e.out, id.String())
					return err
				},
			},
			{
				Name:      "get",
				Usage:     "Load, verify and print a stored transaction",
				ArgsUsage: "<tx-id|cid>",
				Flags:     append(storageFlags(), &cli.StringFlag{Name: "out", Usage: "Write to this file instead of stdout"}),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: ledgertx store get [flags] <tx-id|cid>", 2)
					}
					st, _, closeFn, err := e.openStore(c)
					if err != nil {
						return err
					}
					defer closeFn()
					ref := c.Args().First()
					var signed tx.Transaction
					if len(ref) == 64 {
						signed, err = st.Get(c.Context, ref)
					} else {
						id, derr := cid.Decode(ref)
						if derr != nil {
							return cli.Exit(fmt.Sprintf("invalid reference %q: not a tx id or CID", ref), 2)
						}
						signed, err = st.GetCID(c.Context, id)
					}
					if err != nil {
						return err
					}
					b, err := canonical.Marshal(signed)
					if err != nil {
						return err
					}
					if p := c.String("out"); p != "" {
						return os.WriteFile(p, b, 0o644)
					}
					_, err = e.out.Write(b)
					return err
				},
			},
			{
				Name:      "has",
				Usage:     "Report whether a transaction id is stored",
				ArgsUsage: "<tx-id>",
				Flags:     storageFlags(),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: ledgertx store has [flags] <tx-id>", 2)
					}
					st, _, closeFn, err := e.openStore(c)
					if err != nil {
						return err
					}
					defer closeFn()
					ok, err := st.Has(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(e.out, ok)
					if !ok {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:  "backends",
				Usage: "List linked CAS backends and their settings",
				Action: func(c *cli.Context) error {
					for _, b := range casregistry.List(casregistry.UsageCLI) {
						fmt.Fprintf(e.out, "%s\t%s\n", b.Name, b.Description)
						for _, o := range b.Options {
							def := ""
							if o.Default != "" {
								def = " (default " + o.Default + ")"
							}
							fmt.Fprintf(e.out, "  %s\t%s%s\n", o.Key, o.Help, def)
						}
					}
					return nil
				},
			},
		},
	}
}

func bundleCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "bundle",
		Usage: "Move stored transactions between stores as deterministic TAR bundles",
		Subcommands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Write the given transactions, or everything stored with --all, to a bundle",
				ArgsUsage: "<tx-id> [<tx-id> ...]",
				Flags: append(storageFlags(),
					&cli.StringFlag{Name: "out", Usage: "Bundle file (default stdout)"},
					&cli.BoolFlag{Name: "index", Value: true, Usage: "Include index.json"},
					&cli.BoolFlag{Name: "all", Usage: "Export every stored object (backends that can list their contents)"},
				),
				Action: func(c *cli.Context) error {
					if (c.NArg() == 0) != c.Bool("all") {
						return cli.Exit("usage: ledgertx bundle export [flags] (--all | <tx-id> ...)", 2)
					}
					ids := make([]cid.Cid, 0, c.NArg())
					for _, txID := range c.Args().Slice() {
						id, err := cidutil.FromTxID(txID)
						if err != nil {
							return err
						}
						ids = append(ids, id)
					}
					_, cas, closeFn, err := e.openStore(c)
					if err != nil {
						return err
					}
					defer closeFn()
					if c.Bool("all") {
						en, ok := cas.(storage.Enumerator)
						if !ok {
							return cli.Exit("bundle export --all: backend cannot list its contents", 2)
						}
						if err := en.ForEach(func(id cid.Cid, _ []byte) error {
							ids = append(ids, id)
							return nil
						}); err != nil {
							return err
						}
					}

					var w io.Writer = e.out
					if p := c.String("out"); p != "" {
						f, err := os.Create(p)
						if err != nil {
							return err
						}
						defer f.Close()
						w = f
					}
					return bundle.Export(c.Context, w, cas, ids, bundle.ExportOptions{IncludeIndex: c.Bool("index")})
				},
			},
			{
				Name:      "import",
				Usage:     "Import a bundle and verify every transaction in it",
				ArgsUsage: "<bundle.tar|->",
				Flags:     storageFlags(),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: ledgertx bundle import [flags] <bundle.tar|->", 2)
					}
					st, cas, closeFn, err := e.openStore(c)
					if err != nil {
						return err
					}
					defer closeFn()

					var r io.Reader = e.stdin
					if p := c.Args().First(); p != "-" {
						f, err := os.Open(p)
						if err != nil {
							return err
						}
						defer f.Close()
						r = f
					}
					ids, err := bundle.Import(c.Context, r, cas)
					if err != nil {
						return err
					}
					for _, id := range ids {
						t, err := st.GetCID(c.Context, id)
						if err != nil {
							return fmt.Errorf("imported block %s: %w", id, err)
						}
						fmt.Fprintln(e.out, t.IDString())
					}
					return nil
				},
			},
		},
	}
}

func submitCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "POST a signed transaction to a node",
		ArgsUsage: "<signed.json|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "node-url", Usage: "Node API root (overrides config and LEDGERTX_NODE_URL)"},
			&cli.StringFlag{Name: "mode", Usage: "async, sync or commit (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx submit [--node-url <url>] [--mode <m>] <signed.json|->", 2)
			}
			if u := c.String("node-url"); u != "" {
				e.cfg.Node.URL = u
			}
			if err := e.cfg.RequireNode(); err != nil {
				return cli.Exit(err.Error(), 2)
			}
			modeName := e.cfg.Node.Mode
			if c.IsSet("mode") {
				modeName = c.String("mode")
			}
			mode, err := submit.ParseMode(modeName)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			signed, err := e.readTransaction(c.Args().First())
			if err != nil {
				return err
			}
			if err := e.signer().Verify(signed); err != nil {
				return err
			}
			cc := e.cfg.SubmitClientConfig()
			cc.Logger = e.log
			client, err := submit.NewClient(cc)
			if err != nil {
				return err
			}
			res, err := client.Submit(c.Context, signed, mode)
			if err != nil {
				return err
			}
			if err := e.writeJSON(model.SubmitResult{
				ID:         *signed.ID,
				Mode:       string(mode),
				Status:     string(res.Status),
				HTTPStatus: res.HTTPStatus,
				RequestID:  res.RequestID,
				Message:    res.Message,
			}); err != nil {
				return err
			}
			if res.Status != submit.StatusAccepted {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
