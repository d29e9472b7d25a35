package main

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"ledgertx.io/ledgertx/ccond"
	"ledgertx.io/ledgertx/keys"
	"ledgertx.io/ledgertx/model"
	"ledgertx.io/ledgertx/tx"
)

func keygenCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate an Ed25519 key pair (Base58)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "seed", Usage: "Base58 32-byte seed instead of a random one"},
			&cli.StringFlag{Name: "save", Usage: "Store the seed in the key store under this name"},
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing stored key"},
		},
		Action: func(c *cli.Context) error {
			var kp keys.KeyPair
			var err error
			if s := c.String("seed"); s != "" {
				seed, perr := keys.ParseSeed(s)
				if perr != nil {
					return perr
				}
				kp, err = keys.FromSeed(seed)
				keys.Wipe(seed)
			} else {
				kp, err = keys.Generate(rand.Reader)
			}
			if err != nil {
				return err
			}
			cond, err := ccond.ConditionURIFromBase58(kp.PublicKey)
			if err != nil {
				return err
			}
			result := model.KeyPair{PublicKey: kp.PublicKey, PrivateKey: kp.PrivateKey, Condition: cond}

			if name := c.String("save"); name != "" {
				ks, err := e.keyStore()
				if err != nil {
					return err
				}
				seed, err := keys.ParseSeed(kp.PrivateKey)
				if err != nil {
					return err
				}
				defer keys.Wipe(seed)
				_, path, err := ks.InitializeRootKey(name, seed, c.Bool("force"))
				if err != nil {
					return err
				}
				fmt.Fprintf(e.errOut, "saved %s to %s\n", name, path)
				result.PrivateKey = ""
			}
			return e.writeJSON(result)
		},
	}
}

func pubkeyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "pubkey",
		Usage:     "Print the Base58 public key of a Base58 private key (seed or expanded)",
		ArgsUsage: "<private-key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx pubkey <private-key>", 2)
			}
			pub, err := keys.PublicKeyOf(strings.TrimSpace(c.Args().First()))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(e.out, pub)
			return err
		},
	}
}

func conditionCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "condition",
		Usage:     "Print the ed25519-sha-256 condition for a Base58 public key",
		ArgsUsage: "<public-key>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the full condition object"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx condition [--json] <public-key>", 2)
			}
			cond, err := tx.MakeEd25519Condition(c.Args().First())
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return e.writeJSON(cond)
			}
			_, err = fmt.Fprintln(e.out, cond.URI)
			return err
		},
	}
}

func keyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the local key store",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a root key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "seed", Usage: "Base58 32-byte seed (default: random)"},
					&cli.BoolFlag{Name: "force"},
				},
				Action: func(c *cli.Context) error {
					ks, err := e.keyStore()
					if err != nil {
						return err
					}
					var seed []byte
					if s := c.String("seed"); s != "" {
						seed, err = keys.ParseSeed(s)
					} else {
						var kp keys.KeyPair
						kp, err = keys.Generate(rand.Reader)
						if err == nil {
							seed, err = keys.ParseSeed(kp.PrivateKey)
						}
					}
					if err != nil {
						return err
					}
					defer keys.Wipe(seed)
					pub, path, err := ks.InitializeRootKey(c.String("name"), seed, c.Bool("force"))
					if err != nil {
						return err
					}
					fmt.Fprintf(e.errOut, "wrote %s\n", path)
					_, err = fmt.Fprintln(e.out, pub)
					return err
				},
			},
			{
				Name:  "derive",
				Usage: "Derive a role key from a root key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "role", Required: true},
					&cli.BoolFlag{Name: "force"},
				},
				Action: func(c *cli.Context) error {
					ks, err := e.keyStore()
					if err != nil {
						return err
					}
					pub, path, err := ks.DeriveKeyFromRole(c.String("from"), c.String("role"), c.Bool("force"))
					if err != nil {
						return err
					}
					fmt.Fprintf(e.errOut, "wrote %s\n", path)
					_, err = fmt.Fprintln(e.out, pub)
					return err
				},
			},
			{
				Name:  "list",
				Usage: "List stored keys",
				Action: func(c *cli.Context) error {
					ks, err := e.keyStore()
					if err != nil {
						return err
					}
					entries, err := ks.ListKeys()
					if err != nil {
						return err
					}
					for _, k := range entries {
						line := k.Identifier + "\t" + k.PublicKey
						if len(k.Roles) > 0 {
							line += "\troles=" + strings.Join(k.Roles, ",")
						}
						fmt.Fprintln(e.out, line)
					}
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Print the public key of a stored key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "role"},
				},
				Action: func(c *cli.Context) error {
					ks, err := e.keyStore()
					if err != nil {
						return err
					}
					pub, err := ks.ExportKey(c.String("name"), c.String("role"))
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(e.out, pub)
					return err
				},
			},
		},
	}
}
