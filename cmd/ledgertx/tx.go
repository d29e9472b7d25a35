package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"ledgertx.io/ledgertx/canonical"
	"ledgertx.io/ledgertx/compliance"
	"ledgertx.io/ledgertx/model"
	"ledgertx.io/ledgertx/signer"
	"ledgertx.io/ledgertx/tx"
)

const keyRefHelp = "Base58 key, @name[/role] from the key store, or file:<path>"

func createCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Build an unsigned CREATE transaction",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "issuer", Usage: "Issuer public key, one input each (" + keyRefHelp + ")", Required: true},
			&cli.StringSliceFlag{Name: "to", Usage: "Output as <public-key>[:<amount>] (default: first issuer, amount 1)"},
			&cli.StringFlag{Name: "asset", Usage: "JSON file with the asset data"},
			&cli.StringFlag{Name: "metadata", Usage: "JSON file with the metadata"},
		},
		Action: func(c *cli.Context) error {
			issuers := make([]string, 0, len(c.StringSlice("issuer")))
			for _, ref := range c.StringSlice("issuer") {
				pub, err := e.resolvePublicKey(ref)
				if err != nil {
					return err
				}
				issuers = append(issuers, pub)
			}
			targets := c.StringSlice("to")
			if len(targets) == 0 {
				targets = []string{issuers[0]}
			}
			outputs, err := e.parseOutputs(targets)
			if err != nil {
				return err
			}
			asset, err := e.readPayload(c.String("asset"))
			if err != nil {
				return err
			}
			metadata, err := e.readPayload(c.String("metadata"))
			if err != nil {
				return err
			}
			t, err := tx.MakeCreateTransaction(asset, metadata, outputs, issuers...)
			if err != nil {
				return err
			}
			return e.writeCanonical(t)
		},
	}
}

func transferCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Build an unsigned TRANSFER spending outputs of signed transactions",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "spend", Usage: "Signed transaction file and output as <file>[#<index>]", Required: true},
			&cli.StringSliceFlag{Name: "to", Usage: "Output as <public-key>[:<amount>]", Required: true},
			&cli.StringFlag{Name: "metadata", Usage: "JSON file with the metadata"},
		},
		Action: func(c *cli.Context) error {
			var unspent []tx.UnspentOutput
			for _, ref := range c.StringSlice("spend") {
				path, index := ref, 0
				if i := strings.LastIndexByte(ref, '#'); i >= 0 {
					n, err := strconv.Atoi(ref[i+1:])
					if err != nil {
						return cli.Exit(fmt.Sprintf("invalid --spend %q: bad output index", ref), 2)
					}
					path, index = ref[:i], n
				}
				src, err := e.readTransaction(path)
				if err != nil {
					return err
				}
				unspent = append(unspent, tx.UnspentOutput{Tx: src, OutputIndex: index})
			}
			outputs, err := e.parseOutputs(c.StringSlice("to"))
			if err != nil {
				return err
			}
			metadata, err := e.readPayload(c.String("metadata"))
			if err != nil {
				return err
			}
			t, err := tx.MakeTransferTransaction(unspent, outputs, metadata)
			if err != nil {
				return err
			}
			return e.writeCanonical(t)
		},
	}
}

func signCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign an unsigned transaction; keys pair with inputs in order",
		ArgsUsage: "<unsigned.json|->",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "key", Aliases: []string{"k"}, Usage: "Private key per input (" + keyRefHelp + ")", Required: true},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx sign --key <key> [--key ...] <unsigned.json|->", 2)
			}
			unsigned, err := e.readTransaction(c.Args().First())
			if err != nil {
				return err
			}
			privs := make([]string, 0, len(c.StringSlice("key")))
			for _, ref := range c.StringSlice("key") {
				priv, err := e.resolvePrivateKey(ref)
				if err != nil {
					return err
				}
				privs = append(privs, priv)
			}
			signed, err := e.signer().Sign(unsigned, privs)
			if err != nil {
				return err
			}
			return e.writeCanonical(signed)
		},
	}
}

func verifyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify the fulfillments and id of a signed transaction",
		ArgsUsage: "<signed.json|->",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print a per-input report"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx verify [--json] <signed.json|->", 2)
			}
			signed, err := e.readTransaction(c.Args().First())
			if err != nil {
				return err
			}
			rep := model.Inspect(signed, e.signer())
			if rep.Valid && e.cfg.ComplianceMode() == compliance.Strict {
				if err := signed.Validate(); err != nil {
					rep.Valid = false
					rep.Error = model.FromError(err)
				}
			}
			if c.Bool("json") {
				if err := e.writeJSON(rep); err != nil {
					return err
				}
			} else if rep.Valid {
				fmt.Fprintf(e.out, "OK %s\n", rep.ID)
			}
			if !rep.Valid {
				return cli.Exit(rep.Error.Error(), 1)
			}
			return nil
		},
	}
}

func idCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "id",
		Usage:     "Print the SHA3-256 id of a transaction (computed with id null)",
		ArgsUsage: "<tx.json|->",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx id <tx.json|->", 2)
			}
			t, err := e.readTransaction(c.Args().First())
			if err != nil {
				return err
			}
			id, err := signer.ComputeID(t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(e.out, id)
			return err
		},
	}
}

func canonicalizeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "canonicalize",
		Usage:     "Rewrite any JSON document in canonical form",
		ArgsUsage: "<file.json|->",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: ledgertx canonicalize <file.json|->", 2)
			}
			b, err := e.readInput(c.Args().First())
			if err != nil {
				return err
			}
			out, err := canonical.MarshalJSON(b)
			if err != nil {
				return err
			}
			_, err = e.out.Write(out)
			return err
		},
	}
}

func (e *env) writeCanonical(t tx.Transaction) error {
	b, err := canonical.Marshal(t)
	if err != nil {
		return err
	}
	_, err = e.out.Write(b)
	return err
}

func (e *env) parseOutputs(args []string) ([]tx.Output, error) {
	outputs := make([]tx.Output, 0, len(args))
	for _, arg := range args {
		ref, amount := arg, ""
		if i := strings.LastIndexByte(arg, ':'); i >= 0 {
			ref, amount = arg[:i], arg[i+1:]
			if n, err := strconv.ParseUint(amount, 10, 64); err != nil || n == 0 {
				return nil, cli.Exit(fmt.Sprintf("invalid output %q: amount must be a positive integer", arg), 2)
			}
		}
		pub, err := e.resolvePublicKey(ref)
		if err != nil {
			return nil, err
		}
		cond, err := tx.MakeEd25519Condition(pub)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, tx.MakeOutput(cond, amount))
	}
	return outputs, nil
}

// resolvePublicKey accepts a Base58 public key or @name[/role].
func (e *env) resolvePublicKey(ref string) (string, error) {
	name, role, ok := storeRef(ref)
	if !ok {
		return ref, nil
	}
	ks, err := e.keyStore()
	if err != nil {
		return "", err
	}
	return ks.ExportKey(name, role)
}

// resolvePrivateKey accepts a Base58 private key, @name[/role] or file:<path>.
func (e *env) resolvePrivateKey(ref string) (string, error) {
	if path, ok := strings.CutPrefix(ref, "file:"); ok {
		b, err := e.readInput(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	name, role, ok := storeRef(ref)
	if !ok {
		return ref, nil
	}
	ks, err := e.keyStore()
	if err != nil {
		return "", err
	}
	return ks.PrivateKey(name, role)
}

func storeRef(ref string) (name, role string, ok bool) {
	rest, ok := strings.CutPrefix(ref, "@")
	if !ok {
		return "", "", false
	}
	name, role, _ = strings.Cut(rest, "/")
	return name, role, true
}
