package ipfs

import (
	"context"
	"os"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local IPFS repository via the Kubo CLI",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "bin", Default: "ipfs", Help: "path to the ipfs binary"},
			{Key: "repo", Help: "IPFS_PATH to use (defaults to the environment)"},
		},
		Open: func(_ context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			opts := Options{Bin: env.Settings.String("bin")}
			if repo := env.Settings.String("repo"); repo != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+repo)
			}
			return New(opts), nil, nil
		},
	})
}
