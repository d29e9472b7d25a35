package localfs

import (
	"context"
	"fmt"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "dir", Help: "CAS root directory"},
		},
		Open: func(_ context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			dir := env.Settings.String("dir")
			if dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing setting dir")
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
