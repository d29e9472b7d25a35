package boltcas

import (
	"context"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "bolt",
		Description: "Single-file bbolt CAS",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "path", Help: "database file"},
			{Key: "lock-timeout", Default: "1s", Help: "how long to wait for the file lock"},
		},
		Open: func(_ context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			timeout, err := env.Settings.Duration("lock-timeout")
			if err != nil {
				return nil, nil, err
			}
			cas, err := Open(env.Settings.String("path"), timeout)
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}
