package badgercas

import (
	"context"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "badger",
		Description: "Embedded Badger key-value CAS",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "dir", Help: "database directory"},
			{Key: "in-memory", Default: "false", Help: "keep data in memory only"},
			{Key: "gc-interval", Default: "5m", Help: "value log GC interval (0 disables)"},
		},
		Open: func(_ context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			inMem, err := env.Settings.Bool("in-memory")
			if err != nil {
				return nil, nil, err
			}
			gc, err := env.Settings.Duration("gc-interval")
			if err != nil {
				return nil, nil, err
			}
			cas, err := Open(Options{Dir: env.Settings.String("dir"), InMemory: inMem, GCInterval: gc}, env.Logger)
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}
