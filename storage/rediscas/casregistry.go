package rediscas

import (
	"context"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "redis",
		Description: "Redis CAS (shared across processes)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Options: []casregistry.Option{
			{Key: "address", Default: "localhost:6379", Help: "host:port"},
			{Key: "password"},
			{Key: "db", Default: "0"},
			{Key: "key-prefix", Help: "prefix for every key"},
		},
		Open: func(ctx context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			db, err := env.Settings.Int("db")
			if err != nil {
				return nil, nil, err
			}
			cas, err := New(ctx, Config{
				Address:   env.Settings.String("address"),
				Password:  env.Settings.String("password"),
				DB:        db,
				KeyPrefix: env.Settings.String("key-prefix"),
			}, env.Logger)
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}
