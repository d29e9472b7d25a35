package grpccas

import (
	"context"
	"fmt"
	"strings"

	"ledgertx.io/ledgertx/storage"
	"ledgertx.io/ledgertx/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC CAS client (talks to ledgertx-casd)",
		Usage:       casregistry.UsageCLI,
		Options: []casregistry.Option{
			{Key: "target", Help: "host:port of the CAS daemon"},
			{Key: "dial-timeout", Default: "5s"},
			{Key: "timeout", Default: "0s", Help: "per-RPC timeout (0 disables)"},
			{Key: "max-msg-bytes", Default: "0", Help: "max message size; 0 uses grpc defaults"},
		},
		Open: func(ctx context.Context, env casregistry.Env) (storage.CAS, func() error, error) {
			target := strings.TrimSpace(env.Settings.String("target"))
			if target == "" {
				return nil, nil, fmt.Errorf("grpccas: missing setting target")
			}
			dialTimeout, err := env.Settings.Duration("dial-timeout")
			if err != nil {
				return nil, nil, err
			}
			timeout, err := env.Settings.Duration("timeout")
			if err != nil {
				return nil, nil, err
			}
			maxMsg, err := env.Settings.Int("max-msg-bytes")
			if err != nil {
				return nil, nil, err
			}
			client, err := Dial(ctx, target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsg})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = timeout
			return client, client.Close, nil
		},
	})
}
