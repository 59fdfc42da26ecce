package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/internal/config"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/internal/httptransport"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/chain"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/lockreg"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

func newReleaseCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "release [objectType objectName [functionGroup]]",
		Short: "Replay unlock for recorded locks and drop their registry entries",
		Args:  cobra.RangeArgs(0, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) < 2 {
				return fmt.Errorf("specify objectType and objectName, or use --all")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireBaseURL(); err != nil {
				return err
			}
			registry, err := openRegistry(cfg)
			if err != nil {
				return err
			}

			runner, err := newRunner(cfg, registry)
			if err != nil {
				return err
			}

			if all {
				entries, err := registry.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if err := releaseOne(cmd.Context(), runner, registry, entry); err != nil {
						return err
					}
				}
				return nil
			}

			key := lockreg.Key{ObjectType: args[0], ObjectName: args[1]}
			if len(args) == 3 {
				key.FunctionGroup = args[2]
			}
			entry, found, err := registry.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no registry entry for %s %s", key.ObjectType, key.ObjectName)
			}
			return releaseOne(cmd.Context(), runner, registry, entry)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "release every recorded lock")
	return cmd
}

func newRunner(cfg *config.Config, registry lockreg.Registry) (*chain.Runner, error) {
	base, err := httptransport.New(httptransport.Options{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Client:   cfg.Client,
		Language: cfg.Language,
		Timeouts: cfg.Timeouts.Transport(),
	}, log.Logger)
	if err != nil {
		return nil, err
	}
	negotiated, err := transport.NewNegotiator(base, log.Logger)
	if err != nil {
		return nil, err
	}
	return chain.New(negotiated, log.Logger, chain.WithRegistry(registry)), nil
}

func releaseOne(ctx context.Context, runner *chain.Runner, registry lockreg.Registry, entry lockreg.Entry) error {
	ref, err := refFromEntry(entry)
	if err != nil {
		return err
	}

	state := adt.Locked(adt.LockHandle(entry.LockHandle))
	if _, err := runner.ReplayUnlock(ctx, ref, state); err != nil {
		return fmt.Errorf("unlock replay for %s failed: %w", ref.String(), err)
	}
	if err := registry.Remove(ctx, entry.Key); err != nil {
		return err
	}
	fmt.Printf("released %s\n", ref.String())
	return nil
}

func refFromEntry(entry lockreg.Entry) (adt.ObjectRef, error) {
	kind := adt.Kind(entry.ObjectType)
	if entry.FunctionGroup != "" {
		return adt.NewContainedObjectRef(kind, entry.ObjectName, entry.FunctionGroup)
	}
	return adt.NewObjectRef(kind, entry.ObjectName)
}
