// Package commands implements the adtrecover CLI: inspection of the
// held-lock registry and replay of unlocks after a process crash.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/internal/config"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/lockreg"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/logger"
)

var (
	cfgFile     string
	registryDir string

	log = logger.New("adtrecover")
)

var rootCmd = &cobra.Command{
	Use:   "adtrecover",
	Short: "Inspect and release ADT locks left behind by crashed processes",
	Long: `adtrecover works against the held-lock registry that operation chains
maintain while a server-side lock is held. After a crash the registry still
lists the (session, lock handle) pairs that were never released; adtrecover
can list them and replay the unlock against the system.`,
	SilenceUsage: true,
}

func Execute() error {
	defer log.Flush()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.adt/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryDir, "registry-dir", "", "lock registry directory (default from config)")
	log.AddLevelFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newReleaseCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if registryDir != "" {
		cfg.LockRegistryDir = registryDir
	}
	return cfg, nil
}

func openRegistry(cfg *config.Config) (*lockreg.FileRegistry, error) {
	return lockreg.NewFileRegistry(cfg.LockRegistryDir)
}
