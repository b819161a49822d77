package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sengol-ai/question-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Cache.Enabled {
			return eris.New("cache is disabled in config")
		}

		st, err := cache.NewStore(cfg.Cache.Path)
		if err != nil {
			return eris.Wrap(err, "open search cache")
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "migrate search cache")
		}

		n, err := st.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		zap.L().Info("cache purged", zap.Int64("removed", n))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
