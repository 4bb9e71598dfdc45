package migrate

import (
	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration of the capture store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := util.SetupLogger(); err != nil {
				return err
			}
			// wait for database
			if err := util.WaitForServices(cmd.Context(), true, false); err != nil {
				return err
			}
			log.Info("Migrating database")
			if err := migrate.MigrateDb(config.DB); err != nil {
				return err
			}
			log.Info("Migration done")
			return nil
		},
	}
	return cmd
}
