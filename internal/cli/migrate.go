package cli

import (
	"github.com/spf13/cobra"

	"quiz-master/pkg/database"
)

func migrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.close()

			if err := database.Migrate(a.db); err != nil {
				a.log.WithError(err).Error("Migration failed")
				return err
			}
			a.log.Info("Schema is up to date")
			return nil
		},
	}
}
