package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/membot/membot/internal/db"
)

func newSessionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Work with the session index",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			database, err := db.Open(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("open session index: %w", err)
			}
			defer database.Close()

			sessions, err := db.NewSessionIndex(database).List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("(no sessions yet)")
				return nil
			}
			for _, s := range sessions {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%-36s  %4d msgs  %s  %s\n", s.ID, s.MessageCount,
					s.UpdatedAt.Format("2006-01-02 15:04"), title)
			}
			return nil
		},
	})

	return cmd
}
