package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/membot/membot/internal/memory"
)

func newMemoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and edit the long-term memory file",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	openStore := func() (*memory.Store, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		return memory.NewStore(cfg.MemoryPath(), cfg.Memory.MaxLines), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print all memory lines with their 1-based positions",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				lines, err := store.Lines()
				if err != nil {
					return err
				}
				if len(lines) == 0 {
					fmt.Println("(memory is empty)")
					return nil
				}
				for i, line := range lines {
					fmt.Printf("%3d. %s\n", i+1, line)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <fact>",
			Short: "Append one fact, skipping exact duplicates",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				added, err := store.Append(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if !added {
					fmt.Println("Already remembered.")
					return nil
				}
				fmt.Println("Remembered.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <position>",
			Short: "Remove the line at the given 1-based position",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pos, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("position must be a number: %q", args[0])
				}
				store, err := openStore()
				if err != nil {
					return err
				}
				removed, err := store.RemoveAt(pos)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no memory line at position %d", pos)
				}
				fmt.Println("Removed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every memory line",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Println("Memory cleared.")
				return nil
			},
		},
	)

	return cmd
}
