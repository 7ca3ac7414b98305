package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomyedwab/opsql/bridge"
)

var pathCmd = &cobra.Command{
	Use:   "path <name> [location]",
	Short: "Print the resolved path of a database",
	Long: `Prints the path getDbPath would return for the named database: the base
path joined with the name, ":memory:", an absolute location unchanged, or a
relative location appended to the base path.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		override := ""
		if len(args) > 1 {
			override = args[1]
		}
		fmt.Println(bridge.DBPath(cfg.BasePath, args[0], override))
		return nil
	},
}
