package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/omo/pkg/dreams"
)

var jsonFlag bool

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Diagnostic tools",
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print every entry, pattern usage, orphans and dangling links",
	Long:  `Read-only report of the whole journal. Links whose entry or pattern is missing are listed instead of failing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		snap, err := dreams.DebugSnapshot(cmd.Context(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to build snapshot: %w", err)
		}

		if jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		printSnapshot(snap)
		return nil
	},
}

func initDebugCmd() {
	snapshotCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the snapshot as JSON")
	debugCmd.AddCommand(snapshotCmd)
}
