package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unowned-ai/omo/pkg/dreams"
)

var (
	categoryFlag string
	purgeFlag    bool
	excludeFlag  string
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage the pattern catalog",
	Long: fmt.Sprintf(`Create, recategorize and delete the reusable patterns attached to dreams.

Categories: %s`, categoryNames()),
}

func categoryNames() string {
	names := make([]string, 0, len(dreams.AllCategories()))
	for _, c := range dreams.AllCategories() {
		names = append(names, fmt.Sprintf("%s (%s)", c, c.DisplayName()))
	}
	return strings.Join(names, ", ")
}

var listPatternsCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns with the number of entries using each",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		usage, err := dreams.ListPatternUsage(cmd.Context(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to list patterns: %w", err)
		}

		if len(usage) == 0 {
			fmt.Println("No patterns found.")
			return nil
		}

		printPatternUsage(usage)
		return nil
	},
}

var createPatternCmd = &cobra.Command{
	Use:   "create [label]",
	Short: "Add a pattern to the catalog",
	Long:  `Add a pattern to the catalog. If the label already exists the existing pattern is kept unchanged.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := dreams.ParseCategory(categoryFlag)
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		pattern, err := dreams.CreateOrGetPattern(cmd.Context(), dbConn, args[0], category)
		if err != nil {
			return fmt.Errorf("failed to create pattern: %w", err)
		}

		printPatterns([]dreams.Pattern{pattern})
		return nil
	},
}

var categoryPatternCmd = &cobra.Command{
	Use:   "category [label] [category]",
	Short: "Change the category of a pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := dreams.ParseCategory(args[1])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		pattern, err := dreams.SetPatternCategory(cmd.Context(), dbConn, args[0], category)
		if errors.Is(err, dreams.ErrPatternNotFound) {
			return fmt.Errorf("pattern not found: %s", dreams.NormalizeLabel(args[0]))
		}
		if err != nil {
			return fmt.Errorf("failed to update pattern: %w", err)
		}

		printPatterns([]dreams.Pattern{pattern})
		return nil
	},
}

var deletePatternCmd = &cobra.Command{
	Use:   "delete [label]",
	Short: "Delete a pattern and unlink it from every entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		unlinked, err := dreams.DeletePattern(cmd.Context(), dbConn, args[0])
		if errors.Is(err, dreams.ErrPatternNotFound) {
			return fmt.Errorf("pattern not found: %s", dreams.NormalizeLabel(args[0]))
		}
		if err != nil {
			return fmt.Errorf("failed to delete pattern: %w", err)
		}

		logger.Info("pattern deleted", zap.String("label", dreams.NormalizeLabel(args[0])), zap.Int64("count", unlinked))
		fmt.Printf("Pattern '%s' deleted (unlinked from %d entries).\n", dreams.NormalizeLabel(args[0]), unlinked)
		return nil
	},
}

var orphansPatternCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List patterns no entry uses",
	Long:  `List patterns no entry uses. With --purge they are deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		var orphans []dreams.Pattern
		if purgeFlag {
			orphans, err = dreams.DeleteOrphanPatterns(cmd.Context(), dbConn)
		} else {
			orphans, err = dreams.FindOrphanPatterns(cmd.Context(), dbConn)
		}
		if err != nil {
			return fmt.Errorf("failed to process orphan patterns: %w", err)
		}

		if len(orphans) == 0 {
			fmt.Println("No orphan patterns.")
			return nil
		}

		if purgeFlag {
			logger.Info("orphan patterns deleted", zap.Int("count", len(orphans)))
			fmt.Printf("Deleted %d orphan patterns:\n", len(orphans))
		}
		printPatterns(orphans)
		return nil
	},
}

var suggestPatternCmd = &cobra.Command{
	Use:   "suggest [fragment]",
	Short: "Suggest catalog patterns matching a fragment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		patterns, err := dreams.ListPatterns(cmd.Context(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to list patterns: %w", err)
		}

		var exclude []string
		if excludeFlag != "" {
			exclude = strings.Split(excludeFlag, ",")
		}

		suggestions := dreams.PatternSuggestions(patterns, args[0], exclude)
		if len(suggestions) == 0 {
			fmt.Println("No matching patterns.")
			return nil
		}

		printPatterns(suggestions)
		return nil
	},
}

func initPatternsCmd() {
	createPatternCmd.Flags().StringVar(&categoryFlag, "category", "", "Pattern category (default other)")
	orphansPatternCmd.Flags().BoolVar(&purgeFlag, "purge", false, "Delete the orphan patterns")
	suggestPatternCmd.Flags().StringVar(&excludeFlag, "exclude", "", "Comma-separated labels already selected")

	patternsCmd.AddCommand(
		listPatternsCmd,
		createPatternCmd,
		categoryPatternCmd,
		deletePatternCmd,
		orphansPatternCmd,
		suggestPatternCmd,
	)
}
