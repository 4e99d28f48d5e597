package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unowned-ai/omo/pkg/dreams"
)

var (
	entryTextFlag     string
	entryDateFlag     string
	entryLucidFlag    bool
	entryPatternsFlag string
	existingOnlyFlag  bool
	clueFlag          bool
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage dream entries",
	Long:  `Record, list, edit and delete dreams and the patterns attached to them.`,
}

func parseEntryID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid entry ID: %w", err)
	}
	return id, nil
}

var createEntryCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new dream",
	Long: `Record a new dream. The date defaults to the start of today.

Patterns are given as a comma-separated list of label[:category][:clue]. Labels
not yet in the catalog are added to it, e.g.

  omo entries create --text "Flying over water" --patterns "flying:action:clue,water:place"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		date := dreams.NewEntryDate(time.Now())
		if entryDateFlag != "" {
			parsed, err := dreams.ParseDate(entryDateFlag)
			if err != nil {
				return err
			}
			date = parsed
		}

		selections, err := dreams.ParseSelections(entryPatternsFlag)
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		entry, err := dreams.CreateEntryWithPatterns(cmd.Context(), dbConn, date, entryTextFlag, entryLucidFlag, selections)
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		logger.Debug("entry created", zap.String("entry_id", entry.ID.String()), zap.Int("count", len(entry.Associations)))

		printEntry(entry)
		return nil
	},
}

var getEntryCmd = &cobra.Command{
	Use:   "get [entry-id]",
	Short: "Show an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		entry, err := dreams.GetEntry(cmd.Context(), dbConn, entryID)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}

		printEntry(entry)
		return nil
	},
}

var listEntriesCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries grouped by day, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		groups, err := dreams.GroupEntriesByDay(cmd.Context(), dbConn)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(groups) == 0 {
			fmt.Println("No dreams recorded yet.")
			return nil
		}

		printDayGroups(groups)
		return nil
	},
}

var updateEntryCmd = &cobra.Command{
	Use:   "update [entry-id]",
	Short: "Edit an entry's text, date or lucidity",
	Long:  `Edit an entry in place. Only the flags given are changed; patterns are left alone.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if !flags.Changed("text") && !flags.Changed("date") && !flags.Changed("lucid") {
			return errors.New("nothing to update (use --text, --date or --lucid)")
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		current, err := dreams.GetEntry(cmd.Context(), dbConn, entryID)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}

		text, date, isLucid := current.Text, current.Date, current.IsLucid
		if flags.Changed("text") {
			text = entryTextFlag
		}
		if flags.Changed("lucid") {
			isLucid = entryLucidFlag
		}
		if flags.Changed("date") {
			if date, err = dreams.ParseDate(entryDateFlag); err != nil {
				return err
			}
		}

		entry, err := dreams.UpdateEntry(cmd.Context(), dbConn, entryID, date, text, isLucid)
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}

		fmt.Println("Entry updated successfully!")
		printEntry(entry)
		return nil
	},
}

var deleteEntriesCmd = &cobra.Command{
	Use:   "delete [entry-id...]",
	Short: "Delete one or more entries",
	Long: `Delete entries together with their pattern links. If any ID is unknown nothing is
deleted. Patterns stay in the catalog; see 'omo patterns orphans'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			id, err := parseEntryID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		deleted, err := dreams.DeleteEntries(cmd.Context(), dbConn, ids)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("nothing deleted: %w", err)
		}
		if err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}

		logger.Info("entries deleted", zap.Int64("count", deleted))
		fmt.Printf("Deleted %d entries.\n", deleted)
		return nil
	},
}

var setPatternsCmd = &cobra.Command{
	Use:   "set-patterns [entry-id] [patterns]",
	Short: "Replace all patterns of an entry",
	Long: `Replace the entry's pattern set with the given comma-separated list of
label[:category][:clue]. An empty list removes every link.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		var raw string
		if len(args) == 2 {
			raw = args[1]
		}
		selections, err := dreams.ParseSelections(raw)
		if err != nil {
			return err
		}
		if existingOnlyFlag {
			selections = dreams.AsExisting(selections)
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		associations, err := dreams.SetAssociations(cmd.Context(), dbConn, entryID, selections)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to set patterns: %w", err)
		}

		fmt.Println(formatPatterns(associations))
		return nil
	},
}

var addPatternCmd = &cobra.Command{
	Use:   "add-pattern [entry-id] [label]",
	Short: "Link an existing pattern to an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		added, err := dreams.AddAssociation(cmd.Context(), dbConn, entryID, args[1], clueFlag)
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if errors.Is(err, dreams.ErrPatternNotFound) {
			return fmt.Errorf("pattern not found: %s", dreams.NormalizeLabel(args[1]))
		}
		if err != nil {
			return fmt.Errorf("failed to add pattern: %w", err)
		}

		if !added {
			fmt.Printf("Entry already has pattern '%s'.\n", dreams.NormalizeLabel(args[1]))
			return nil
		}
		fmt.Printf("Pattern '%s' added.\n", dreams.NormalizeLabel(args[1]))
		return nil
	},
}

var removePatternCmd = &cobra.Command{
	Use:   "remove-pattern [entry-id] [label]",
	Short: "Unlink a pattern from an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		removed, err := dreams.RemoveAssociation(cmd.Context(), dbConn, entryID, args[1])
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to remove pattern: %w", err)
		}

		if !removed {
			fmt.Printf("Entry has no pattern '%s'.\n", dreams.NormalizeLabel(args[1]))
			return nil
		}
		fmt.Printf("Pattern '%s' removed.\n", dreams.NormalizeLabel(args[1]))
		return nil
	},
}

var toggleClueCmd = &cobra.Command{
	Use:   "toggle-clue [entry-id] [label]",
	Short: "Flip whether a linked pattern is a recognition clue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entryID, err := parseEntryID(args[0])
		if err != nil {
			return err
		}

		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		toggled, err := dreams.ToggleRecognitionClue(cmd.Context(), dbConn, entryID, args[1])
		if errors.Is(err, dreams.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to toggle recognition clue: %w", err)
		}
		if !toggled {
			return fmt.Errorf("entry has no pattern '%s'", dreams.NormalizeLabel(args[1]))
		}

		associations, err := dreams.ListAssociationsForEntry(cmd.Context(), dbConn, entryID)
		if err != nil {
			return err
		}
		fmt.Println(formatPatterns(associations))
		return nil
	},
}

func initEntriesCmd() {
	createEntryCmd.Flags().StringVar(&entryTextFlag, "text", "", "Dream narrative")
	createEntryCmd.Flags().StringVar(&entryDateFlag, "date", "", "Day of the dream (YYYY-MM-DD or RFC3339, default today)")
	createEntryCmd.Flags().BoolVar(&entryLucidFlag, "lucid", false, "Mark the dream as lucid")
	createEntryCmd.Flags().StringVar(&entryPatternsFlag, "patterns", "", "Comma-separated label[:category][:clue] list")

	updateEntryCmd.Flags().StringVar(&entryTextFlag, "text", "", "New dream narrative")
	updateEntryCmd.Flags().StringVar(&entryDateFlag, "date", "", "New day (YYYY-MM-DD or RFC3339)")
	updateEntryCmd.Flags().BoolVar(&entryLucidFlag, "lucid", false, "Set lucidity")

	setPatternsCmd.Flags().BoolVar(&existingOnlyFlag, "existing-only", false, "Fail instead of adding unknown patterns to the catalog")
	addPatternCmd.Flags().BoolVar(&clueFlag, "clue", false, "Mark the pattern as a recognition clue")

	entriesCmd.AddCommand(
		createEntryCmd,
		getEntryCmd,
		listEntriesCmd,
		updateEntryCmd,
		deleteEntriesCmd,
		setPatternsCmd,
		addPatternCmd,
		removePatternCmd,
		toggleClueCmd,
	)
}
