package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	omo "github.com/unowned-ai/omo/pkg"
	"github.com/unowned-ai/omo/pkg/config"
	pkgdb "github.com/unowned-ai/omo/pkg/db"
	"github.com/unowned-ai/omo/pkg/logging"
	"github.com/unowned-ai/omo/pkg/utils"
)

var (
	dbPath     string
	walMode    bool
	syncMode   string
	configPath string
	logLevel   string

	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "omo",
	Short:         "A dream journal with a reusable catalog of dream patterns.",
	Version:       fmt.Sprintf("v%s", omo.Version),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for omo.

Examples:

  Bash (current shell):
    $ source <(omo completion bash)

  Zsh:
    $ omo completion zsh > "${fpath[1]}/_omo"

  Fish:
    $ omo completion fish > ~/.config/fish/completions/omo.fish

  PowerShell:
    PS> omo completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of omo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(omo.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the omo database",
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Create or upgrade the dream journal schema",
	Long: `Connects to the SQLite database and applies any schema migrations needed by the
dreamsdb component. A missing database is created and initialized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbConn, err := openDB()
		if err != nil {
			return err
		}
		defer dbConn.Close()

		version, err := pkgdb.GetComponentSchemaVersion(dbConn, pkgdb.DreamsDBComponent)
		if err != nil {
			return err
		}
		fmt.Printf("%s schema is at version %d\n", pkgdb.DreamsDBComponent, version)
		return nil
	},
}

// loadSettings resolves the effective configuration: flags override OMO_*
// variables, which override the config file, which overrides defaults.
func loadSettings(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = utils.GetDefaultConfigPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, loaded); err != nil {
		return err
	}

	l, err := logging.New(loaded.Log)
	if err != nil {
		return err
	}

	cfg = loaded
	logger = l
	logger.Debug("configuration loaded",
		zap.String("config", path),
		zap.String("db", cfg.DB.Path),
		zap.Bool("wal", cfg.DB.WAL),
		zap.String("sync", cfg.DB.Sync),
	)
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("db") {
		c.DB.Path = dbPath
	}
	if flags.Changed("wal") {
		c.DB.WAL = walMode
	}
	if flags.Changed("sync") {
		c.DB.Sync = syncMode
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	return c.Validate()
}

// openDB opens the configured database and brings its schema up to date.
func openDB() (*sql.DB, error) {
	path := cfg.DB.Path
	if path != pkgdb.MemoryDSN {
		resolved, err := utils.ResolveAndEnsureDBPath(path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	dbConn, err := pkgdb.OpenDBConnection(path, cfg.DB.WAL, cfg.DB.Sync)
	if err != nil {
		return nil, err
	}

	if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, logger); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database file (uses a system-specific default if not provided)")
	rootCmd.PersistentFlags().BoolVar(&walMode, "wal", false, "Enable SQLite WAL (Write-Ahead Logging) mode")
	rootCmd.PersistentFlags().StringVar(&syncMode, "sync", "FULL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	dbCmd.AddCommand(dbUpgradeCmd)

	initEntriesCmd()
	initPatternsCmd()
	initDebugCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, entriesCmd, patternsCmd, debugCmd, mcpCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
