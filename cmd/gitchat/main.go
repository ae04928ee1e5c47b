package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gitchat/internal/config"
	"gitchat/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// run / parse
	treeInput string

	// batch
	batchParallel int

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gitchat",
	Short: "gitchat - talk to a code-hosting service in plain English",
	Long: `gitchat reads English commands such as "show my private repos" or
"show the followers of octocat", resolves every noun phrase to the cheapest
matching hub function and runs the verbs on the results.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runInteractiveChat,
}

// runCmd dispatches a single command
var runCmd = &cobra.Command{
	Use:   "run [words...]",
	Short: "Resolve and dispatch one command",
	Long: `Parses one English command and runs it like a chat line.

With --tree the bracketed parse is supplied directly, which needs no parser:
  gitchat run show my repos --tree "(ROOT (S (VP (VB show) (NP (PRP$ my) (NNS repos)))))"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

// parseCmd prints the phrase structure of a command
var parseCmd = &cobra.Command{
	Use:   "parse [words...]",
	Short: "Print the verb and noun phrases of a command",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

// batchCmd replays chat scripts
var batchCmd = &cobra.Command{
	Use:   "batch [script files...]",
	Short: "Run scripted chat sessions concurrently",
	Long: `Each file is one session. Lines are either plain input or
"<input> ||| <bracketed tree>"; blank lines and # comments are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

// hubCmd manages the local hub database
var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Manage the local hub database",
}

var hubSeedCmd = &cobra.Command{
	Use:   "seed [fixture.yaml]",
	Short: "Load users, repositories, gists and relations from a YAML fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runHubSeed,
}

var hubUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the users of the hub",
	Args:  cobra.NoArgs,
	RunE:  runHubUsers,
}

func init() {
	// Assigned here rather than in the literal: the hook compares against rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		// The chat owns the terminal; process logs would interleave with it.
		if cmd == rootCmd {
			logger = zap.NewNop()
		} else {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			if logger, err = zcfg.Build(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}

		if workspace == "" {
			if workspace, err = os.Getwd(); err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		path := configPath
		if path == "" {
			path = filepath.Join(workspace, ".gitchat", "config.yaml")
		}
		if cfg, err = config.Load(path); err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		if err := logging.Initialize(workspace, cfg.Logging.Options()); err != nil {
			return err
		}
		logging.Boot("gitchat %s starting (%s), parser=%s", cfg.Version, cmd.CommandPath(), cfg.Parser.Backend)
		logging.BootDebug("config %s: db=%s metrics=%t", path, cfg.Hub.DatabasePath, cfg.IsMetricsEnabled())
		logger.Debug("Configuration loaded", zap.String("path", path), zap.String("workspace", workspace))
		return nil
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.gitchat/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout of one-shot commands")

	runCmd.Flags().StringVar(&treeInput, "tree", "", "Bracketed parse of the command")
	parseCmd.Flags().StringVar(&treeInput, "tree", "", "Bracketed parse of the command")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "p", 4, "Sessions run at the same time (0: all)")

	hubCmd.AddCommand(hubSeedCmd)
	hubCmd.AddCommand(hubUsersCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(hubCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
