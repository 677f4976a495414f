package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/agent"
	"github.com/ashutoshrp06/taskmate/internal/config"
	"github.com/ashutoshrp06/taskmate/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	verbose     bool
	interactive bool
	userID      string
	jsonOutput  bool
	showTools   bool
)

var rootCmd = &cobra.Command{
	Use:   "taskmate [message]",
	Short: "A task assistant you talk to in plain words",
	Long: `
  taskmate keeps your tasks, the people they involve and your weekly
  review in a local database, and lets you manage them in plain words.

Usage:
  taskmate "buy milk"
  taskmate "what's due this week?"
  taskmate --it`,

	Run: func(cmd *cobra.Command, args []string) {
		if interactive {
			runInteractive()
			return
		}
		if len(args) > 0 {
			runOneShot(args)
			return
		}
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&interactive, "it", false, "Start interactive mode")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the turn as JSON (one-shot mode)")
	rootCmd.Flags().BoolVar(&showTools, "show-tools", false, "Show the tool calls made (one-shot mode)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&userID, "user", agent.DefaultUserID, "User whose conversation context to use")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func runInteractive() {
	a := initAgent(true)
	defer a.Close()
	if err := ui.Run(a); err != nil {
		printError("UI failed", err)
		os.Exit(1)
	}
}

func runOneShot(args []string) {
	query := strings.Join(args, " ")
	a := initAgent(false)
	defer a.Close()

	if !jsonOutput {
		if err := ui.RunOneShot(a, query, showTools || verbose); err != nil {
			printError("Request failed", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	event, err := a.ProcessQuery(ctx, query)
	if err != nil {
		printError("Request failed", err)
		os.Exit(1)
	}
	out, err := ui.FormatJSON(*event)
	if err != nil {
		printError("Could not encode result", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// initAgent loads config, checks LLM connectivity, and returns a ready agent.
// Progress is only printed for interactive sessions so one-shot output
// stays clean.
func initAgent(chatty bool) *agent.Agent {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		printError("Invalid configuration", err)
		os.Exit(1)
	}

	logger := createLogger(cfg)

	a, err := agent.New(agent.Config{
		AppConfig: cfg,
		Logger:    logger,
		UserID:    userID,
	})
	if err != nil {
		printError("Failed to initialize agent", err)
		os.Exit(1)
	}

	if chatty {
		fmt.Print(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Connecting to LLM... "))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Ping(ctx); err != nil {
		if chatty {
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗"))
			fmt.Println()
		}
		logger.Debug("Ping failed", zap.Error(err))
		printConnectionHelp(cfg)
		a.Close()
		os.Exit(1)
	}
	if chatty {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓"))
		fmt.Printf("Using model: %s\n", a.LLMInfo())
	}

	return a
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(config.SearchPaths()...)
}

func createLogger(cfg *config.Config) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel())
	zc.OutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printError(msg string, err error) {
	fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

func printConnectionHelp(cfg *config.Config) {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	fmt.Println(errStyle.Render("Could not connect to LLM at " + cfg.LLM.Endpoint))
	fmt.Println()
	if cfg.LLM.Provider != "openai" {
		fmt.Println(helpStyle.Render("Make sure Ollama is running and the model is pulled:"))
		fmt.Println(cmdStyle.Render("  ollama serve"))
		fmt.Println(cmdStyle.Render("  ollama pull " + cfg.LLM.Model))
		fmt.Println()
	}
	fmt.Println(helpStyle.Render("Or configure a different endpoint:"))
	fmt.Println(cmdStyle.Render("  taskmate config --init, then set llm.endpoint"))
	fmt.Println(cmdStyle.Render("  or export TASKMATE_LLM_ENDPOINT=http://host:port"))
}
