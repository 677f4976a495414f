package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashutoshrp06/taskmate/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long: `View the current configuration or create a default config file.

Every setting can also be overridden from the environment, e.g.
TASKMATE_LLM_MODEL=llama3.1:8b or TASKMATE_QDRANT_ENABLED=true.`,
	Run: runConfig,
}

var (
	configInit bool
	configShow bool
	configHome bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", true, "Show current configuration")
	configCmd.Flags().BoolVar(&configHome, "home", false, "With --init, write to ~/.taskmate/config.yaml")
}

func runConfig(cmd *cobra.Command, args []string) {
	if configInit {
		initConfig()
		return
	}
	if configShow {
		showConfig()
	}
}

func initConfig() {
	path := "config.yaml"
	if configHome {
		dir, err := config.ConfigDir()
		if err != nil {
			printError("Could not locate home directory", err)
			os.Exit(1)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(path + " already exists. Use --show to view it."))
		return
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		printError("Failed to create config", err)
		os.Exit(1)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
		Render("Created " + path + " with default settings."))
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - LLM provider, endpoint and model")
	fmt.Println("  - Where tasks and conversation context are stored")
	fmt.Println("  - Optional Qdrant semantic search")
}

func showConfig() {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).
			Render(fmt.Sprintf("Could not load config (%v). Showing defaults:\n", err)))
	} else {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true).
			Render("Current Configuration:\n"))
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(string(data))

	if err := cfg.Validate(); err != nil {
		printError("Configuration is invalid", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).
		Render("\nConfig file locations (in order of precedence):"))
	for i, p := range config.SearchPaths() {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
}
