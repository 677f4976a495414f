package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ashutoshrp06/taskmate/internal/agent"
	"github.com/ashutoshrp06/taskmate/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tools the assistant calls on your behalf.

Examples:
  taskmate tools           # List all tools
  taskmate tools --verbose # Show parameters`,
	Run: func(cmd *cobra.Command, args []string) {
		runTools()
	},
}

func runTools() {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	toolStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	cfg, err := loadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	// Listing tools needs the store but never the model or the index.
	cfg.Qdrant.Enabled = false
	a, err := agent.New(agent.Config{AppConfig: cfg, Logger: zap.NewNop()})
	if err != nil {
		printError("Failed to initialize agent", err)
		os.Exit(1)
	}
	defer a.Close()

	infos := a.ListTools()

	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println()

	for _, info := range infos {
		fmt.Printf("  %s\n", toolStyle.Render(info.Name))
		fmt.Printf("    %s\n", descStyle.Render(info.Description))

		if verbose && len(info.Parameters) > 0 {
			fmt.Println("    Parameters:")
			for _, p := range info.Parameters {
				req := ""
				if p.Required {
					req = " (required)"
				}
				fmt.Printf("      %s %s%s\n", paramStyle.Render(p.Name), descStyle.Render(p.Type), req)
				if p.Description != "" {
					fmt.Printf("        %s\n", descStyle.Render(p.Description))
				}
				if len(p.Enum) > 0 {
					fmt.Printf("        %s\n", descStyle.Render("one of: "+strings.Join(p.Enum, ", ")))
				}
			}
		}
	}
	fmt.Println()

	fmt.Println(descStyle.Render(fmt.Sprintf("  Total: %d tools available", len(infos))))
	if !verbose {
		fmt.Println(descStyle.Render("  Use --verbose for parameter details"))
	}
}
