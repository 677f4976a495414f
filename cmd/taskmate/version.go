package main

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	fmt.Println(titleStyle.Render("taskmate"))
	fmt.Println()
	for _, row := range [][2]string{
		{"Version:", Version},
		{"Git Commit:", GitCommit},
		{"Build Date:", BuildDate},
		{"Go Version:", runtime.Version()},
		{"Platform:", runtime.GOOS + "/" + runtime.GOARCH},
	} {
		fmt.Printf("%s %s\n", labelStyle.Render(row[0]), valueStyle.Render(row[1]))
	}
}
