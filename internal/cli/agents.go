package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/bravilo"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/config"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/store"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List Bravilo agents and reconcile the local mirror",
	Run:   runAgents,
}

func runAgents(cmd *cobra.Command, args []string) {
	printHeader("🤖 Agents")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}
	st, err := store.NewStore(filepath.Join(cfg.Paths.DataDir, "lente.db"))
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	apiKey := config.ResolveAPIKey("", cfg)
	client := bravilo.NewClient(apiKey, cfg.Bravilo.APIBase, cfg.Bravilo.Timeout)
	if client.DemoMode() {
		color.Yellow("⚠️ No API key configured — showing demo agents")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agents, err := client.ListAgents(ctx)
	if err != nil {
		color.Red("Remote listing failed: %v", err)
		fmt.Println("Falling back to the local mirror:")
		local, lerr := st.ListAgents(ctx)
		if lerr != nil {
			fmt.Printf("Local listing failed: %v\n", lerr)
			os.Exit(1)
		}
		for _, a := range local {
			marker := color.GreenString("active")
			if !a.IsActive {
				marker = color.RedString("inactive")
			}
			fmt.Printf("  [%d] %s (%s) %s\n", a.ID, a.Name, a.RemoteID, marker)
		}
		return
	}

	liveIDs := make([]string, 0, len(agents))
	for _, a := range agents {
		liveIDs = append(liveIDs, a.ID)
		local, err := st.EnsureLocalAgent(ctx, a.ID, a.Name, a.Description)
		if err != nil {
			fmt.Printf("Mirror error for %s: %v\n", a.ID, err)
			continue
		}
		fmt.Printf("  [%d] %s (%s)\n", local.ID, local.Name, local.RemoteID)
		if a.Description != "" {
			fmt.Printf("      %s\n", a.Description)
		}
	}

	swept, err := st.DeactivateMissing(ctx, liveIDs)
	if err != nil {
		fmt.Printf("Sweep error: %v\n", err)
		return
	}
	if swept > 0 {
		color.Yellow("Swept %d orphaned mirror(s) to inactive", swept)
	}
	fmt.Printf("\n%d agent(s)\n", len(agents))
}
