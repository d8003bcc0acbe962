package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/bravilo"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/chat"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/config"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/store"
)

var (
	chatUserFlag  string
	chatAgentFlag string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive chat session with an agent",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUserFlag, "user", "", "user id (an anonymous identity is minted when empty)")
	chatCmd.Flags().StringVar(&chatAgentFlag, "agent", "", "remote agent id")
}

func runChat(cmd *cobra.Command, args []string) {
	printHeader("💬 Chat")

	if chatAgentFlag == "" {
		fmt.Println("Usage: lente chat --agent <remote-agent-id> [--user <user-id>]")
		os.Exit(1)
	}

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
		color.Yellow("⚠️ Demo mode: replies are canned echoes")
	}

	ctx := context.Background()

	userID := chatUserFlag
	if userID == "" {
		var token string
		userID, token = chat.AnonymousUserID("")
		fmt.Printf("Anonymous session (token %s)\n", token)
	}

	agentName := ""
	if agent, err := client.GetAgent(ctx, chatAgentFlag); err == nil {
		agentName = agent.Name
		if _, err := st.EnsureLocalAgent(ctx, agent.ID, agent.Name, agent.Description); err != nil {
			fmt.Printf("Mirror error: %v\n", err)
		}
	} else if errors.Is(err, bravilo.ErrAgentNotFound) {
		color.Red("Agent %q not found", chatAgentFlag)
		os.Exit(1)
	}

	svc := chat.NewService(st, client, nil)

	state, err := svc.OpenSession(ctx, userID, chatAgentFlag, agentName)
	if err != nil {
		fmt.Printf("Failed to open session: %v\n", err)
		os.Exit(1)
	}
	if state.Resumed {
		color.Green("Resumed conversation (%d messages)", len(state.Messages))
	}
	for _, m := range state.Messages {
		printTurn(m)
	}
	if state.PendingReply {
		color.Yellow("(last message is still awaiting a reply)")
	}

	fmt.Println("\nType a message, or /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		result, err := svc.SendMessage(ctx, userID, chatAgentFlag, state.ConversationID, line)
		if err != nil && result == nil {
			color.Red("Send failed: %v", err)
			continue
		}
		if err != nil {
			color.Yellow("(remote unavailable, message saved)")
		}
		printTurn(result.Assistant)
	}
	fmt.Println("Bye!")
}

func printTurn(m store.Message) {
	label := color.CyanString("agent")
	if m.Role == store.RoleUser {
		label = color.GreenString("you")
	}
	fmt.Printf("%s: %s\n", label, m.Content)
}
