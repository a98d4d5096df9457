package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"servingbridge/internal/adapter"
	"servingbridge/internal/config"
	"servingbridge/internal/contract"
	"servingbridge/internal/resolver"
	"servingbridge/internal/types"
	"servingbridge/internal/upstream"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: servingbridge <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: chat, query, info, list")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		os.Exit(cmdChat())
	case "query":
		os.Exit(cmdQuery())
	case "info":
		os.Exit(cmdInfo())
	case "list":
		os.Exit(cmdList())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: chat, query, info, list")
		os.Exit(1)
	}
}

// stack wires the workspace client, resolver and adapter from config.
type stack struct {
	cfg     *config.Config
	client  *upstream.Client
	adapter *adapter.Adapter
}

func buildStack() (*stack, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	client := upstream.New(cfg.Host, cfg.Token, cfg.Timeout, cfg.Verbose)
	res := resolver.New(client)
	return &stack{
		cfg:     cfg,
		client:  client,
		adapter: adapter.New(res, client),
	}, nil
}

// resolveEndpointArg picks the endpoint name from the first positional
// argument, falling back to SERVING_ENDPOINT.
func resolveEndpointArg(fs *flag.FlagSet, cfg *config.Config) (string, error) {
	if fs.NArg() > 0 {
		return fs.Arg(0), nil
	}
	if cfg.Endpoint != "" {
		return cfg.Endpoint, nil
	}
	return "", fmt.Errorf("no endpoint given: pass one as an argument or set SERVING_ENDPOINT")
}

func cmdQuery() int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	message := fs.String("message", "Hello, can you hear me?", "Message to send")
	maxTokens := fs.Int("max-tokens", 0, "Maximum output tokens (default from SERVINGBRIDGE_MAX_TOKENS)")
	fs.Parse(os.Args[2:])

	st, err := buildStack()
	if err != nil {
		slog.Error("configuration error", "error", err)
		return 1
	}
	endpoint, err := resolveEndpointArg(fs, st.cfg)
	if err != nil {
		slog.Error("no endpoint", "error", err)
		return 1
	}
	tokens := *maxTokens
	if tokens <= 0 {
		tokens = st.cfg.MaxOutputTokens
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conv := types.Conversation{{Role: types.RoleUser, Content: *message}}
	result, err := st.adapter.Send(ctx, endpoint, conv, types.GenerationParams{MaxOutputTokens: tokens})
	if err != nil {
		slog.Error("query failed", "endpoint", endpoint, "error", err)
		return 1
	}
	printResult(result)
	return 0
}

func cmdChat() int {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	maxTokens := fs.Int("max-tokens", 0, "Maximum output tokens per turn")
	fs.Parse(os.Args[2:])

	st, err := buildStack()
	if err != nil {
		slog.Error("configuration error", "error", err)
		return 1
	}
	endpoint, err := resolveEndpointArg(fs, st.cfg)
	if err != nil {
		slog.Error("no endpoint", "error", err)
		return 1
	}
	tokens := *maxTokens
	if tokens <= 0 {
		tokens = st.cfg.MaxOutputTokens
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Chatting with %s. Type 'quit' or 'exit' to end the session.\n", endpoint)

	var history types.Conversation
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" || line == "q" {
			break
		}

		history = append(history, types.Message{Role: types.RoleUser, Content: line})
		result, err := st.adapter.Send(ctx, endpoint, history, types.GenerationParams{MaxOutputTokens: tokens})
		if err != nil {
			slog.Error("send failed", "endpoint", endpoint, "error", err)
			if ctx.Err() != nil {
				return 1
			}
			// Drop the unanswered turn so the next one starts clean.
			history = history[:len(history)-1]
			continue
		}

		reply := lastAssistant(result.Messages)
		if reply == "" {
			fmt.Println("No assistant response received.")
			history = history[:len(history)-1]
			continue
		}
		history = append(history, types.Message{Role: types.RoleAssistant, Content: reply})
		printResult(result)
	}
	fmt.Println("Goodbye!")
	return 0
}

func cmdInfo() int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	st, err := buildStack()
	if err != nil {
		slog.Error("configuration error", "error", err)
		return 1
	}
	endpoint, err := resolveEndpointArg(fs, st.cfg)
	if err != nil {
		slog.Error("no endpoint", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := st.client.GetEndpoint(ctx, endpoint)
	if err != nil {
		slog.Error("fetching endpoint info failed", "endpoint", endpoint, "error", err)
		return 1
	}

	fmt.Printf("Name:         %s\n", summary.Name)
	fmt.Printf("Task type:    %s\n", summary.TaskType)
	fmt.Printf("Ready:        %s\n", summary.Ready)
	if !summary.CreatedAt.IsZero() {
		fmt.Printf("Created:      %s\n", summary.CreatedAt.Local().Format("Jan 02, 2006 15:04"))
	}
	if !summary.LastUpdated.IsZero() {
		fmt.Printf("Last updated: %s\n", summary.LastUpdated.Local().Format("Jan 02, 2006 15:04"))
	}

	if contract.Supported(contract.TaskType(summary.TaskType)) {
		fmt.Println("Supported:    yes")
		return 0
	}
	fmt.Println("Supported:    no")
	names := make([]string, 0, len(contract.All()))
	for _, tt := range contract.All() {
		names = append(names, string(tt))
	}
	fmt.Printf("Supported task types: %s\n", strings.Join(names, ", "))
	return 0
}

func cmdList() int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	st, err := buildStack()
	if err != nil {
		slog.Error("configuration error", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summaries, err := st.client.ListEndpoints(ctx)
	if err != nil {
		slog.Error("listing endpoints failed", "error", err)
		return 1
	}
	if len(summaries) == 0 {
		fmt.Println("No serving endpoints found.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTASK TYPE\tREADY\tSUPPORTED")
	for _, s := range summaries {
		supported := "no"
		if contract.Supported(contract.TaskType(s.TaskType)) {
			supported = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.TaskType, s.Ready, supported)
	}
	w.Flush()
	return 0
}

// lastAssistant returns the content of the last assistant message, the way
// a chat transcript continues from a multi-message reply.
func lastAssistant(msgs []types.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant {
			return msgs[i].Content
		}
	}
	return ""
}

func printResult(result types.Result) {
	if result.Unparsed {
		fmt.Println("\n[unparsed response]")
	}
	for _, msg := range result.Messages {
		fmt.Printf("\n%s> %s\n", msg.Role, msg.Content)
	}
}
