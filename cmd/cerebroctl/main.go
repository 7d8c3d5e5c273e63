// Command cerebroctl is a management CLI for a running cerebrod.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cerebro-io/cerebro/internal/config"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "chat":
		cmdChat(os.Args[2:])
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: cerebroctl tickets <list|show|set-status>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList()
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: cerebroctl tickets show <id>")
				os.Exit(1)
			}
			cmdTicketsShow(os.Args[3])
		case "set-status":
			if len(os.Args) < 5 {
				fmt.Fprintln(os.Stderr, "usage: cerebroctl tickets set-status <id> <status>")
				os.Exit(1)
			}
			cmdTicketsSetStatus(os.Args[3], os.Args[4])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "kb":
		if len(os.Args) < 3 || os.Args[2] != "search" {
			fmt.Fprintln(os.Stderr, "usage: cerebroctl kb search [--q query] [--app application]")
			os.Exit(1)
		}
		cmdKBSearch(os.Args[3:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: cerebroctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- chat command ---

func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	conversationID := fs.String("conversation", "", "Conversation ID (default: new)")
	message := fs.String("message", "", "Single message (omit for interactive)")
	fs.Parse(args)

	conv := *conversationID
	if conv == "" {
		conv = uuid.NewString()
	}

	send := func(text string) {
		body, err := apiPost("/api/send-message", map[string]string{
			"conversationId": conv,
			"content":        text,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		var resp struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.Unmarshal(body, &resp)
		for _, m := range resp.Messages {
			if m.Role == "user" {
				continue
			}
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
	}

	if *message != "" {
		send(*message)
		return
	}

	fmt.Printf("cerebroctl chat (conversation %s, type 'quit' to exit)\n\n", conv)
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
		if line == "quit" || line == "exit" {
			break
		}
		send(line)
		fmt.Println()
	}
}

// --- API client commands ---

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdTicketsList() {
	body, err := apiGet("/api/tickets")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var tickets []map[string]any
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		fmt.Printf("#%v %-12s %-20s %s\n", t["ticketNumber"], t["status"], t["application"], t["description"])
	}
}

func cmdTicketsShow(id string) {
	body, err := apiGet("/api/tickets/" + id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdTicketsSetStatus(id, status string) {
	body, err := apiRequest(http.MethodPatch, "/api/tickets/"+id+"/status", map[string]string{"status": status})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdKBSearch(args []string) {
	fs := flag.NewFlagSet("kb search", flag.ExitOnError)
	q := fs.String("q", "", "Search query")
	app := fs.String("app", "", "Filter by application")
	fs.Parse(args)

	query := url.Values{}
	query.Set("q", *q)
	if *app != "" {
		query.Set("app", *app)
	}

	body, err := apiGet("/api/kb/search?" + query.Encode())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var articles []map[string]any
	json.Unmarshal(body, &articles)
	for _, a := range articles {
		fmt.Printf("%-36s %-20s %s\n", a["id"], a["application"], a["title"])
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (debug|info|warn|error)")
	limit := fs.Int("limit", 50, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%-24v %-5v %v\n", e["time"], e["level"], e["message"])
	}
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiRequest(http.MethodGet, path, nil)
}

func apiPost(path string, payload any) ([]byte, error) {
	return apiRequest(http.MethodPost, path, payload)
}

func apiRequest(method, path string, payload any) ([]byte, error) {
	base := envOr("CEREBRO_API_URL", "http://localhost:8080")

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("cerebroctl - helpdesk management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                         Check daemon health")
	fmt.Println("  chat                           Talk to the assistant (--conversation, --message)")
	fmt.Println("  tickets list                   List tickets")
	fmt.Println("  tickets show <id>              Show ticket details")
	fmt.Println("  tickets set-status <id> <s>    Update ticket status")
	fmt.Println("  kb search                      Search knowledge base (--q, --app)")
	fmt.Println("  logs                           Tail daemon logs (--level, --limit)")
	fmt.Println("  config validate <path>         Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  CEREBRO_API_URL  Daemon URL (default: http://localhost:8080)")
}
