package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/chatcmd/chatcmd/internal/config"
	"github.com/chatcmd/chatcmd/internal/lookup"
	"github.com/chatcmd/chatcmd/internal/provider"
	"github.com/chatcmd/chatcmd/internal/registry"
	"github.com/chatcmd/chatcmd/internal/store"
	"github.com/chatcmd/chatcmd/internal/tools"
	"github.com/chatcmd/chatcmd/internal/ui"
	"github.com/fatih/color"

	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	debug          bool
	noCopy         bool
	modelOverride  string
	historyCount   int
	statsDays      int
	passwordLength int
	uuidV1         bool
	baseURL        string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "chatcmd",
		Short:   "Generate CLI commands and SQL queries from natural language",
		Long:    "chatcmd turns plain-English requests into shell commands or SQL queries using your choice of AI provider, with sanitization and safety checks before anything reaches your clipboard",
		Version: version,
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	lookupCmd := &cobra.Command{
		Use:     "lookup",
		Aliases: []string{"l"},
		Short:   "Look up a CLI command from a natural language prompt",
		RunE:    runLookup,
	}
	lookupCmd.Flags().BoolVar(&noCopy, "no-copy", false, "Do not copy the result to the clipboard")
	lookupCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Use a specific model for this lookup")

	sqlCmd := &cobra.Command{
		Use:   "sql",
		Short: "Write a SQL query from a natural language prompt",
		RunE:  runSQL,
	}
	sqlCmd.Flags().BoolVar(&noCopy, "no-copy", false, "Do not copy the result to the clipboard")
	sqlCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Use a specific model for this query")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List supported AI models and their availability",
		RunE:  runModels,
	}

	setModelCmd := &cobra.Command{
		Use:   "set-model <model>",
		Short: "Set the active AI model",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetModel,
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetKey,
	}
	setKeyCmd.Flags().StringVar(&baseURL, "base-url", "", "Override the provider endpoint (mainly for ollama)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lookups",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 10, "Number of entries to show")

	deleteLastCmd := &cobra.Command{
		Use:   "delete-last",
		Short: "Delete the most recent history entry",
		RunE:  runDeleteLast,
	}

	clearHistoryCmd := &cobra.Command{
		Use:   "clear-history",
		Short: "Delete all history entries",
		RunE:  runClearHistory,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show model performance statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "Window in days")

	uuidCmd := &cobra.Command{
		Use:   "uuid",
		Short: "Generate a UUID",
		RunE:  runUUID,
	}
	uuidCmd.Flags().BoolVar(&uuidV1, "v1", false, "Generate a time-based UUID instead of a random one")

	passwordCmd := &cobra.Command{
		Use:   "password",
		Short: "Generate a random password",
		RunE:  runPassword,
	}
	passwordCmd.Flags().IntVarP(&passwordLength, "length", "n", 16, "Password length")

	portCmd := &cobra.Command{
		Use:   "port",
		Short: "Look up the service behind a port number",
		RunE:  runPort,
	}

	colorCmd := &cobra.Command{
		Use:   "color-code",
		Short: "Look up the HEX code for a color",
		RunE:  runColorCode,
	}

	rootCmd.AddCommand(lookupCmd, sqlCmd, modelsCmd, setModelCmd, setKeyCmd,
		historyCmd, deleteLastCmd, clearHistoryCmd, statsCmd,
		uuidCmd, passwordCmd, portCmd, colorCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the database under the user's home directory.
func openStore() (*store.Store, error) {
	dbPath, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	return store.Open(dbPath)
}

// newOrchestrator wires the production collaborators: SQLite store, the
// adapter factory, survey input, and the system clipboard.
func newOrchestrator(st *store.Store) *lookup.Orchestrator {
	cfg, err := config.Load()
	if err != nil {
		ui.Warnf("could not load config: %v", err)
		cfg = &config.Config{}
	}
	if cfg.NoCopy {
		noCopy = true
	}
	return lookup.New(st, provider.NewFactory(), lookup.Options{
		Clipboard:     clipboard.WriteAll,
		OllamaBaseURL: cfg.OllamaBaseURL,
		Debug:         debug,
	})
}

func runLookup(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	return newOrchestrator(st).LookupCommand(context.Background(), noCopy, modelOverride)
}

func runSQL(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	return newOrchestrator(st).LookupSQL(context.Background(), noCopy, modelOverride)
}

func runModels(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	newOrchestrator(st).ListModels()
	return nil
}

func runSetModel(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	newOrchestrator(st).SetModel(args[0])
	return nil
}

func runSetKey(cmd *cobra.Command, args []string) error {
	providerName := strings.ToLower(strings.TrimSpace(args[0]))
	known := false
	for _, p := range registry.Providers() {
		if string(p) == providerName {
			known = true
			break
		}
	}
	if !known {
		ui.ShowError(fmt.Sprintf("Unknown provider %q", providerName))
		ui.ShowInfo("Supported providers: " + providerList())
		return nil
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	apiKey := ""
	if providerName != string(registry.ProviderOllama) {
		apiKey, err = ui.PromptSecret("API key for " + providerName)
		if err != nil {
			return err
		}
		if apiKey == "" {
			ui.ShowError("No API key entered")
			return nil
		}
	}

	if err := st.SetCredential(providerName, apiKey, baseURL); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	ui.ShowSuccess("Credential saved for " + providerName)
	return nil
}

func providerList() string {
	var names []string
	for _, p := range registry.Providers() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	entries, err := st.LastCommands(historyCount)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		ui.ShowInfo("No history yet.")
		return nil
	}

	ui.ShowSection("Recent lookups")
	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		fmt.Printf("  %s\n", e.Command)
		meta := e.Prompt
		if e.ModelName != "" {
			meta += "  [" + e.ModelName + "]"
		}
		gray.Printf("    %s\n", meta)
	}
	fmt.Println()
	return nil
}

func runDeleteLast(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	if err := st.DeleteLastCommand(); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	ui.ShowSuccess("Deleted the most recent history entry")
	return nil
}

func runClearHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	count, err := st.HistoryCount()
	if err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	if count == 0 {
		ui.ShowInfo("History is already empty.")
		return nil
	}

	confirmed, err := ui.PromptYesNo(fmt.Sprintf("Delete all %d history entries?", count), false)
	if err != nil {
		return err
	}
	if !confirmed {
		ui.ShowInfo("Cancelled.")
		return nil
	}

	deleted, err := st.ClearHistory()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	ui.ShowSuccess(fmt.Sprintf("Deleted %d entries", deleted))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	stats, err := newOrchestrator(st).PerformanceStats(statsDays)
	if err != nil {
		return err
	}

	ui.ShowSection(fmt.Sprintf("Performance (last %d days)", statsDays))
	fmt.Printf("  Requests:  %d (%d ok, %d failed)\n", stats.TotalRequests, stats.SuccessCount, stats.FailureCount)
	if stats.AvgResponseTime > 0 {
		fmt.Printf("  Avg time:  %.2fs\n", stats.AvgResponseTime)
	}
	if len(stats.ModelsUsed) > 0 {
		fmt.Printf("  Models:    %s\n", strings.Join(stats.ModelsUsed, ", "))
	}
	fmt.Println()
	return nil
}

func runUUID(cmd *cobra.Command, args []string) error {
	if uuidV1 {
		id, err := tools.NewUUIDv1()
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	}
	fmt.Println(tools.NewUUIDv4())
	return nil
}

func runPassword(cmd *cobra.Command, args []string) error {
	password, err := tools.RandomPassword(passwordLength)
	if err != nil {
		return err
	}
	fmt.Println(password)
	if err := clipboard.WriteAll(password); err == nil {
		ui.ShowInfo("Copied to clipboard.")
	}
	return nil
}

func runPort(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	return newOrchestrator(st).PortLookup(context.Background())
}

func runColorCode(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	return newOrchestrator(st).ColorCode(context.Background())
}
