// Package main provides faqctl, the terminal front end of the FAQ bot:
// an interactive chat loop and knowledge base administration.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"faqbot/internal/bootstrap"
	"faqbot/internal/models"
	"faqbot/internal/service"
	"faqbot/pkg/config"
	"faqbot/pkg/logger"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1D4ED8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// app holds everything a subcommand needs. It is built lazily so --help works
// without a configuration.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	stores    *bootstrap.Stores
	engine    *bootstrap.Engine
	knowledge *service.KnowledgeService
	chat      *service.ChatService
}

func newApp(ctx context.Context, verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	appLogger, err := logger.New(level, "console")
	if err != nil {
		return nil, err
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, appLogger)
	if err != nil {
		return nil, err
	}
	kb, err := bootstrap.LoadKnowledgeBase(ctx, stores.Knowledge, cfg.Knowledge.CreateDefault, appLogger)
	if err != nil {
		stores.Close()
		return nil, err
	}
	engine, err := bootstrap.NewEngine(ctx, cfg, kb, appLogger)
	if err != nil {
		stores.Close()
		return nil, err
	}

	knowledge := service.NewKnowledgeService(stores.Knowledge, engine.Matcher, appLogger)
	engine.Track(knowledge)

	seed := cfg.Chat.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	chat := service.NewChatService(engine.Matcher, nil, rand.New(rand.NewSource(seed)), cfg.Chat.HistorySize, appLogger)

	return &app{
		cfg:       cfg,
		logger:    appLogger,
		stores:    stores,
		engine:    engine,
		knowledge: knowledge,
		chat:      chat,
	}, nil
}

func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Warn("Failed to close engine", zap.Error(err))
	}
	a.stores.Close()
	logger.Sync(a.logger)
}

func main() {
	var verbose bool

	withApp := func(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd, a, args)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "faqctl",
		Short: "Chat with the legal announcements assistant and manage its knowledge base",
		Long: titleStyle.Render("faqctl") + `

Terminal front end of the FAQ bot:
• Chat interactively with the assistant
• Inspect how an utterance is matched
• Add, list and delete categories and FAQ entries

` + dimStyle.Render("Use 'faqctl [command] --help' for more information."),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.chat)
		}),
	}

	var explain bool
	matchCmd := &cobra.Command{
		Use:   "match [text]",
		Short: "Show which entry an utterance matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			return printMatch(cmd.Context(), cmd.OutOrStdout(), a.engine.Matcher, strings.Join(args, " "), explain)
		}),
	}
	matchCmd.Flags().BoolVar(&explain, "explain", false, "print the per-entry score breakdown")

	var (
		listKind string
		query    string
	)
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "List or search knowledge base entries",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			kind := models.KindNone
			if listKind != "" {
				k, err := models.ParseKind(listKind)
				if err != nil {
					return err
				}
				kind = k
			}
			printEntries(cmd.OutOrStdout(), a.knowledge, kind, query)
			return nil
		}),
	}
	entriesCmd.Flags().StringVar(&listKind, "kind", "", "category or faq")
	entriesCmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy search query")

	var form entryForm
	addCategoryCmd := &cobra.Command{
		Use:   "add-category",
		Short: "Add or replace a category",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			return saveEntry(cmd, a.knowledge, models.KindCategory, form.category())
		}),
	}
	form.bind(addCategoryCmd, true)

	var faqForm entryForm
	addFaqCmd := &cobra.Command{
		Use:   "add-faq",
		Short: "Add or replace a FAQ entry",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			return saveEntry(cmd, a.knowledge, models.KindFaq, faqForm.faq())
		}),
	}
	faqForm.bind(addFaqCmd, false)

	deleteCmd := &cobra.Command{
		Use:   "delete [kind] [id]",
		Short: "Delete a category or FAQ entry",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			kind, err := models.ParseKind(args[0])
			if err != nil {
				return err
			}
			if err := a.knowledge.Delete(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Entry deleted"))
			return nil
		}),
	}

	rootCmd.AddCommand(chatCmd, matchCmd, entriesCmd, addCategoryCmd, addFaqCmd, deleteCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
