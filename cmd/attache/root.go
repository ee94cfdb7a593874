package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"attache/internal/attachments"
	"attache/internal/config"
	"attache/internal/logging"
	"attache/internal/resolver"
)

// Color helpers for CLI output.
var (
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "attache",
		Short: "Manage prompt-file attachments and their reference trees",
		Long: "attache resolves prompt files and the files they transitively reference\n" +
			"into flat, ordered attachment views for chat consumers.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !isTTY() {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newServeCmd())
	return root
}

// buildDeps constructs the shared config manager, resolver and collection.
func buildDeps(cmd *cobra.Command) (*config.Manager, *attachments.Collection, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if flag := cmd.Root().PersistentFlags().Lookup("verbose"); flag != nil {
		_ = cfgMgr.Viper().BindPFlag("verbose", flag)
	}
	if cfgMgr.Verbose() {
		logging.SetLevel(logging.DEBUG)
	}

	res, err := resolver.New(resolver.Config{
		PromptSuffixes: cfgMgr.ResolverPromptSuffixes(),
		MaxDepth:       cfgMgr.ResolverMaxDepth(),
		CacheSize:      cfgMgr.ResolverCacheSize(),
		CacheTTL:       cfgMgr.ResolverCacheTTL(),
	}, logging.NewComponentLogger("Resolver"))
	if err != nil {
		return nil, nil, fmt.Errorf("create resolver: %w", err)
	}

	col := attachments.NewCollection(res,
		attachments.WithFeatureGate(cfgMgr),
		attachments.WithLogger(logging.NewComponentLogger("Collection")),
	)
	return cfgMgr, col, nil
}
