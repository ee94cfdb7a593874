package main

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"attache/internal/attachments"
)

func newResolveCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve <file>...",
		Short: "Attach prompt files and print their resolved attachment views",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, col, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer col.Close()

			if !cfgMgr.PromptFilesEnabled() {
				return fmt.Errorf("prompt file attachments are disabled in configuration")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path %s: %w", arg, err)
				}
				uri := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
				if existed := col.Add(ctx, uri); existed {
					fmt.Printf("%s %s\n", gray("skipped duplicate"), arg)
				}
			}

			if err := col.AllSettled(ctx); err != nil {
				return fmt.Errorf("wait for resolution: %w", err)
			}

			printVariables(col)
			printReferences(col)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "maximum time to wait for resolution")
	return cmd
}

func printVariables(col *attachments.Collection) {
	vars := col.ChatVariables()
	fmt.Printf("%s\n", bold(fmt.Sprintf("Attachments (%d entries)", len(vars))))
	for _, v := range vars {
		if attachments.IsPromptFileVariable(v) {
			fmt.Printf("  %s %s\n", green(v.Name), gray(v.ID))
			continue
		}
		fmt.Printf("  %s %s\n", cyan(v.Name), gray(v.ID))
	}
}

func printReferences(col *attachments.Collection) {
	refs := col.References()
	fmt.Printf("%s\n", bold(fmt.Sprintf("References (%d URIs)", len(refs))))
	for _, ref := range refs {
		fmt.Printf("  %s\n", ref.String())
	}
}
