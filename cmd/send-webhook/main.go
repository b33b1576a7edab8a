// Command send-webhook posts signed test deliveries to a running bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archestra-ai/reputation-bot/internal/sender"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
)

type rootFlags struct {
	cfg     sender.Config
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{cfg: sender.DefaultConfig()}

	root := &cobra.Command{
		Use:           "send-webhook",
		Short:         "Send signed GitHub webhook deliveries to a running reputation bot",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			level := "info"
			if f.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&f.cfg.BaseURL, "url", f.cfg.BaseURL, "Base URL of the bot")
	flags.StringVar(&f.cfg.Secret, "secret", os.Getenv("GITHUB_WEBHOOK_SECRET"), "Webhook secret used to sign deliveries")
	flags.StringVar(&f.cfg.Repository, "repo", f.cfg.Repository, "Repository (owner/name) put into payloads")
	flags.DurationVar(&f.cfg.Timeout, "timeout", f.cfg.Timeout, "HTTP request timeout")
	flags.UintVar(&f.cfg.HealthAttempts, "health-attempts", f.cfg.HealthAttempts, "Health checks before giving up")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newPingCmd(f),
		newPullRequestCmd(f),
		newIssuesCmd(f),
		newIssueCommentCmd(f),
	)
	return root
}

func send(cmd *cobra.Command, f *rootFlags, build func() (sender.Delivery, error)) error {
	d, err := build()
	if err != nil {
		return err
	}
	results, err := sender.Run(cmd.Context(), sender.NewClient(f.cfg), d)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", r.DeliveryID, r.StatusCode, r.Raw)
	}
	return nil
}

func newPingCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a ping delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd, f, sender.Ping)
		},
	}
}

func newPullRequestCmd(f *rootFlags) *cobra.Command {
	var (
		number int
		author string
		action string
		merged bool
	)
	cmd := &cobra.Command{
		Use:   "pull-request",
		Short: "Send a pull_request delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd, f, func() (sender.Delivery, error) {
				return sender.PullRequest(f.cfg.Repository, number, author, action, merged)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 100, "Pull request number")
	cmd.Flags().StringVar(&author, "author", "test-pr-author", "Pull request author")
	cmd.Flags().StringVar(&action, "action", "opened", "Action: opened, reopened or closed")
	cmd.Flags().BoolVar(&merged, "merged", false, "Mark a closed pull request as merged")
	return cmd
}

func newIssuesCmd(f *rootFlags) *cobra.Command {
	var (
		number int
		author string
		action string
	)
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Send an issues delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd, f, func() (sender.Delivery, error) {
				return sender.Issue(f.cfg.Repository, number, author, action)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 1849, "Issue number")
	cmd.Flags().StringVar(&author, "author", "test-author", "Issue author")
	cmd.Flags().StringVar(&action, "action", "opened", "Action: opened or reopened")
	return cmd
}

func newIssueCommentCmd(f *rootFlags) *cobra.Command {
	var (
		number    int
		author    string
		commenter string
		body      string
		onPR      bool
	)
	cmd := &cobra.Command{
		Use:   "issue-comment",
		Short: "Send an issue_comment delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd, f, func() (sender.Delivery, error) {
				return sender.IssueComment(f.cfg.Repository, number, author, commenter, body, onPR)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 1849, "Issue or pull request number")
	cmd.Flags().StringVar(&author, "author", "test-author", "Thread author")
	cmd.Flags().StringVar(&commenter, "commenter", "test-commenter", "Comment author")
	cmd.Flags().StringVar(&body, "body", "Looks good to me", "Comment body")
	cmd.Flags().BoolVar(&onPR, "pull-request", false, "The thread is a pull request")
	return cmd
}
