// Command publerctl is a thin command-line front end for the Publer API.
//
// Credentials come from PUBLER_API_KEY, or a TOML config file given with
// --config. Subcommands:
//
//	publerctl workspaces
//	publerctl accounts [--workspace <id>]
//	publerctl post --text <text> --account <id> [--account <id>...] [--wait]
//	publerctl job <job-id> [--wait]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/publer-community/publer-go"
	"github.com/publer-community/publer-go/internal/logutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "publerctl:", err)
		os.Exit(1)
	}
}

func run() error {
	flags := flag.NewFlagSet("publerctl", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a TOML config file")
	workspace := flags.String("workspace", "", "workspace id to scope requests to")
	logLevel := flags.String("log-level", "", "log verbosity (debug, info, warn, error)")
	text := flags.String("text", "", "post text (post subcommand)")
	accounts := flags.StringArray("account", nil, "account id to publish to (repeatable)")
	scheduledAt := flags.String("at", "", "schedule time, ISO 8601 (post subcommand)")
	draft := flags.Bool("draft", false, "create the post as a draft")
	wait := flags.Bool("wait", false, "poll the resulting job until it finishes")

	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: publerctl [flags] <workspaces|accounts|post|job> [args]")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		return fmt.Errorf("missing subcommand")
	}

	var cfg publer.Config
	cfg.Logger = newLogger(*logLevel)
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return err
		}
	}
	if *workspace != "" {
		cfg.WorkspaceID = *workspace
	}

	client, err := publer.NewFromEnv(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "workspaces":
		return cmdWorkspaces(ctx, client)
	case "accounts":
		return cmdAccounts(ctx, client, *workspace)
	case "post":
		return cmdPost(ctx, client, postArgs{
			text: *text, accounts: *accounts, at: *scheduledAt, draft: *draft, wait: *wait,
		})
	case "job":
		if len(args) < 2 {
			return fmt.Errorf("job: missing job id")
		}
		return cmdJob(ctx, client, args[1], *wait)
	default:
		flags.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func newLogger(level string) *slog.Logger {
	if level == "" {
		return nil
	}
	lvl, err := logutil.ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "publerctl:", err)
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func cmdWorkspaces(ctx context.Context, client *publer.Client) error {
	ws, err := client.Workspaces.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(ws)
}

func cmdAccounts(ctx context.Context, client *publer.Client, workspaceID string) error {
	var opts *publer.AccountListOptions
	if workspaceID != "" {
		opts = &publer.AccountListOptions{WorkspaceID: workspaceID}
	}
	accounts, err := client.Accounts.List(ctx, opts)
	if err != nil {
		return err
	}
	return printJSON(accounts)
}

type postArgs struct {
	text     string
	accounts []string
	at       string
	draft    bool
	wait     bool
}

func cmdPost(ctx context.Context, client *publer.Client, a postArgs) error {
	if a.text == "" {
		return fmt.Errorf("post: --text is required")
	}
	if len(a.accounts) == 0 {
		return fmt.Errorf("post: at least one --account is required")
	}
	in := publer.PostInput{Text: a.text, Accounts: a.accounts, ScheduledAt: a.at}
	if a.draft {
		in.State = "draft"
	}

	ref, err := client.Posts.Create(ctx, in)
	if err != nil {
		return err
	}
	if !a.wait {
		fmt.Println(ref.JobID)
		return nil
	}

	rec, err := client.WaitForJob(ctx, ref.JobID)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func cmdJob(ctx context.Context, client *publer.Client, jobID string, wait bool) error {
	var (
		rec *publer.JobRecord
		err error
	)
	if wait {
		rec, err = client.WaitForJob(ctx, jobID)
	} else {
		rec, err = client.JobStatus(ctx, jobID)
	}
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
