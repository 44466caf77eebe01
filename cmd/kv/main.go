package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kv-go/internal/app"
	"kv-go/internal/config"
	"kv-go/internal/encryption"
	"kv-go/internal/kv"
	"kv-go/internal/tui"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a KVApp. The caller must defer app.Close().
// command identifies the CLI command being run.
func newApp(ctx context.Context, command string, logToStderr bool) (*app.KVApp, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("resolving default paths: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewKVApp(ctx, cfg, command, logToStderr)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "kv",
	Short:        "Read-only KeePass vault viewer",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve default paths: %w", err)
		}

		cfg := config.NewConfig(paths.BaseDir)

		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		sealer, err := encryption.NewSealerFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating sealer: %w", err)
		}
		if err := sealer.Setup(); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		if cfg.Encryption.Type == "age" {
			fmt.Printf("Identity: %s\n", cfg.Encryption.IdentityPath)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve default paths: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigPath)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Payloads:   %s\n", describePayloads(cfg.Payloads))
		fmt.Printf("Encryption: %s %s\n", cfg.Encryption.Type, cfg.Encryption.IdentityPath)
		fmt.Printf("Clipboard:  %s\n", cfg.Clipboard.Type)
		fmt.Printf("Download:   timeout %s, max %d bytes\n", cfg.Download.Timeout, cfg.Download.MaxSize)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify storage and encryption setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "config check", true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Check(); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import URL",
	Short: "Download a KeePass database and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "import", true)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Import(ctx, args[0])
		if err != nil {
			return errors.New(kv.UserMessage(err))
		}

		fmt.Printf("Imported #%d %s (%d bytes)\n", rec.ID, rec.OriginalName, rec.Size)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List imports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "history", true)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.History()
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Println("No imports yet.")
			return nil
		}

		for i, rec := range recs {
			fmt.Println(formatImport(rec, i == 0))
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Decrypt an import and print its tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		importID, _ := cmd.Flags().GetInt64("import")
		withPath, _ := cmd.Flags().GetBool("path")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "show", true)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Resolve(importID)
		if err != nil {
			return errors.New(kv.UserMessage(err))
		}

		password, err := readPassword(fmt.Sprintf("Master password for %s: ", rec.OriginalName))
		if err != nil {
			return err
		}

		_, tree, err := a.Unlock(ctx, rec.ID, password)
		if err != nil {
			return errors.New(kv.UserMessage(err))
		}

		if withPath {
			printPaths(os.Stdout, tree)
		} else {
			printTree(os.Stdout, tree)
		}
		fmt.Printf("\n%d entries\n", tree.CountEntries())
		return nil
	},
}

// copy command
var copyCmd = &cobra.Command{
	Use:   "copy ENTRY",
	Short: "Copy an entry's password and clear it after 10 seconds",
	Long: "Copy an entry's password (or username) to the clipboard and wait until it is cleared.\n" +
		"ENTRY is an entry id or a path such as Email/Gmail. Ctrl-C clears the clipboard immediately.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		importID, _ := cmd.Flags().GetInt64("import")
		fieldName, _ := cmd.Flags().GetString("field")
		field, err := kv.ParseField(fieldName)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "copy", true)
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.Session()
		if importID != 0 {
			if err := s.SelectImport(importID); err != nil {
				return err
			}
		}
		current := s.Snapshot().Current
		if current == nil {
			return errors.New(kv.UserMessage(kv.ErrNoImport))
		}

		password, err := readPassword(fmt.Sprintf("Master password for %s: ", current.OriginalName))
		if err != nil {
			return err
		}

		s.StartUnlock(password)
		if ev, err := awaitEvent(ctx, s, kv.EventUnlocked, kv.EventUnlockFailed); err != nil {
			return err
		} else if ev.Kind == kv.EventUnlockFailed {
			return errors.New(kv.UserMessage(ev.Err))
		}

		node, err := findEntry(s.Snapshot().Tree, args[0])
		if err != nil {
			return err
		}
		if err := s.Copy(node.ID, field); err != nil {
			return errors.New(kv.UserMessage(err))
		}
		fmt.Printf("Copied %s of %q. Clipboard clears in %d seconds (Ctrl-C clears now).\n",
			field, node.Title, int(kv.ClearAfter.Seconds()))

		ev, err := awaitEvent(ctx, s, kv.EventClipboardCleared)
		if err != nil {
			if flushErr := s.ClearClipboard(); flushErr != nil {
				return errors.New(kv.UserMessage(flushErr))
			}
			fmt.Println("Clipboard cleared.")
			return nil
		}
		switch {
		case ev.Clear.Err != nil:
			return errors.New(kv.UserMessage(ev.Clear.Err))
		case ev.Clear.Cleared:
			fmt.Println("Clipboard cleared.")
		default:
			fmt.Println("Clipboard changed by another application; left untouched.")
		}
		return nil
	},
}

// open command
var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Browse imports interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "open", false)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(a.Session(), a.Feed())
	},
}

// awaitEvent returns the first session event of one of kinds, or ctx's error.
func awaitEvent(ctx context.Context, s *kv.Session, kinds ...kv.EventKind) (kv.Event, error) {
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return kv.Event{}, fmt.Errorf("session closed")
			}
			for _, k := range kinds {
				if ev.Kind == k {
					return ev, nil
				}
			}
		case <-ctx.Done():
			return kv.Event{}, ctx.Err()
		}
	}
}

func describePayloads(cfg config.PayloadConfig) string {
	switch cfg.Type {
	case "filesystem":
		return "filesystem " + cfg.FSRoot
	case "s3":
		return "s3 " + strings.TrimSuffix("s3://"+cfg.S3Bucket+"/"+cfg.S3Prefix, "/")
	default:
		return cfg.Type
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Int64("import", 0, "Import ID to show (default: latest)")
	showCmd.Flags().Bool("path", false, "Print one line per entry with its full path")
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().Int64("import", 0, "Import ID to copy from (default: latest)")
	copyCmd.Flags().StringP("field", "f", "password", "Field to copy: password or username")
	rootCmd.AddCommand(openCmd)
}
