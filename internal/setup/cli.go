package setup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/disc-herniation-assistant/internal/casestore"
	"github.com/disc-herniation-assistant/internal/domain"
)

// StoreOpener opens the configured case store.
type StoreOpener func(ctx context.Context) (domain.CaseStore, error)

// CLI provides command-line interface for data and setup operations.
type CLI struct {
	configManager domain.ConfigManager
	openStore     StoreOpener
	logger        *logrus.Logger
	out           io.Writer
}

// CLIOption configures a CLI.
type CLIOption func(*CLI)

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) CLIOption {
	return func(c *CLI) {
		c.out = w
	}
}

// WithStoreOpener replaces the store opener, casestore.Open by default.
func WithStoreOpener(open StoreOpener) CLIOption {
	return func(c *CLI) {
		c.openStore = open
	}
}

// NewCLI creates a new setup CLI instance.
func NewCLI(configManager domain.ConfigManager, logger *logrus.Logger, opts ...CLIOption) *CLI {
	c := &CLI{
		configManager: configManager,
		logger:        logger,
		out:           os.Stdout,
	}
	c.openStore = func(ctx context.Context) (domain.CaseStore, error) {
		return casestore.Open(ctx, *configManager.GetStorageConfig(), logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "data":
		return c.runData(ctx, args[1:])
	case "status":
		return c.showStatus(ctx)
	case "validate":
		return c.validate()
	case "register-mcp":
		return c.registerMCP(args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		c.showHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) showHelp() error {
	help := `
Disc Herniation Assistant

Usage:
  server [command] [options]

Commands:
  (none)                       Start the HTTP server
  data export [file]           Write every patient record as a patients document (stdout when no file)
  data import <file>           Copy records from a patients document, skipping known patients
  status                       Show storage and knowledge base status
  validate                     Validate the current configuration
  register-mcp --config <path> Register the MCP server in a client configuration file
      [--binary <path>] [--name <name>]

Examples:
  # Move patients from the JSON file into SQLite
  DISC_ASSIST_STORAGE_BACKEND=json server data export pacientes-backup.json
  DISC_ASSIST_STORAGE_BACKEND=sqlite server data import pacientes-backup.json
`
	fmt.Fprintln(c.out, help)
	return nil
}

func (c *CLI) runData(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("data: expected export or import")
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open case store: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "export":
		return c.export(ctx, store, args[1:])
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("data import: file is required")
		}
		return c.importFile(ctx, store, args[1])
	default:
		return fmt.Errorf("data: unknown subcommand %s", args[0])
	}
}

func (c *CLI) export(ctx context.Context, store domain.CaseStore, args []string) error {
	if len(args) == 0 {
		n, err := casestore.Export(ctx, store, c.out)
		if err != nil {
			return err
		}
		c.logger.WithField("records", n).Info("Patients exported")
		return nil
	}

	path := args[0]
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	n, err := casestore.Export(ctx, store, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	fmt.Fprintf(c.out, "Exported %d patient records to %s\n", n, path)
	return nil
}

func (c *CLI) importFile(ctx context.Context, store domain.CaseStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	imported, skipped, err := casestore.Import(ctx, store, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Imported %d patient records, skipped %d already present\n", imported, skipped)
	return nil
}

func (c *CLI) showStatus(ctx context.Context) error {
	cfg := c.configManager.GetConfig()

	store, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open case store: %w", err)
	}
	defer store.Close()

	status := GetStatus(ctx, cfg, store)

	fmt.Fprintln(c.out, "Disc Herniation Assistant Status")
	fmt.Fprintln(c.out, "================================")
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Case store:")
	fmt.Fprintf(c.out, "  Backend: %s\n", status.Backend)
	fmt.Fprintf(c.out, "  Location: %s\n", status.Location)
	if status.StoreError != nil {
		fmt.Fprintf(c.out, "  Status: unreadable (%s)\n", domain.ErrorCode(status.StoreError))
	} else {
		fmt.Fprintf(c.out, "  Records: %d\n", status.RecordCount)
	}
	fmt.Fprintln(c.out)

	fmt.Fprintln(c.out, "Knowledge bases (priority order):")
	for _, source := range cfg.Knowledge.Sources {
		state := "missing"
		if status.KnowledgeSources[source] {
			state = "present"
		}
		fmt.Fprintf(c.out, "  %s: %s\n", source, state)
	}
	return nil
}

func (c *CLI) validate() error {
	if err := c.configManager.Validate(); err != nil {
		fmt.Fprintf(c.out, "Configuration has issues:\n  - %v\n", err)
		return err
	}
	fmt.Fprintln(c.out, "Configuration is valid")
	return nil
}

func (c *CLI) registerMCP(args []string) error {
	opts := RegisterOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			if i+1 < len(args) {
				opts.ConfigPath = args[i+1]
				i++
			}
		case "--binary", "-b":
			if i+1 < len(args) {
				opts.BinaryPath = args[i+1]
				i++
			}
		case "--name", "-n":
			if i+1 < len(args) {
				opts.ServerName = args[i+1]
				i++
			}
		}
	}

	if opts.BinaryPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to resolve server binary: %w", err)
		}
		opts.BinaryPath = execPath
	}

	if err := RegisterMCPServer(opts); err != nil {
		return err
	}

	name := opts.ServerName
	if name == "" {
		name = DefaultServerName
	}
	fmt.Fprintf(c.out, "Registered %s in %s\n", name, opts.ConfigPath)
	return nil
}
