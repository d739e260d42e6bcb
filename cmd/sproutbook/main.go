package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sproutbook/internal/app"
	"sproutbook/internal/auth"
	"sproutbook/internal/backup"
	"sproutbook/internal/config"
	"sproutbook/internal/database"
	"sproutbook/internal/database/migrations"
	"sproutbook/internal/encryption"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a wired App. The caller must defer
// app.Close().
func newApp() (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "sproutbook",
	Short: "Baby growth tracker with automatic backups",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Serve(ctx)
	},
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
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data dir: %s\n", defaults["base_dir"])
		return nil
	},
}

// backup commands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a backup now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Backups().RunBackup(cmd.Context(), "manual")
		if err != nil {
			return err
		}
		fmt.Printf("Backup written: %s (%d bytes, %d records, %d media files)\n",
			entry.Filename, entry.SizeBytes, entry.RecordCount, entry.MediaCount)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore FILENAME",
	Short: "Restore all data from a backup artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Backups().Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d records and %d media files from %s\n",
			result.RecordCount, result.MediaCount, args[0])
		return nil
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List backup artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		artifacts, err := a.Backups().ListArtifacts()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tENCRYPTED\tIMPORTED")
		for _, art := range artifacts {
			fmt.Fprintf(w, "%s\t%d\t%t\t%t\n", art.Name, art.SizeBytes, art.Encrypted, art.Imported)
		}
		return w.Flush()
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention limit to the storage path now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		settings, err := a.Backups().Settings()
		if err != nil {
			return err
		}
		deleted, err := backup.Prune(settings.StoragePath, settings.MaxRetained)
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			fmt.Println("Nothing to prune")
			return nil
		}
		for _, name := range deleted {
			fmt.Printf("Deleted %s\n", name)
		}
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the backup log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Backups().Log(limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tFILE\tSIZE\tRECORDS\tMEDIA\tSTATUS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				e.Filename, e.SizeBytes, e.RecordCount, e.MediaCount, e.Status)
		}
		return w.Flush()
	},
}

// admin commands
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations",
}

var adminSetPasswordCmd = &cobra.Command{
	Use:   "set-password USERNAME",
	Short: "Set the web login credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDatabaseFromConfig(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrations.Up(db.SQL()); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		password, err := readPassword()
		if err != nil {
			return err
		}
		if err := auth.SetCredentials(db, args[0], password); err != nil {
			return err
		}
		fmt.Printf("Credentials set for %s\n", args[0])
		return nil
	},
}

var adminKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the age key pair for artifact encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		e := encryption.NewAgeEncryptor(cfg.Encryption)
		if err := e.Setup(); err != nil {
			return err
		}
		fmt.Printf("Recipient written to %s\n", cfg.Encryption.RecipientPath)
		fmt.Printf("Identity written to %s\n", cfg.Encryption.IdentityPath)
		fmt.Println("Set encryption.enabled = true in the config to encrypt new backups")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDatabaseFromConfig(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Up(db.SQL()); err != nil {
			return err
		}
		fmt.Println("Database is up to date")
		return nil
	},
}

// readPassword prompts twice on the terminal, without echo.
func readPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Print("Confirm: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading confirmation: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if strings.TrimSpace(string(first)) == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	adminCmd.AddCommand(adminSetPasswordCmd)
	adminCmd.AddCommand(adminKeygenCmd)

	logCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(migrateCmd)
}
