package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"filecab/internal/app"
	"filecab/internal/config"
	"filecab/internal/dates"
	"filecab/internal/filecab"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, defaults["config_path"], operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// parseBindings turns repeated --set name=value flags into an override map.
func parseBindings(pairs []string) (map[string]string, error) {
	overrides := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid binding %q (expected name=value)", p)
		}
		overrides[name] = value
	}
	return overrides, nil
}

var rootCmd = &cobra.Command{
	Use:   "filecab",
	Short: "Rule-driven document filing",
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
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Inboxes:  %s\n", strings.Join(cfg.Inboxes, ", "))
		fmt.Printf("Archives: %s\n", strings.Join(cfg.Archives, ", "))
		return nil
	},
}

// location command

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Manage inbox and archive locations",
}

var locationAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, _ := cmd.Flags().GetBool("archive")

		a, err := newApp("AddLocation")
		if err != nil {
			return err
		}
		defer a.Close()

		t := filecab.LocationInbox
		if archive {
			t = filecab.LocationArchive
		}

		if err := a.AddLocation(t, args[0]); err != nil {
			return fmt.Errorf("adding location: %w", err)
		}

		fmt.Printf("Added %s location: %s\n", t, args[0])
		return nil
	},
}

var locationRemoveCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Unregister a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveLocation")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveLocation(args[0]); err != nil {
			return fmt.Errorf("removing location: %w", err)
		}

		fmt.Printf("Removed location: %s\n", args[0])
		return nil
	},
}

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "View registered locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListLocations")
		if err != nil {
			return err
		}
		defer a.Close()

		locations := a.Locations()
		if len(locations) == 0 {
			fmt.Println("No locations registered.")
			return nil
		}

		for _, loc := range locations {
			status := ""
			if loc.Err != nil {
				status = "  [unavailable]"
			}
			fmt.Printf("%-7s  %s%s\n", loc.Type, loc.Path, status)
		}
		return nil
	},
}

// rules command

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "View rules across all archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRules")
		if err != nil {
			return err
		}
		defer a.Close()

		list := a.Rules()
		if len(list) == 0 {
			fmt.Println("No rules defined.")
			return nil
		}

		for _, r := range list {
			marker := " "
			if r.Validate() != nil || len(r.DanglingReferences()) > 0 {
				marker = "!"
			}
			fmt.Printf("%s %-30s  %d variable(s)\n", marker, r.Name, len(r.Variables))
		}
		return nil
	},
}

var rulesNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a rule in an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath, _ := cmd.Flags().GetString("archive")

		a, err := newApp("NewRule")
		if err != nil {
			return err
		}
		defer a.Close()

		loc, ok := a.Model().Location(archivePath)
		if !ok || loc.RuleSet == nil {
			return fmt.Errorf("not a registered archive: %s", archivePath)
		}

		rule, err := loc.RuleSet.NewRule(args[0])
		if err != nil {
			return fmt.Errorf("creating rule: %w", err)
		}
		if err := loc.RuleSet.Close(); err != nil {
			return fmt.Errorf("saving rules: %w", err)
		}

		fmt.Printf("Created rule %q (%s)\n", rule.Name, rule.ID)
		return nil
	},
}

// dates command

var datesCmd = &cobra.Command{
	Use:   "dates TEXT",
	Short: "Show dates recognized in text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		found := dates.Instances(args[0])
		if len(found) == 0 {
			fmt.Println("No dates found.")
			return nil
		}
		for _, c := range found {
			fmt.Printf("%s  %q\n", c.Date.Format("2006-01-02"), args[0][c.Start:c.End])
		}
		return nil
	},
}

// preview command

var previewCmd = &cobra.Command{
	Use:   "preview SOURCE RULE",
	Short: "Resolve a destination without moving",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("set")
		ext, _ := cmd.Flags().GetString("ext")

		overrides, err := parseBindings(pairs)
		if err != nil {
			return err
		}

		a, err := newApp("Preview")
		if err != nil {
			return err
		}
		defer a.Close()

		dest, bindings, err := a.Preview(args[0], args[1], overrides, ext)
		if err != nil {
			return err
		}

		for name, value := range bindings {
			fmt.Printf("  %s = %q\n", name, value)
		}
		fmt.Printf("Destination: %s\n", dest)
		return nil
	},
}

// file command

var fileCmd = &cobra.Command{
	Use:   "file SOURCE RULE",
	Short: "File a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("set")
		ext, _ := cmd.Flags().GetString("ext")

		overrides, err := parseBindings(pairs)
		if err != nil {
			return err
		}

		a, err := newApp("File")
		if err != nil {
			return err
		}
		defer a.Close()

		dest, err := a.FileDocument(args[0], args[1], overrides, ext)
		if err != nil {
			var conflict *filecab.ConflictError
			if errors.As(err, &conflict) {
				return fmt.Errorf("a file already exists at %s (source left untouched)", conflict.Destination)
			}
			return err
		}

		fmt.Printf("Filed to %s\n", dest)
		return nil
	},
}

// watch command

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Observe all locations until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Watching; press Ctrl-C to stop.")
		return a.Watch(ctx)
	},
}

// history command

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent filings",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		filings, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(filings) == 0 {
			fmt.Println("No filings recorded.")
			return nil
		}

		for _, f := range filings {
			fmt.Printf("%s  %-20s  %s\n",
				f.FiledAt.Format("2006-01-02 15:04:05"),
				f.RuleName,
				f.Destination,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	locationCmd.AddCommand(locationAddCmd)
	locationCmd.AddCommand(locationRemoveCmd)
	locationCmd.AddCommand(locationListCmd)
	locationAddCmd.Flags().Bool("archive", false, "Register as an archive (default: inbox)")

	rulesCmd.AddCommand(rulesNewCmd)
	rulesNewCmd.Flags().String("archive", "", "Archive location that owns the rule")
	rulesNewCmd.MarkFlagRequired("archive")

	previewCmd.Flags().StringArray("set", nil, "Override a variable binding (name=value)")
	previewCmd.Flags().String("ext", "", "Destination extension (default: source extension)")
	fileCmd.Flags().StringArray("set", nil, "Override a variable binding (name=value)")
	fileCmd.Flags().String("ext", "", "Destination extension (default: source extension)")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of filings to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(locationCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(datesCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}
