package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mathblast/mathblast/internal/config"
	"github.com/mathblast/mathblast/internal/display"
	"github.com/mathblast/mathblast/internal/i18n"
	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/recognizer"
	"github.com/mathblast/mathblast/internal/report"
	"github.com/mathblast/mathblast/internal/storage"
	"github.com/mathblast/mathblast/internal/ui"
)

// stdout is where command results go; tests swap it.
var stdout io.Writer = os.Stdout

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage player profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profileStore()
		if err != nil {
			return err
		}
		list, err := store.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			printWarning("No profiles yet. Create one with: mathblast profile create <name>")
			return nil
		}
		current, _ := store.Current()
		for _, p := range list {
			mark := "  "
			if p.Name == current {
				mark = "* "
			}
			fmt.Fprintf(stdout, "%s%s %s\n", mark, p.Avatar, p.Name)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile (default: the current one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profileStore()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		} else if name, err = store.Current(); err != nil {
			return err
		}
		if name == "" {
			return errors.New("no current profile; pass a name")
		}
		p, err := store.Get(name)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		fmt.Fprintln(stdout, profile.Summarize(p))
		if len(p.Achievements) > 0 {
			fmt.Fprintf(stdout, "Achievements: %s\n", strings.Join(p.Achievements, ", "))
		}
		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := syncedProfileStore()
		if err != nil {
			return err
		}
		defer done()
		p, err := store.Create(args[0])
		if err != nil {
			return err
		}
		if err := store.SetCurrent(p.Name); err != nil {
			return err
		}
		printSuccess("Created profile %s %s", p.Avatar, p.Name)
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile and its game history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		ok, err := store.Delete(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", profile.ErrNotFound, args[0])
		}
		if history, err := storage.Open(cfg.Storage.DataDir); err == nil {
			if _, err := history.DeleteGameResults(args[0]); err != nil {
				printWarning("deleting game history: %v", err)
			}
			closeStore(history)
		}
		printSuccess("Deleted profile %s", args[0])
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profileStore()
		if err != nil {
			return err
		}
		if err := store.SetCurrent(args[0]); err != nil {
			return err
		}
		printSuccess("Now playing as %s", args[0])
		return nil
	},
}

var profileCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profileStore()
		if err != nil {
			return err
		}
		summary, err := profile.NewManager(store).Summary()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, summary)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> <avatar|lang> <value>",
	Short: "Change a profile's avatar or language",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := syncedProfileStore()
		if err != nil {
			return err
		}
		defer done()
		name, field, value := args[0], strings.ToLower(args[1]), strings.TrimSpace(args[2])
		_, err = store.Update(name, func(p *profile.Profile) error {
			switch field {
			case "avatar":
				if value == "" {
					return errors.New("avatar is empty")
				}
				p.Avatar = value
			case "lang":
				lang := i18n.Match(value)
				base, _, _ := strings.Cut(strings.ReplaceAll(value, "_", "-"), "-")
				if !strings.EqualFold(base, lang) {
					return fmt.Errorf("unsupported language %q (supported: %s)", value, strings.Join(i18n.Supported(), ", "))
				}
				p.Lang = lang
			default:
				return fmt.Errorf("unknown field %q, want avatar or lang", field)
			}
			return nil
		})
		if err != nil {
			return err
		}
		printSuccess("Updated %s of %s", field, name)
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "print the raw profile as JSON")
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileCreateCmd, profileDeleteCmd,
		profileUseCmd, profileCurrentCmd, profileSetCmd)
}

func profileStore() (*profile.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openProfiles(cfg)
}

// syncedProfileStore is profileStore for commands that save profiles: with
// cloud sync on, saves are queued for upload. Call done when finished.
func syncedProfileStore() (*profile.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	profiles, err := openProfiles(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Sync.URL == "" {
		return profiles, func() {}, nil
	}
	queue, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("cloud sync queue unavailable: %v", err)
		return profiles, func() {}, nil
	}
	watchSync(cfg, profiles, queue)
	return profiles, func() { closeStore(queue) }, nil
}

// --- leaderboard ---

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top players by level and correct answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := profileStore()
		if err != nil {
			return err
		}
		list, err := store.Leaderboard(limit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			printWarning("No profiles yet.")
			return nil
		}
		return writeLeaderboard(stdout, list)
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 10, "number of players to show")
}

func writeLeaderboard(w io.Writer, list []profile.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tLEVEL\tCORRECT\tACCURACY\tXP")
	for i, p := range list {
		fmt.Fprintf(tw, "%d\t%s %s\t%d\t%d\t%.0f%%\t%d\n",
			i+1, p.Avatar, p.Name, p.Level, p.Correct, p.Accuracy(), p.XP)
	}
	return tw.Flush()
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report <roster.yaml>",
	Short: "Print a class progress report for a roster",
	Long: `Print a class progress report for the students listed in a YAML roster.

Example roster:
  class: 3B
  students:
    - Ana
    - Ben`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath, _ := cmd.Flags().GetString("pdf")

		roster, err := report.LoadRoster(args[0])
		if err != nil {
			return err
		}
		store, err := profileStore()
		if err != nil {
			return err
		}
		r, err := report.BuildClassReport(roster, store, time.Now())
		if err != nil {
			return err
		}
		if pdfPath == "" {
			return report.WriteText(stdout, r)
		}

		f, err := os.Create(pdfPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", pdfPath, err)
		}
		if err := report.WritePDF(f, r); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		printSuccess("Wrote %s", pdfPath)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("pdf", "", "write the report as PDF to this path")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and modify configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Key, k.Value, colorize(colorCyan, k.EnvVar))
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

// --- doctor ---

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment the game runs in",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		printStep("Checking environment")

		printStatus("UI backends", "%s", strings.Join(ui.Registered(), ", "))
		printStatus("Preferred backend", "%s", cfg.UI.Backend)

		dpi := display.EnableDPIAwareness()
		printStatus("DPI awareness", "%s", checkMark(dpi))
		m, err := screenMetrics(cfg, "")
		if err == nil {
			printStatus("Display", "%dx%d scale %.2f, %d fps", m.Width, m.Height, m.ScaleFactor, m.FPSTarget)
		}

		printStatus("Language", "%s", gameLanguage(cfg))
		printStatus("Handwriting", "%s", recognizer.Describe(recognizer.Open(cfg.Recognizer.ModelPath)))

		if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
			printStatus("Data dir", "%s (%s)", cfg.Storage.DataDir, checkMark(false))
		} else {
			printStatus("Data dir", "%s (%s)", cfg.Storage.DataDir, checkMark(true))
		}
		if cfg.Sync.URL == "" {
			printStatus("Cloud sync", "disabled")
		} else {
			printStatus("Cloud sync", "%s every %s", cfg.Sync.URL, cfg.SyncPollInterval())
		}
		return nil
	},
}
