// Package main is the CLI entry point for auramon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/config"
	"github.com/eliteGoblin/focusd/aura_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
	"github.com/eliteGoblin/focusd/aura_mon/internal/infra"
	"github.com/eliteGoblin/focusd/aura_mon/internal/logging"
	"github.com/eliteGoblin/focusd/aura_mon/internal/rules"
	"github.com/eliteGoblin/focusd/aura_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "auramon",
	Short: "Focus monitor - estimates attention and flags distractions",
	Long: `auramon watches the foreground window, input idle time and screen change
signals, estimates whether you are focused, classifies distracting apps
and websites, and nudges you back on task.

Session time is accounted locally. History is stored in an encrypted
database under ~/.auramon; nothing leaves the machine.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the focus monitor in the foreground",
	Long: `Starts the activity estimator and the monitoring pipeline. The process
stays in the foreground; stop it with Ctrl+C. Session totals are flushed
to the encrypted history database on shutdown.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the monitor's current focus state",
	Long:  `Reads the state file the running monitor maintains and prints the current focus verdict and session totals.`,
	RunE:  runStatus,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <title>",
	Short: "Classify a window title without starting the monitor",
	Long: `Runs a single observation through the distraction classifier and prints
the verdict. User rules from rules.json are applied first, so this is the
quickest way to test a rule change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent session history",
	Long:  `Prints session summaries from the encrypted history database, newest first. Use --timeline to include the raw focus timeline.`,
	RunE:  runReport,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the distraction rule list",
	Long:  `Lists, adds, removes, imports and exports the user-editable rules that feed the classifier.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List distraction rules",
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a distraction rule",
	Long:  `Adds one rule. --type is app, website or keyword; --match is exact, contains or regex. App rules with exact match must name an executable (e.g. steam.exe).`,
	RunE:  runRulesAdd,
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a rule by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRemove,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the rule list with one from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the rule list to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesExport,
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the start-at-login service (macOS)",
	Long: `Installs, removes or inspects the launchd agent that starts the monitor
at login. The agent runs "auramon run" and logs into ~/.auramon/logs.`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the login service",
	RunE:  runServiceInstall,
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login service",
	RunE:  runServiceUninstall,
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the login service is installed",
	RunE:  runServiceStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string

	basicMode bool
	noNotify  bool
	noHistory bool

	classifyApp string
	classifyURL string

	reportSince    time.Duration
	reportLimit    int
	reportTimeline bool

	addType     string
	addValue    string
	addCategory string
	addMatch    string
	addPriority string
	addNote     string

	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.auramon/config.yaml)")

	runCmd.Flags().BoolVar(&basicMode, "basic", false, "Skip the distraction classifier (idle/window heuristics only)")
	runCmd.Flags().BoolVar(&noNotify, "no-notify", false, "Log nudges instead of showing desktop notifications")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not persist session history")

	classifyCmd.Flags().StringVar(&classifyApp, "app", "", "Process name of the foreground app (e.g. chrome.exe)")
	classifyCmd.Flags().StringVar(&classifyURL, "url", "", "Page URL if known")

	reportCmd.Flags().DurationVar(&reportSince, "since", 24*time.Hour, "How far back to report")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10, "Maximum session summaries to show")
	reportCmd.Flags().BoolVar(&reportTimeline, "timeline", false, "Include the raw focus timeline")

	rulesAddCmd.Flags().StringVar(&addType, "type", "", "Rule type: app, website or keyword")
	rulesAddCmd.Flags().StringVar(&addValue, "value", "", "Pattern to match")
	rulesAddCmd.Flags().StringVar(&addCategory, "category", rules.CategoryEntertainment, "Category the rule binds to")
	rulesAddCmd.Flags().StringVar(&addMatch, "match", "", "Match mode: exact, contains or regex")
	rulesAddCmd.Flags().StringVar(&addPriority, "priority", "", "Priority: high, normal or low")
	rulesAddCmd.Flags().StringVar(&addNote, "note", "", "Free-form note")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesExportCmd)

	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}

	cfg, err := loadConfig(paths)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.Logging, paths)
	defer func() { _ = logger.Sync() }()

	ledger := usecase.NewLedger(logger)

	var notifier domain.Notifier
	if cfg.Notify.Desktop && !noNotify {
		notifier = infra.NewCommandNotifier(logger)
	} else {
		notifier = infra.NewLogNotifier(logger)
	}
	policy := usecase.NewNotifyPolicy(notifySettings(cfg.Notify), notifier, logger)

	// The classifier only participates when enabled; without it the pipeline
	// trusts the estimator's idle/window verdicts as-is.
	var classifier domain.Classifier
	if cfg.Classifier.Enabled && !basicMode {
		c := usecase.NewClassifier(classifierConfig(cfg.Classifier), logger)
		store := rules.NewStore(paths.RulesPath(), logger)
		store.ApplyTo(c)
		classifier = c
	}

	var history domain.HistoryStore
	if cfg.History.Enabled && !noHistory {
		dataDir := resolveDataDir(cfg, paths)
		keys := infra.NewFileKeyProvider(dataDir)
		key, err := infra.EnsureKey(keys)
		if err != nil {
			return fmt.Errorf("failed to prepare history key: %w", err)
		}
		h, err := infra.NewEncryptedHistory(dataDir, key)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer func() { _ = h.Close() }()

		if cfg.History.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
			if err := h.Prune(cutoff); err != nil {
				logger.Warn("failed to prune history", zap.Error(err))
			}
		}
		history = h
	}

	estimator := daemon.NewEstimator(estimatorConfig(cfg.Estimator), buildSignalSource(), logger)
	states := infra.NewStateFile(paths.StatePath())
	pipeline := daemon.NewPipeline(pipelineConfig(cfg.Session), estimator, classifier, policy, ledger, history, states, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	fmt.Println("\n=== auramon Monitoring ===")
	fmt.Printf("Data dir: %s\n", paths.DataDir())
	fmt.Printf("Classifier: %s\n", onOff(classifier != nil))
	fmt.Printf("Desktop notifications: %s\n", onOff(cfg.Notify.Desktop && !noNotify))
	fmt.Printf("History: %s\n", onOff(history != nil))
	fmt.Println("\nPress Ctrl+C to stop.")
	fmt.Println("==========================")

	if err := pipeline.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("\nSession saved.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	states := infra.NewStateFile(paths.StatePath())
	pi := infra.NewProcessInfo()

	fmt.Println("\n=== auramon Status ===")

	st, err := states.Read()
	if err != nil {
		return fmt.Errorf("failed to read run state: %w", err)
	}
	if st == nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'auramon run' to start monitoring.")
		return nil
	}

	if pi.IsRunning(st.PID) {
		fmt.Println("Status: RUNNING")
		if name, err := pi.NameForPID(st.PID); err == nil && name != "" {
			fmt.Printf("Process: %s (pid %d)\n", name, st.PID)
		} else {
			fmt.Printf("Process: pid %d\n", st.PID)
		}
	} else {
		fmt.Printf("Status: STALE (pid %d is gone)\n", st.PID)
	}

	fmt.Printf("Started: %s (up %s)\n",
		st.StartedAt.Format(time.RFC3339), time.Since(st.StartedAt).Round(time.Second))
	fmt.Printf("Updated: %s ago\n", time.Since(st.UpdatedAt).Round(time.Second))

	if st.Focus.Focused {
		fmt.Printf("\nFocus: FOCUSED (%s)\n", st.Focus.Reason)
	} else {
		fmt.Printf("\nFocus: UNFOCUSED (%s)\n", st.Focus.Reason)
	}
	if st.Focus.WindowTitle != "" || st.Focus.AppName != "" {
		fmt.Printf("Window: %s [%s]\n", st.Focus.WindowTitle, st.Focus.AppName)
	}

	total := st.FocusedS + st.UnfocusedS
	fmt.Printf("\nSession: %s focused / %s unfocused", fmtSeconds(st.FocusedS), fmtSeconds(st.UnfocusedS))
	if total > 0 {
		fmt.Printf(" (%.0f%% focused)", st.FocusedS/total*100)
	}
	fmt.Println()

	fmt.Println("======================")
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	cfg, err := loadConfig(paths)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	cls := usecase.NewClassifier(classifierConfig(cfg.Classifier), logger)
	store := rules.NewStore(paths.RulesPath(), logger)
	store.ApplyTo(cls)

	title := strings.Join(args, " ")
	res := cls.Observe(title, classifyApp, 0, classifyURL)

	fmt.Printf("Category:    %s\n", res.Category)
	fmt.Printf("Distracted:  %v\n", res.Distracted)
	fmt.Printf("Confidence:  %.2f\n", res.Confidence)
	if len(res.Reasons) > 0 {
		fmt.Printf("Reasons:     %s\n", strings.Join(res.Reasons, ", "))
	}
	if res.MatchedDomain != "" {
		fmt.Printf("Domain:      %s\n", res.MatchedDomain)
	}
	if res.MatchedApp != "" {
		fmt.Printf("App:         %s\n", res.MatchedApp)
	}
	if res.Subcategory != "" {
		fmt.Printf("Subcategory: %s\n", res.Subcategory)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	cfg, err := loadConfig(paths)
	if err != nil {
		return err
	}

	dataDir := resolveDataDir(cfg, paths)
	keys := infra.NewFileKeyProvider(dataDir)
	if !keys.KeyExists() {
		fmt.Println("No history recorded yet.")
		return nil
	}
	key, err := keys.GetKey()
	if err != nil {
		return fmt.Errorf("failed to read history key: %w", err)
	}
	h, err := infra.NewEncryptedHistory(dataDir, key)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = h.Close() }()

	since := time.Now().Add(-reportSince)

	fmt.Println("\n=== auramon Report ===")
	fmt.Printf("Window: last %s\n", reportSince)

	records, err := h.RecentSummaries(since, reportLimit)
	if err != nil {
		return fmt.Errorf("failed to load summaries: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("\nNo sessions in this window.")
	}
	for _, rec := range records {
		s := rec.Summary
		fmt.Printf("\n[%s] session started %s\n",
			rec.At.Format("2006-01-02 15:04"), s.StartedAt.Format("15:04"))
		fmt.Printf("  Focused:   %s\n", s.Focused.Round(time.Second))
		fmt.Printf("  Unfocused: %s\n", s.Unfocused.Round(time.Second))
		fmt.Printf("  Total:     %s\n", s.Total.Round(time.Second))
		if len(s.Apps) > 0 {
			fmt.Println("  Top apps:")
			for _, line := range topApps(s.Apps, 5) {
				fmt.Printf("    - %s\n", line)
			}
		}
	}

	if reportTimeline {
		events, err := h.RecentTimeline(since, 50)
		if err != nil {
			return fmt.Errorf("failed to load timeline: %w", err)
		}
		fmt.Println("\nTimeline:")
		for _, ev := range events {
			fmt.Printf("  %s  %-9s  %s [%s]\n",
				ev.At.Format("15:04:05"), ev.State, ev.Title, ev.App)
		}
	}

	fmt.Println("======================")
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	store := rules.NewStore(paths.RulesPath(), zap.NewNop())

	fmt.Println("\n=== Distraction Rules ===")

	for _, e := range store.List() {
		state := "on"
		if !e.Enabled {
			state = "off"
		}
		fmt.Printf("\n[%s] %s %q\n", e.Type, e.Match, e.Value)
		fmt.Printf("  Category: %s\n", e.Category)
		fmt.Printf("  Priority: %s  Enabled: %s\n", e.Priority, state)
		fmt.Printf("  ID: %s\n", e.ID)
		if e.Notes != "" {
			fmt.Printf("  Notes: %s\n", e.Notes)
		}
	}

	fmt.Println("\n=========================")
	return nil
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}
	store := rules.NewStore(paths.RulesPath(), zap.NewNop())

	added, err := store.Add(rules.Entry{
		Type:     rules.EntryType(addType),
		Value:    addValue,
		Category: addCategory,
		Match:    rules.MatchMode(addMatch),
		Priority: rules.Priority(addPriority),
		Enabled:  true,
		Notes:    addNote,
	})
	if err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}

	fmt.Printf("Added %s rule %q (id %s)\n", added.Type, added.Value, added.ID)
	return nil
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	store := rules.NewStore(paths.RulesPath(), zap.NewNop())

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}

	fmt.Printf("Removed rule %s\n", args[0])
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}
	store := rules.NewStore(paths.RulesPath(), zap.NewNop())

	if err := store.Import(paths.ExpandHome(args[0])); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}

	fmt.Printf("Imported %d rules from %s\n", len(store.List()), args[0])
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	store := rules.NewStore(paths.RulesPath(), zap.NewNop())

	if err := store.Export(paths.ExpandHome(args[0])); err != nil {
		return err
	}

	fmt.Printf("Exported %d rules to %s\n", len(store.List()), args[0])
	return nil
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	paths := infra.NewPaths()
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve binary path: %w", err)
	}

	svc := infra.NewLoginService(paths.LogsDir())
	switch {
	case svc.IsInstalled() && !svc.NeedsUpdate(execPath):
		fmt.Println("Login service already installed.")
	case svc.IsInstalled():
		if err := svc.Update(execPath); err != nil {
			return fmt.Errorf("failed to update login service: %w", err)
		}
		fmt.Printf("Login service updated (%s).\n", svc.PlistPath())
	default:
		if err := svc.Install(execPath); err != nil {
			return fmt.Errorf("failed to install login service: %w", err)
		}
		fmt.Printf("Login service installed (%s).\n", svc.PlistPath())
		fmt.Println("auramon now starts monitoring at login.")
	}
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	svc := infra.NewLoginService(infra.NewPaths().LogsDir())
	if !svc.IsInstalled() {
		fmt.Println("Login service is not installed.")
		return nil
	}
	if err := svc.Uninstall(); err != nil {
		return fmt.Errorf("failed to remove login service: %w", err)
	}
	fmt.Println("Login service removed.")
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	svc := infra.NewLoginService(infra.NewPaths().LogsDir())
	if !svc.IsInstalled() {
		fmt.Println("Login service: not installed")
		return nil
	}
	fmt.Printf("Login service: installed (%s)\n", svc.PlistPath())
	if execPath, err := os.Executable(); err == nil && svc.NeedsUpdate(execPath) {
		fmt.Println("The installed agent points at a different binary; run 'auramon service install' to refresh it.")
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("auramon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

func loadConfig(paths *infra.Paths) (config.Config, error) {
	path := configPath
	if path == "" {
		path = paths.ConfigPath()
	} else {
		path = paths.ExpandHome(path)
	}
	return config.Load(path)
}

func createLogger(section config.LoggingSection, paths *infra.Paths) *zap.Logger {
	file := section.File
	if file == "" {
		file = paths.LogPath()
	} else {
		file = paths.ExpandHome(file)
	}
	return logging.New(logging.Config{
		Level:      section.Level,
		File:       file,
		MaxSizeMB:  section.MaxSizeMB,
		MaxBackups: section.MaxBackups,
		MaxAgeDays: section.MaxAgeDays,
		Compress:   section.Compress,
	})
}

// buildSignalSource assembles the host probe set. Platform probes are
// optional; absent ones degrade to empty samples and the estimator leans on
// its idle/window heuristics instead.
func buildSignalSource() domain.SignalSource {
	fp := infra.NewFingerprinter(nil)
	return &infra.CallbackSource{
		Fingerprint: fp.Fingerprint,
	}
}

func resolveDataDir(cfg config.Config, paths *infra.Paths) string {
	if cfg.History.DataDir == "" {
		return paths.DataDir()
	}
	return paths.ExpandHome(cfg.History.DataDir)
}

func estimatorConfig(s config.EstimatorSection) daemon.EstimatorConfig {
	cfg := daemon.DefaultEstimatorConfig()
	cfg.PollInterval = time.Duration(s.PollIntervalMS) * time.Millisecond
	cfg.ScreenSample = time.Duration(s.ScreenSampleMS) * time.Millisecond
	cfg.ScreenDownscale = s.ScreenDownscale
	cfg.IdleTimeoutS = s.IdleTimeoutS
	cfg.ThinkTimeoutS = s.ThinkTimeoutS
	cfg.AllowedKeywords = s.AllowedKeywords
	if len(s.AppTimeouts) > 0 {
		cfg.AppTimeouts = make(map[string]daemon.AppTimeout, len(s.AppTimeouts))
		for app, t := range s.AppTimeouts {
			cfg.AppTimeouts[app] = daemon.AppTimeout{
				IdleTimeoutS:  t.IdleTimeoutS,
				ThinkTimeoutS: t.ThinkTimeoutS,
			}
		}
	}
	return cfg
}

func classifierConfig(s config.ClassifierSection) usecase.ClassifierConfig {
	cfg := usecase.DefaultClassifierConfig()
	if s.BriefCheckS > 0 {
		cfg.BriefCheckS = s.BriefCheckS
	}
	if s.RepeatedVisitWindowS > 0 {
		cfg.RepeatedVisitWindowS = s.RepeatedVisitWindowS
	}
	if s.RepeatedVisitThreshold > 0 {
		cfg.RepeatedVisitThreshold = s.RepeatedVisitThreshold
	}
	return cfg
}

func notifySettings(s config.NotifySection) usecase.NotifySettings {
	return usecase.NotifySettings{
		Enabled:             s.Enabled,
		DistractionDelayS:   s.DistractionDelayS,
		MinIntervalS:        s.MinIntervalS,
		RefocusQuietS:       s.RefocusQuietS,
		EscalateAfterS:      s.EscalateAfterS,
		SuppressDuringBreak: s.SuppressDuringBreak,
	}
}

func pipelineConfig(s config.SessionSection) daemon.PipelineConfig {
	return daemon.PipelineConfig{
		TickInterval:  time.Duration(s.TickIntervalMS) * time.Millisecond,
		StateInterval: time.Duration(s.StateIntervalS) * time.Second,
		FlushInterval: time.Duration(s.FlushIntervalS) * time.Second,
		AppVersion:    Version,
	}
}

func topApps(apps map[string]domain.UsageBucket, limit int) []string {
	type appLine struct {
		name   string
		bucket domain.UsageBucket
	}
	lines := make([]appLine, 0, len(apps))
	for name, b := range apps {
		lines = append(lines, appLine{name, b})
	}
	sort.Slice(lines, func(i, j int) bool {
		ti := lines[i].bucket.Focused + lines[i].bucket.Unfocused
		tj := lines[j].bucket.Focused + lines[j].bucket.Unfocused
		if ti != tj {
			return ti > tj
		}
		return lines[i].name < lines[j].name
	})
	if len(lines) > limit {
		lines = lines[:limit]
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, fmt.Sprintf("%s: %s focused, %s unfocused",
			l.name, l.bucket.Focused.Round(time.Second), l.bucket.Unfocused.Round(time.Second)))
	}
	return out
}

func fmtSeconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Round(time.Second).String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
