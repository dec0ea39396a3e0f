package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/netpathlabs/tcptrace/internal/config"
	"github.com/netpathlabs/tcptrace/internal/enrich"
	"github.com/netpathlabs/tcptrace/internal/output"
	"github.com/netpathlabs/tcptrace/internal/trace"
	"github.com/netpathlabs/tcptrace/internal/traceengine"
	"github.com/netpathlabs/tcptrace/internal/tui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Flags
	modeFlag   string
	maxHops    int
	timeoutMS  int64
	destPort   int
	logPath    string
	verbose    bool
	jsonOutput bool
	csvOutput  bool
	htmlOutput string
	tuiMode    bool
	noEnrich   bool
	noRDNS     bool
	noASN      bool
	noGeoIP    bool
	noColor    bool

	// Config file
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tcptrace [flags] <host> [port] [max_hops] [timeout_ms]",
	Short: "TCP SYN path tracer",
	Long: `tcptrace traces the route TCP SYN packets take to reach a destination
host by walking increasing IP TTLs and correlating ICMP Time-Exceeded and
TCP SYN-ACK/RST replies by ephemeral source port.

Features:
  • Raw (IP_HDRINCL) and kernel-assisted connect() send modes
  • ASN, GeoIP, and reverse DNS hop enrichment
  • Interactive TUI mode
  • Text, JSON, CSV, and HTML output
  • Configuration file support (~/.config/tcptrace/config.yaml)

Examples:
  tcptrace google.com                   Trace to port 443, 30 hops max
  tcptrace google.com 80                Trace to port 80
  tcptrace google.com 443 20 500        20 hops max, 500ms per-hop timeout
  tcptrace --mode=raw google.com        Force raw send/receive
  tcptrace --json google.com            JSON output
  tcptrace --tui google.com             Interactive TUI mode
  tcptrace config --init                Create default config file`,
	Args:              cobra.RangeArgs(1, 4),
	PersistentPreRunE: loadConfig,
	RunE:              runTrace,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/tcptrace/config.yaml)")

	rootCmd.Flags().StringVar(&modeFlag, "mode", "", "Send/listen mode: auto, connect, raw (default: auto)")
	rootCmd.Flags().StringVar(&logPath, "log", "", "Write structured diagnostics to PATH")

	rootCmd.Flags().IntVarP(&maxHops, "max-hops", "m", 0, "Maximum number of hops")
	rootCmd.Flags().Int64VarP(&timeoutMS, "timeout-ms", "w", 0, "Per-hop wait window in milliseconds")
	rootCmd.Flags().IntVarP(&destPort, "port", "p", 0, "Destination port")

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed table output")
	rootCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.Flags().BoolVar(&csvOutput, "csv", false, "Output in CSV format")
	rootCmd.Flags().StringVar(&htmlOutput, "html", "", "Generate HTML report to file")
	rootCmd.Flags().BoolVarP(&tuiMode, "tui", "t", false, "Interactive TUI mode")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Disable all enrichment")
	rootCmd.Flags().BoolVar(&noRDNS, "no-rdns", false, "Disable reverse DNS lookups")
	rootCmd.Flags().BoolVar(&noASN, "no-asn", false, "Disable ASN lookups")
	rootCmd.Flags().BoolVar(&noGeoIP, "no-geoip", false, "Disable GeoIP lookups")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads configuration from file and applies defaults. If no
// config file exists, it creates one automatically on first run.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}
		if _, statErr := os.Stat(config.GetConfigPath()); os.IsNotExist(statErr) {
			if saveErr := config.DefaultConfig().Save(); saveErr == nil {
				fmt.Fprintf(os.Stderr, "Created default config: %s\n", config.GetConfigPath())
				fmt.Fprintf(os.Stderr, "Edit this file to customize defaults (e.g., set tui: true)\n\n")
			}
		}
	}

	applyConfigDefaults(cmd)
	return nil
}

// applyConfigDefaults applies config file values for unset flags.
func applyConfigDefaults(cmd *cobra.Command) {
	if cfg == nil {
		return
	}

	defaults := cfg.Defaults

	if !cmd.Flags().Changed("tui") && defaults.TUI {
		tuiMode = true
	}
	if !cmd.Flags().Changed("verbose") && defaults.Verbose {
		verbose = true
	}
	if !cmd.Flags().Changed("json") && defaults.JSON {
		jsonOutput = true
	}
	if !cmd.Flags().Changed("csv") && defaults.CSV {
		csvOutput = true
	}
	if !cmd.Flags().Changed("no-color") && defaults.NoColor {
		noColor = true
	}

	if !cmd.Flags().Changed("mode") && defaults.Mode != "" {
		modeFlag = defaults.Mode
	}
	if !cmd.Flags().Changed("max-hops") {
		if defaults.MaxHops > 0 {
			maxHops = defaults.MaxHops
		} else {
			maxHops = 30
		}
	}
	if !cmd.Flags().Changed("timeout-ms") {
		if defaults.Timeout > 0 {
			timeoutMS = defaults.Timeout.Milliseconds()
		} else {
			timeoutMS = 1000
		}
	}
	if !cmd.Flags().Changed("port") {
		if defaults.Port > 0 {
			destPort = defaults.Port
		} else {
			destPort = 443
		}
	}

	if !defaults.Enrichment.Enabled {
		noEnrich = true
	}
	if !cmd.Flags().Changed("no-rdns") && !defaults.Enrichment.RDNS {
		noRDNS = true
	}
	if !cmd.Flags().Changed("no-asn") && !defaults.Enrichment.ASN {
		noASN = true
	}
	if !cmd.Flags().Changed("no-geoip") && !defaults.Enrichment.GeoIP {
		noGeoIP = true
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tcptrace %s\n", version)
		fmt.Printf("  Commit: %s\n", commit)
		fmt.Printf("  Built:  %s\n", date)
		fmt.Printf("  Config: %s\n", config.GetConfigPath())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage tcptrace configuration file.

Commands:
  tcptrace config --init     Create default config file
  tcptrace config --show     Show current configuration
  tcptrace config --path     Show config file path`,
	RunE: runConfig,
}

var (
	configInit bool
	configShow bool
	configPath bool
)

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Create default config file")
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show current configuration")
	configCmd.Flags().BoolVar(&configPath, "path", false, "Show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configPath {
		fmt.Println(config.GetConfigPath())
		return nil
	}

	if configInit {
		path := config.GetConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		cfg := config.DefaultConfig()
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}

		fmt.Printf("Created config file: %s\n", path)
		fmt.Println("\nEdit this file to customize defaults.")
		fmt.Println("Example: Set 'tui: true' under 'defaults:' to always use TUI mode.")
		return nil
	}

	if configShow {
		fmt.Println(config.GenerateExample())
		return nil
	}

	return cmd.Help()
}

// parsePositional applies the positional surface host [port] [max_hops]
// [timeout_ms], overwriting any flag/config default for args present.
func parsePositional(args []string) (host string, err error) {
	host = args[0]

	if len(args) > 1 {
		p, perr := strconv.Atoi(args[1])
		if perr != nil {
			return "", fmt.Errorf("invalid port %q: %w", args[1], perr)
		}
		destPort = p
	}
	if len(args) > 2 {
		h, herr := strconv.Atoi(args[2])
		if herr != nil {
			return "", fmt.Errorf("invalid max_hops %q: %w", args[2], herr)
		}
		maxHops = h
	}
	if len(args) > 3 {
		ms, merr := strconv.ParseInt(args[3], 10, 64)
		if merr != nil {
			return "", fmt.Errorf("invalid timeout_ms %q: %w", args[3], merr)
		}
		timeoutMS = ms
	}

	return host, nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	var target string

	if len(args) == 0 {
		var err error
		target, err = promptForTarget()
		if err != nil {
			return err
		}
	} else {
		var err error
		target, err = parsePositional(args)
		if err != nil {
			return err
		}
	}

	if cfg != nil && cfg.Aliases != nil {
		if alias, ok := cfg.Aliases[target]; ok {
			target = alias
		}
	}

	mode, ok := traceengine.ParseMode(modeFlag)
	if !ok {
		return fmt.Errorf("invalid mode %q: want auto, connect, or raw", modeFlag)
	}

	traceConfig := trace.DefaultConfig()
	traceConfig.MaxHops = maxHops
	traceConfig.Timeout = time.Duration(timeoutMS) * time.Millisecond
	traceConfig.Port = destPort
	traceConfig.Mode = mode

	traceConfig.EnableEnrichment = !noEnrich
	traceConfig.EnableRDNS = !noRDNS && !noEnrich
	traceConfig.EnableASN = !noASN && !noEnrich
	traceConfig.EnableGeoIP = !noGeoIP && !noEnrich

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		traceConfig.DiagSink = traceengine.NewSlogSink(slog.New(slog.NewJSONHandler(f, nil)))
	}

	if cfg != nil && cfg.MaxMind.Enabled && cfg.MaxMind.LicenseKey != "" {
		maxmindDB, err := initMaxMind(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: MaxMind initialization failed: %v\n", err)
			fmt.Fprintf(os.Stderr, "Falling back to online APIs...\n\n")
		} else if maxmindDB != nil {
			traceConfig.MaxMindDB = maxmindDB
		}
	}

	outputConfig := output.Config{
		Colors:     !noColor,
		NoHostname: false,
		NoASN:      noASN,
		NoGeoIP:    noGeoIP,
	}

	if tuiMode {
		return tui.Run(target, traceConfig)
	}

	var textFormatter *output.TextFormatter
	if !jsonOutput && !csvOutput {
		textFormatter = output.NewTextFormatter(outputConfig)
		traceConfig.OnHop = func(hop *trace.Hop) {
			fmt.Print(textFormatter.FormatHop(hop))
			os.Stdout.Sync()
		}
	}

	tracer, err := trace.New(traceConfig)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	defer tracer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := tracer.Trace(ctx, target)
	if err != nil {
		return fmt.Errorf("trace failed: %w", err)
	}

	if jsonOutput || csvOutput {
		var format output.Format
		if jsonOutput {
			format = output.FormatJSON
		} else {
			format = output.FormatCSV
		}
		writer := output.NewWriter(format, outputConfig)
		if err := writer.Write(result); err != nil {
			return err
		}
	} else if verbose {
		writer := output.NewWriter(output.FormatVerbose, outputConfig)
		if err := writer.Write(result); err != nil {
			return err
		}
	} else {
		fmt.Println(strings.Repeat("-", 43))
		fmt.Printf("Total hops: %d\n", result.Summary.TotalHops)
	}

	if htmlOutput != "" {
		htmlFormatter := output.NewHTMLFormatter(outputConfig)
		if err := output.WriteToFile(result, htmlOutput, htmlFormatter); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nHTML report saved to: %s\n", htmlOutput)
	}

	return nil
}

// promptForTarget displays an interactive prompt for the user to enter a target.
func promptForTarget() (string, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("╔═══════════════════════════════════════════════════════════╗")
	cyan.Println("║              tcptrace - TCP SYN path tracer                ║")
	cyan.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("  Examples:")
	yellow.Println("    • google.com      - Trace to Google")
	yellow.Println("    • 8.8.8.8         - Trace to Google DNS")
	yellow.Println("    • cloudflare.com  - Trace to Cloudflare")
	fmt.Println()

	if cfg != nil && len(cfg.Aliases) > 0 {
		fmt.Println("  Aliases:")
		for alias, target := range cfg.Aliases {
			yellow.Printf("    • %s → %s\n", alias, target)
		}
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)

	for {
		green.Print("  Enter target (IP or hostname): ")
		os.Stdout.Sync()

		input, err := reader.ReadString('\n')
		if err != nil {
			if err.Error() == "EOF" {
				return "", fmt.Errorf("no input provided")
			}
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		target := strings.TrimSpace(input)

		if target == "" {
			color.Red("  ✗ Target cannot be empty. Please try again.")
			fmt.Println()
			continue
		}

		if target == "q" || target == "quit" || target == "exit" {
			fmt.Println("  Goodbye!")
			os.Exit(0)
		}

		fmt.Println()
		return target, nil
	}
}

// initMaxMind initializes MaxMind database, downloading if necessary.
func initMaxMind(cfg *config.Config) (*enrich.MaxMindDB, error) {
	if !cfg.MaxMind.Enabled || cfg.MaxMind.LicenseKey == "" {
		return nil, nil
	}

	asnPath := config.GetASNDBPath()
	geoPath := config.GetGeoDBPath()

	maxmindConfig := enrich.MaxMindDBConfig{
		LicenseKey: cfg.MaxMind.LicenseKey,
		ASNDBPath:  asnPath,
		GeoDBPath:  geoPath,
	}

	db, err := enrich.NewMaxMindDB(maxmindConfig)
	if err != nil {
		return nil, err
	}

	if cfg.MaxMind.UpdateHours > 0 {
		maxAge := time.Duration(cfg.MaxMind.UpdateHours) * time.Hour
		if db.NeedsUpdate(maxAge) {
			fmt.Fprintf(os.Stderr, "Updating MaxMind databases...\n")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if err := db.DownloadDatabases(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to update databases: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "MaxMind databases updated successfully.\n\n")
			}
		}
	}

	if !db.HasASN() && !db.HasGeo() {
		fmt.Fprintf(os.Stderr, "Downloading MaxMind databases (first run)...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := db.DownloadDatabases(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to download databases: %w", err)
		}
		fmt.Fprintf(os.Stderr, "MaxMind databases downloaded successfully.\n\n")
	}

	return db, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}
