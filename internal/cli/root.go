package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/linkmeta/internal/config"
)

var (
	cfgFile       string
	timeout       time.Duration
	maxConcurrent int
	cacheCapacity int
	noIcon        bool
	iconBackend   string
	iconPath      string
	userAgent     string
	verbose       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkmeta",
	Short: "Resolve URLs into link preview metadata.",
	Long: `linkmeta fetches web pages and turns them into small, display-ready
records: title, description, site name and site icon.

Resolutions are deduplicated and cached, outbound requests are bounded by a
concurrency ceiling, and well known sites get dedicated enrichment rules.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteWithArgs runs the root command with args, writing output to out.
func ExecuteWithArgs(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., /home/myuser/linkmeta.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for a single outbound request")
	rootCmd.PersistentFlags().IntVar(&maxConcurrent, "max-concurrent", 0, "maximum simultaneous outbound requests")
	rootCmd.PersistentFlags().IntVar(&cacheCapacity, "cache-capacity", 0, "maximum number of cached records")
	rootCmd.PersistentFlags().BoolVar(&noIcon, "no-icon", false, "skip site icon resolution")
	rootCmd.PersistentFlags().StringVar(&iconBackend, "icon-backend", "", "icon cache backend: file, sqlite, redis, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&iconPath, "icon-path", "", "icon cache path for the file and sqlite backends")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// InitConfigWithError loads the config file (when given) and LINKMETA_*
// environment variables, then applies command line overrides.
func InitConfigWithError() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("error initializing config: %w", err)
	}

	configBuilder := &cfg

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if maxConcurrent > 0 {
		configBuilder = configBuilder.WithMaxConcurrent(maxConcurrent)
	}

	if cacheCapacity > 0 {
		configBuilder = configBuilder.WithCacheCapacity(cacheCapacity)
	}

	if noIcon {
		configBuilder = configBuilder.WithShowIcon(false)
	}

	if iconBackend != "" {
		configBuilder = configBuilder.WithIconBackend(iconBackend)
	}

	if iconPath != "" {
		configBuilder = configBuilder.WithIconPath(iconPath)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	timeout = 0
	maxConcurrent = 0
	cacheCapacity = 0
	noIcon = false
	iconBackend = ""
	iconPath = ""
	userAgent = ""
	verbose = false
	jsonOutput = false
	addr = defaultAddr
	rateLimit = 0
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetMaxConcurrentForTest(n int) {
	maxConcurrent = n
}

func SetCacheCapacityForTest(capacity int) {
	cacheCapacity = capacity
}

func SetNoIconForTest(skip bool) {
	noIcon = skip
}

func SetIconBackendForTest(backend string) {
	iconBackend = backend
}

func SetIconPathForTest(path string) {
	iconPath = path
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}
