// Package main provides the spanisami command line: the UI API server and
// offline helpers for profiles, CVs, job listings and chat.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/config"
)

var (
	configPath string
	backendURL string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "spanisami",
	Short: "SpaniSami job-seeker assistant",
	Long:  "SpaniSami helps township job seekers turn informal experience into a CV, practise interviews by voice and find nearby jobs.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if !verbose {
			pterm.DisableDebugMessages()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Profile/CV backend base URL (overrides config and BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file over the environment over the
// built-in defaults, then applies command line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	env, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	cfg = cfg.MergeWithDefaults(env)
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = backendURL
	}
	if verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// consoleAlerts prints user-facing alerts to the terminal.
type consoleAlerts struct{}

func (consoleAlerts) Alert(msg string) {
	pterm.Warning.Println(msg)
}

// newBackendClient builds the backend client. No client timeout is set;
// requests are bounded by the command context.
func newBackendClient(cfg config.Config) *backend.Client {
	client := backend.New(cfg.BackendURL, nil)
	if verbose {
		pterm.Debug.Printfln("backend: %s", client.BaseURL())
	}
	return client
}
