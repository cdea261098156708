// Command auditrail-cli queries and writes the audit log of an auditrail server.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/auditrail/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3030"

var (
	apiClient  *client.Client
	flagURL    string
	flagActor  string
	flagTenant string
	flagFmt    string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("auditrail version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("auditrail version %s-dev", version)
}

// configFile is ~/.auditrail/config.yaml. Top-level settings apply unless the
// active profile overrides them.
type configFile struct {
	URL           string                   `yaml:"url"`
	Actor         string                   `yaml:"actor"`
	Tenant        string                   `yaml:"tenant"`
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL    string `yaml:"url"`
	Actor  string `yaml:"actor"`
	Tenant string `yaml:"tenant"`
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "auditrail",
		Short:   "auditrail CLI: read entity history and record audit entries",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flagFmt); err != nil {
				return err
			}
			resolveConfig()
			var opts []client.Option
			if flagActor != "" {
				opts = append(opts, client.WithActor(flagActor))
			}
			if flagTenant != "" {
				opts = append(opts, client.WithTenant(flagTenant))
			}
			apiClient = client.New(flagURL, opts...)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "auditrail server URL (env: AUDITRAIL_URL)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Actor recorded on manual entries (env: AUDITRAIL_ACTOR)")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant identifier (env: AUDITRAIL_TENANT)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newDoctorCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".auditrail", "config.yaml"), nil
}

func loadConfigFile() (*configFile, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// resolve returns the effective settings of the active profile.
func (c *configFile) resolve() configProfile {
	p := configProfile{URL: c.URL, Actor: c.Actor, Tenant: c.Tenant}
	name := c.ActiveProfile
	if name == "" {
		name = "default"
	}
	if prof, ok := c.Profiles[name]; ok {
		if prof.URL != "" {
			p.URL = prof.URL
		}
		if prof.Actor != "" {
			p.Actor = prof.Actor
		}
		if prof.Tenant != "" {
			p.Tenant = prof.Tenant
		}
	}
	return p
}

// resolveConfig fills unset flags from env, then from the config file.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("AUDITRAIL_URL"); v != "" {
			flagURL = v
		}
	}
	if flagActor == "" {
		flagActor = os.Getenv("AUDITRAIL_ACTOR")
	}
	if flagTenant == "" {
		flagTenant = os.Getenv("AUDITRAIL_TENANT")
	}

	cfg, err := loadConfigFile()
	if err != nil {
		return
	}
	p := cfg.resolve()
	if flagURL == defaultURL && p.URL != "" {
		flagURL = p.URL
	}
	if flagActor == "" {
		flagActor = p.Actor
	}
	if flagTenant == "" {
		flagTenant = p.Tenant
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
