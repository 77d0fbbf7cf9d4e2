// Command kimola is a command-line client for the Kimola API.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimola/kimola-go/kimola"
)

// cli holds the global flags shared by every subcommand.
type cli struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	json    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "kimola",
		Short: "Command-line client for the Kimola API",
		Long: `Browse presets, classify text and inspect subscription usage.

The API key is read from --api-key or the KIMOLA_API_KEY environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.apiKey, "api-key", "", "Kimola API key (default $KIMOLA_API_KEY)")
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "API root (default $KIMOLA_BASE_URL or "+kimola.DefaultBaseURL+")")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 60*time.Second, "HTTP timeout")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "print raw JSON")

	root.AddCommand(
		newPresetsCmd(c),
		newQueriesCmd(c),
		newUsageCmd(c),
		newReportCmd(c),
	)
	return root
}

// client builds a Kimola client from flags and environment.
func (c *cli) client() (*kimola.Client, error) {
	key := c.apiKey
	if strings.TrimSpace(key) == "" {
		key = os.Getenv("KIMOLA_API_KEY")
	}
	base := c.baseURL
	if strings.TrimSpace(base) == "" {
		base = os.Getenv("KIMOLA_BASE_URL")
	}
	client, err := kimola.New(kimola.Options{APIKey: key, BaseURL: base, Timeout: c.timeout})
	if err != nil {
		if errors.Is(err, kimola.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: pass --api-key or set KIMOLA_API_KEY", err)
		}
		return nil, err
	}
	return client, nil
}

// withClient runs fn with a client that is closed afterwards.
func (c *cli) withClient(fn func(*kimola.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}
