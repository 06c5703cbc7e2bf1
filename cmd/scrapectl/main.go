// Command scrapectl submits and inspects scraping jobs from a terminal,
// using the same configuration and backends as the server.
package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"scrape-portal/internal/app"
	"scrape-portal/internal/config"
	"scrape-portal/internal/logger"
)

type cli struct {
	email   string
	verbose bool
	app     *app.App
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		for _, hint := range errors.GetAllHints(err) {
			pterm.Info.Println(hint)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "scrapectl",
		Short:         "Submit scraping jobs and fetch their results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			if c.email == "" {
				return errors.New("--email is required")
			}
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().StringVar(&c.email, "email", "", "email of the user to act as")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log backend activity")

	root.AddCommand(
		c.submitCmd(),
		c.jobsCmd(),
		c.resultsCmd(),
		c.fetchCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.verbose {
		if err := logger.Initialize("debug", false); err != nil {
			return err
		}
	}

	a, err := app.New(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}
