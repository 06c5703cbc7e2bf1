package main

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"scrape-portal/internal/batch"
	"scrape-portal/internal/jobs"
	"scrape-portal/internal/models"
	"scrape-portal/internal/results"
	"scrape-portal/pkg/keywords"
)

func (c *cli) submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <keywords...>",
		Short: "Submit a scraping job",
		Long: `Submit one scraping job. Each argument is a keyword and may itself hold a
comma or newline separated list, so "cats, dogs" and cats dogs are equivalent.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kws := keywords.Parse(strings.Join(args, ","))
			submitted, err := c.app.Submitter.Submit(cmd.Context(), models.User{Email: c.email}, kws)
			if err != nil {
				return err
			}

			pterm.Success.Printf("Job submitted: %s\n", submitted.JobName)
			pterm.Info.Printf("Keywords: %s\n", strings.Join(submitted.Keywords, ", "))
			pterm.Info.Printf("Results will appear under %s/\n", submitted.Identity)

			// Local jobs are child processes and die with the CLI.
			if local, ok := c.app.Batch.(*batch.Local); ok {
				pterm.Info.Println("Waiting for the local job to exit")
				local.Wait()
			}
			return nil
		},
	}
}

func (c *cli) jobsCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List your jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			states, err := jobs.ParseStates(state)
			if err != nil {
				return err
			}
			list, err := c.app.Lister.ListByState(cmd.Context(), c.email, states...)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				pterm.Warning.Println("No jobs found")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(jobsTable(list)).Render()
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "active, completed or comma separated states such as RUNNING,FAILED")
	return cmd
}

func jobsTable(list []jobs.Summary) pterm.TableData {
	data := pterm.TableData{{"JOB", "STATE", "CREATED"}}
	for _, j := range list {
		created := "-"
		if !j.CreateTime.IsZero() {
			created = j.CreateTime.Local().Format(time.DateTime)
		}
		data = append(data, []string{j.ID, string(j.State), created})
	}
	return data
}

func (c *cli) resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List your result files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Catalog.List(cmd.Context(), c.email)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				pterm.Warning.Println("No results yet")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(resultsTable(list)).Render()
		},
	}
}

func resultsTable(list []results.Result) pterm.TableData {
	data := pterm.TableData{{"FILE", "TOPIC", "TIMESTAMP", "SIZE"}}
	for _, r := range list {
		ts := r.Timestamp.Format(time.DateTime)
		if r.ParseError != "" {
			ts = "?"
		}
		data = append(data, []string{r.Name, r.Topic, ts, fmt.Sprintf("%d", r.Size)})
	}
	return data
}

func (c *cli) fetchCmd() *cobra.Command {
	var output string
	var rows int

	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "Preview a result file or save it with -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, key, err := c.app.Catalog.FetchForUser(cmd.Context(), c.email, args[0])
			if err != nil {
				return err
			}

			if output != "" {
				if output == "." {
					output = path.Base(key)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return errors.Wrapf(err, "write %s", output)
				}
				pterm.Success.Printf("Saved %s (%d bytes) to %s\n", key, len(data), output)
				return nil
			}

			table, err := results.Preview(data, rows)
			if err != nil {
				return err
			}
			preview := pterm.TableData{table.Header}
			preview = append(preview, table.Rows...)
			if err := pterm.DefaultTable.WithHasHeader().WithData(preview).Render(); err != nil {
				return err
			}
			if table.Truncated {
				pterm.Info.Printf("Showing the first %d rows\n", len(table.Rows))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the file here instead of previewing (\".\" keeps its name)")
	cmd.Flags().IntVar(&rows, "rows", results.DefaultPreviewRows, "rows to preview")
	return cmd
}
