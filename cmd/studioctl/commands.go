package main

import (
	"github.com/urfave/cli/v3"
)

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		exportCommand(r),
		sharesCommand(r),
		leadsCommand(r),
		analyticsCommand(r),
		storeCommand(r),
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "File to write, or - for stdout",
		Value:   "-",
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export data as JSON",
		Commands: []*cli.Command{
			{
				Name:   "analytics",
				Usage:  "Export the analytics summary and every video record",
				Flags:  []cli.Flag{outputFlag()},
				Action: r.ExportAnalytics,
			},
			{
				Name:   "leads",
				Usage:  "Export lead stats and every lead",
				Flags:  []cli.Flag{outputFlag()},
				Action: r.ExportLeads,
			},
		},
	}
}

func sharesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "shares",
		Usage: "Manage share links",
		Commands: []*cli.Command{
			{
				Name:   "cleanup",
				Usage:  "Delete expired share links",
				Action: r.CleanupShares,
			},
		},
	}
}

func leadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "leads",
		Usage: "Inspect the lead pipeline",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Print lead statistics",
				Action: r.LeadStats,
			},
		},
	}
}

func analyticsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Inspect video analytics",
		Commands: []*cli.Command{
			{
				Name:   "summary",
				Usage:  "Print the analytics summary",
				Action: r.AnalyticsSummary,
			},
		},
	}
}

func storeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Inspect the key-value store",
		Commands: []*cli.Command{
			{
				Name:   "keys",
				Usage:  "List stored keys and value sizes",
				Action: r.StoreKeys,
			},
		},
	}
}
