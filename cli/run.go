package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ka2n/jobharvest/api"
	"github.com/ka2n/jobharvest/config"
	"github.com/ka2n/jobharvest/log"
	"github.com/ka2n/jobharvest/mcp"
	"github.com/mattn/go-isatty"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	// Command line flags
	configPath string
	viewFlag   bool
	facets     = facetFlag{}

	// flagValues only carries flag defaults for --help; set flags are read back
	// through config.ApplyFlags
	flagValues = config.Default()

	// Root command
	rootCmd = &cobra.Command{
		Use:   "jobharvest [site-url]",
		Short: "Harvest job listings from a Workday careers site",
		Long: `jobharvest pages through the jobs API behind a Workday careers site,
normalizes every listing into a fixed schema and writes the result as CSV.

The site can be given as an argument or with --url:
  jobharvest https://pultegroup.wd1.myworkdayjobs.com/PGI
  jobharvest --url pultegroup.wd1.myworkdayjobs.com/PGI --json-output jobs.json

Records collected before a failure are always written.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRoot,
	}

	// Version command
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print detailed version information about jobharvest",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobharvest version %s\n", api.Version)
			if api.VersionCommit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", api.VersionCommit)
			}
		},
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	f.StringVar(&flagValues.URL, "url", "", "Careers site URL, e.g. https://acme.wd1.myworkdayjobs.com/External")
	f.StringVarP(&flagValues.Output, "output", "o", "", "CSV output path (default: <output-dir>/<company>_jobs_<timestamp>.csv)")
	f.StringVar(&flagValues.OutputDir, "output-dir", flagValues.OutputDir, "Directory for the default CSV output")
	f.StringVar(&flagValues.JSONOutput, "json-output", "", "Also write records as a JSON array to this path")
	f.StringVar(&flagValues.SQLiteOutput, "sqlite-output", "", "Also write records to a SQLite database at this path")
	f.StringVar(&flagValues.Label, "label", "", "Company name stamped on records (default: derived from the URL)")
	f.Var(&flagValues.Delay, "delay", "Delay between pages and base retry backoff, in seconds (1.5) or with a unit (1500ms)")
	f.IntVar(&flagValues.MaxRetries, "max-retries", flagValues.MaxRetries, "Attempts per page before giving up")
	f.IntVar(&flagValues.Limit, "limit", flagValues.Limit, "Listings requested per page")
	f.IntVar(&flagValues.MaxPages, "max-pages", flagValues.MaxPages, "Stop after this many pages")
	f.Var(&flagValues.Timeout, "timeout", "Timeout for a single request")
	f.Float64Var(&flagValues.Jitter, "jitter", 0, "Random extra backoff as a fraction of the base wait (0-1)")
	f.Float64Var(&flagValues.MaxRPS, "max-rps", 0, "Cap on requests per second across pages and retries (0: no cap)")
	f.Var(&flagValues.CacheTTL, "cache-ttl", "Cache responses for this long (0: no cache)")
	f.StringVar(&flagValues.CacheDir, "cache-dir", "", "Response cache directory (default: user cache dir)")
	f.BoolVar(&flagValues.ForceUpdate, "force-update", false, "Ignore cached responses")
	f.VarP(facets, "filter", "f", "Facet filter sent as appliedFacets; repeatable")
	f.BoolVar(&viewFlag, "view", false, "Browse the full report in a pager after harvesting")
	f.BoolVarP(&flagValues.Verbose, "verbose", "v", false, "Log debug output including HTTP traffic")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcp.Command())
}

// Run executes the main CLI functionality
func Run() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		log.SetVerbose(true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := api.Harvest(ctx, cfg)
	if report == nil {
		return err
	}

	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if perr := printReport(cmd.OutOrStdout(), report, tty); perr != nil {
		log.Warn("failed to render summary", "error", perr)
	}
	if viewFlag && tty {
		content, rerr := renderMarkdown(reportMarkdown(report, -1))
		if rerr != nil {
			return failure.Wrap(rerr)
		}
		if perr := RunPager(content, statusLine(report)); perr != nil {
			log.Warn("pager exited with error", "error", perr)
		}
	}
	return err
}

// loadConfig layers the config file, environment, flags and the positional URL
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		if cmd.Flags().Changed("url") && args[0] != cfg.URL {
			return nil, failure.New(InvalidArguments,
				failure.Message("Give the site URL either as an argument or with --url, not both"),
			)
		}
		cfg.URL = args[0]
	}
	cfg.Filters = facets.merge(cfg.Filters)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
