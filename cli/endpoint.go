package cli

import (
	"fmt"

	"github.com/ka2n/jobharvest/api/source"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	openFlag bool

	endpointCmd = &cobra.Command{
		Use:   "endpoint <site-url>",
		Short: "Show the jobs API endpoint derived from a careers site URL",
		Long: `Show how a careers site URL is interpreted: the company, data center,
site name and the jobs API endpoint that a harvest would page through.`,
		Args: cobra.ExactArgs(1),
		RunE: runEndpoint,
	}
)

func init() {
	endpointCmd.Flags().BoolVar(&openFlag, "open", false, "Open the careers site in the default browser")
	rootCmd.AddCommand(endpointCmd)
}

func runEndpoint(cmd *cobra.Command, args []string) error {
	site, err := source.ParseURL(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Company:  %s (%s)\n", site.Company, site.Label())
	fmt.Fprintf(out, "Version:  wd%s\n", site.Version)
	fmt.Fprintf(out, "Site:     %s\n", site.SiteID)
	fmt.Fprintf(out, "Site URL: %s\n", site.BaseURL())
	fmt.Fprintf(out, "Endpoint: %s\n", site.Endpoint())

	if openFlag {
		return browser.OpenURL(site.BaseURL())
	}
	return nil
}
