package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/ka2n/jobharvest/api"
	"github.com/ka2n/jobharvest/api/harvest"
	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/api/sink"
	"github.com/ka2n/jobharvest/api/source"
	"github.com/ka2n/jobharvest/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

var validate = validator.New()

const defaultSample = 3

func InitTools() []server.ServerTool {
	tools := []server.ServerTool{}

	tools = append(tools, newServerTool(ResolveEndpoint()))
	tools = append(tools, newServerTool(HarvestJobs()))

	return tools
}

// decodeArgs fills out from the raw tool arguments and validates it
func decodeArgs(ctx context.Context, raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return err
	}
	return validate.StructCtx(ctx, out)
}

type siteInfo struct {
	Company  string `json:"company"`
	Label    string `json:"label"`
	Version  string `json:"version"`
	SiteID   string `json:"site"`
	SiteURL  string `json:"site_url"`
	Endpoint string `json:"endpoint"`
}

func newSiteInfo(site source.Site) siteInfo {
	return siteInfo{
		Company:  site.Company,
		Label:    site.Label(),
		Version:  site.Version,
		SiteID:   site.SiteID,
		SiteURL:  site.BaseURL(),
		Endpoint: site.Endpoint(),
	}
}

func ResolveEndpoint() (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"resolve_endpoint",
			mcp.WithDescription("Derive the Workday jobs API endpoint, company and site name from a careers site URL"),
			mcp.WithString("url", mcp.Required(), mcp.Description("Careers site URL, e.g. https://acme.wd1.myworkdayjobs.com/External")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				URL string `json:"url" validate:"required"`
			}
			var args ToolArguments
			if err := decodeArgs(ctx, req.Params.Arguments, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			site, err := source.ParseURL(args.URL)
			if err != nil {
				return mcp.NewToolResultError(errorMessage(err)), nil
			}

			b, err := json.Marshal(newSiteInfo(site))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(b)), nil
		}
}

func HarvestJobs() (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"harvest_jobs",
			mcp.WithDescription("Harvest every job listing from a Workday careers site, write them to CSV (and optionally JSON/SQLite) and return run metrics with sample records"),
			mcp.WithString("url", mcp.Required(), mcp.Description("Careers site URL, e.g. https://acme.wd1.myworkdayjobs.com/External")),
			mcp.WithString("output", mcp.Description("CSV output path; defaults to output/<company>_jobs_<timestamp>.csv")),
			mcp.WithString("json_output", mcp.Description("Optional JSON output path")),
			mcp.WithString("sqlite_output", mcp.Description("Optional SQLite output path")),
			mcp.WithString("label", mcp.Description("Company name stamped on records")),
			mcp.WithString("delay", mcp.Description("Delay between pages, in seconds (1.5) or with a unit (1500ms)")),
			mcp.WithNumber("limit", mcp.Description("Listings per page (1-100, default 20)")),
			mcp.WithNumber("max_pages", mcp.Description("Page cap (default 500)")),
			mcp.WithNumber("max_retries", mcp.Description("Attempts per page (default 3)")),
			mcp.WithNumber("sample", mcp.Description("Number of records to include in the response (default 3)")),
			mcp.WithObject("filters", mcp.Description("Facet filters sent as appliedFacets")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				URL          string         `json:"url" validate:"required"`
				Output       string         `json:"output"`
				JSONOutput   string         `json:"json_output"`
				SQLiteOutput string         `json:"sqlite_output"`
				Label        string         `json:"label"`
				Delay        string         `json:"delay"`
				Limit        int            `json:"limit" validate:"omitempty,gte=1,lte=100"`
				MaxPages     int            `json:"max_pages" validate:"omitempty,gte=1"`
				MaxRetries   int            `json:"max_retries" validate:"omitempty,gte=1,lte=20"`
				Sample       *int           `json:"sample" validate:"omitempty,gte=0,lte=100"`
				Filters      map[string]any `json:"filters"`
			}
			var args ToolArguments
			if err := decodeArgs(ctx, req.Params.Arguments, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			cfg, err := harvestConfig(args.URL, func(cfg *config.Config) error {
				cfg.Output = args.Output
				cfg.JSONOutput = args.JSONOutput
				cfg.SQLiteOutput = args.SQLiteOutput
				cfg.Label = args.Label
				cfg.Filters = args.Filters
				if args.Delay != "" {
					if err := cfg.Delay.Set(args.Delay); err != nil {
						return failure.Wrap(err, failure.WithCode(config.ErrInvalidConfig),
							failure.Message("Invalid delay: "+err.Error()))
					}
				}
				if args.Limit > 0 {
					cfg.Limit = args.Limit
				}
				if args.MaxPages > 0 {
					cfg.MaxPages = args.MaxPages
				}
				if args.MaxRetries > 0 {
					cfg.MaxRetries = args.MaxRetries
				}
				return nil
			})
			if err != nil {
				return mcp.NewToolResultError(errorMessage(err)), nil
			}

			report, err := api.Harvest(ctx, cfg)
			if report == nil {
				return mcp.NewToolResultError(errorMessage(err)), nil
			}

			sample := defaultSample
			if args.Sample != nil {
				sample = *args.Sample
			}
			b, merr := json.Marshal(newHarvestInfo(report, sample, err))
			if merr != nil {
				return mcp.NewToolResultError(merr.Error()), nil
			}
			result := mcp.NewToolResultText(string(b))
			result.IsError = err != nil
			return result, nil
		}
}

// harvestConfig starts from the defaults, lets apply override them and validates
func harvestConfig(url string, apply func(cfg *config.Config) error) (*config.Config, error) {
	cfg := config.Default()
	cfg.URL = url
	if err := apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type harvestInfo struct {
	Site    siteInfo            `json:"site"`
	Metrics harvest.Metrics     `json:"metrics"`
	Outputs []sink.Written      `json:"outputs"`
	Sample  []record.Normalized `json:"sample"`
	Error   string              `json:"error,omitempty"`
}

func newHarvestInfo(report *api.Report, sample int, runErr error) harvestInfo {
	info := harvestInfo{
		Site:    newSiteInfo(report.Site),
		Metrics: report.Result.Metrics,
		Outputs: lo.Filter(report.Outputs, func(w sink.Written, _ int) bool { return w.Dest != "" }),
		Sample:  lo.Slice(report.Result.Records, 0, sample),
	}
	info.Site.Label = report.Label
	if runErr != nil {
		info.Error = errorMessage(runErr)
	}
	return info
}

// errorMessage prefers the user-facing failure message
func errorMessage(err error) string {
	return api.ErrorMessage(err)
}
