package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/internal/service"
	"github.com/noah-isme/ondemand-reports-api/pkg/config"
	"github.com/noah-isme/ondemand-reports-api/pkg/ondemand"
)

// App carries the flags shared by every reportctl command.
type App struct {
	BaseURL    string
	Token      string
	Tag        string
	UserID     string
	BatchID    string
	EndDate    string
	PrettyJSON bool
	Verbose    bool

	cfg *config.Config
}

// NewRootCmd builds the reportctl command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "reportctl",
		Short:        "Inspect and request on-demand batch reports",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # List report requests of a batch
  reportctl list --tag batch-tag --batch batch-1

  # Request an encrypted report
  reportctl submit --tag batch-tag --batch batch-1 --user u1 --dataset userinfo-exhaust --password abc123

  # Get a fresh download link
  reportctl retry req-123 --tag batch-tag --batch batch-1
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		app.cfg = cfg
		if app.BaseURL == "" {
			app.BaseURL = cfg.Reports.UpstreamBaseURL
		}
		if app.Token == "" {
			app.Token = cfg.Reports.UpstreamToken
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.BaseURL, "base-url", "", "Report service base URL (default REPORTS_UPSTREAM_BASE_URL)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", "", "Report service bearer token (default REPORTS_UPSTREAM_TOKEN)")
	cmd.PersistentFlags().StringVar(&app.Tag, "tag", "", "Report tag")
	cmd.PersistentFlags().StringVar(&app.UserID, "user", "", "Requesting user id")
	cmd.PersistentFlags().StringVar(&app.BatchID, "batch", "", "Batch id")
	cmd.PersistentFlags().StringVar(&app.EndDate, "end-date", "", "Batch end date (YYYY-MM-DD, RFC3339 or epoch ms)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "Log upstream calls to stderr")

	cmd.AddCommand(newTypesCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newSubmitCmd(app))
	cmd.AddCommand(newRetryCmd(app))

	return cmd
}

func (a *App) reportTypes() []models.ReportType {
	if a.cfg == nil {
		return nil
	}
	return service.ReportTypesFromConfig(a.cfg.Reports.Types)
}

// manager builds a one-shot panel whose notifications go to stderr.
func (a *App) manager(cmd *cobra.Command) (*service.ReportListManager, error) {
	if a.Tag == "" {
		return nil, errors.New("--tag is required")
	}
	if a.BaseURL == "" {
		return nil, errors.New("--base-url is required")
	}

	logger := zap.NewNop()
	if a.Verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = dev
	}

	batch, err := batchRef(a.BatchID, a.EndDate)
	if err != nil {
		return nil, err
	}

	opts := ondemand.Config{BaseURL: a.BaseURL, Token: a.Token, Logger: logger}
	rule := service.EndDateRuleInert
	maxList := models.MaxReportListSize
	if a.cfg != nil {
		opts.Timeout = a.cfg.Reports.UpstreamTimeout
		opts.Retries = a.cfg.Reports.UpstreamRetries
		maxList = a.cfg.Reports.MaxListSize
		if a.cfg.Reports.EnforceBatchEndDate {
			rule = service.EndDateRuleEnforced
		}
	}

	catalog, err := service.NewMessageCatalog("en", nil)
	if err != nil {
		return nil, err
	}

	return service.NewReportListManager(service.PanelConfig{
		Tag:         a.Tag,
		UserID:      a.UserID,
		Batch:       batch,
		ReportTypes: a.reportTypes(),
	}, service.ReportListDeps{
		Upstream:    ondemand.NewClient(opts),
		Evaluator:   service.NewEligibilityEvaluator(rule),
		Notifier:    service.NewWriterNotifier(cmd.ErrOrStderr()),
		Catalog:     catalog,
		Logger:      logger,
		MaxListSize: maxList,
	}), nil
}

func batchRef(batchID, endDate string) (*models.BatchRef, error) {
	if batchID == "" {
		return nil, nil
	}
	ref := &models.BatchRef{BatchID: batchID}
	if endDate == "" {
		return ref, nil
	}
	end, err := parseEndDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --end-date %q: %w", endDate, err)
	}
	ref.EndDate = end
	return ref, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	var (
		raw []byte
		err error
	)
	if app.PrettyJSON {
		raw, err = json.MarshalIndent(v, "", "  ")
	} else {
		raw, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}
