package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ondemand-reports-api/internal/dto"
	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/internal/service"
)

func parseEndDate(raw string) (*time.Time, error) {
	return dto.ParseEndDate(raw)
}

func newTypesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List configured report types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := app.reportTypes()
			if types == nil {
				types = []models.ReportType{}
			}
			return writeOut(cmd, app, types)
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List report requests of a batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.manager(cmd)
			if err != nil {
				return err
			}
			records, err := manager.LoadReports(commandContext(cmd))
			if err != nil {
				return err
			}
			return writeOut(cmd, app, dto.ReportListResponse{Records: records, ProcessedWithError: manager.ProcessedWithError()})
		},
	}
}

func newSubmitCmd(app *App) *cobra.Command {
	var (
		dataset  string
		password string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Request a new report for a batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataset == "" {
				return errors.New("--dataset is required")
			}
			manager, err := app.manager(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if _, err := manager.LoadReports(ctx); err != nil {
				return err
			}
			created, err := manager.SubmitRequest(ctx, models.ReportType{Dataset: dataset}, service.NewCredentialField(password))
			if err != nil {
				return err
			}
			return writeOut(cmd, app, dto.SubmitReportResponse{Record: created, Records: manager.Records()})
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset to request")
	cmd.Flags().StringVar(&password, "password", "", "Encryption password for protected report types")
	return cmd
}

func newRetryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <request-id>",
		Short: "Print a fresh download link for a report request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := app.manager(cmd)
			if err != nil {
				return err
			}
			link, err := manager.RetryDownload(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return writeOut(cmd, app, dto.OpenLinkResponse{OpenURL: link})
		},
	}
}
