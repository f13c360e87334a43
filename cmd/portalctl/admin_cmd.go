package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/export"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Staff request console (requires login)",
	}
	cmd.AddCommand(
		newAdminListCmd(a),
		newAdminSetStatusCmd(a),
		newAdminBulkStatusCmd(a),
		newAdminBulkDeleteCmd(a),
		newAdminExportCmd(a),
	)
	return cmd
}

func (a *app) admin(ctx context.Context) (context.Context, *service.AdminService, error) {
	ctx, err := a.authorized(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ctx, service.NewAdminService(a.api, nil, a.logger), nil
}

func newAdminListCmd(a *app) *cobra.Command {
	var (
		q      service.PermohonanQuery
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, filtering the fetched page locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				stage, err := models.ParseStage(status)
				if err != nil {
					return err
				}
				q.Status = stage
			}
			ctx, admin, err := a.admin(cmd.Context())
			if err != nil {
				return err
			}
			list, err := admin.List(ctx, q)
			if err != nil {
				return err
			}
			printPermohonanList(a.out, list)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 1, "upstream page")
	f.IntVar(&q.PerPage, "per-page", service.DefaultPerPage, "rows per upstream page")
	f.StringVar(&status, "status", "", "baru, proses, selesai or ditolak")
	f.StringVarP(&q.Search, "search", "s", "", "match name, id or NIK")
	f.StringVar(&q.Layanan, "layanan", "", "service name")
	f.StringVar(&q.From, "from", "", "created on or after YYYY-MM-DD")
	f.StringVar(&q.To, "to", "", "created on or before YYYY-MM-DD")
	return cmd
}

func newAdminSetStatusCmd(a *app) *cobra.Command {
	var note, from string
	cmd := &cobra.Command{
		Use:   "set-status <id> <stage>",
		Short: "Move one request to a new stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			target, err := models.ParseStage(args[1])
			if err != nil {
				return err
			}
			in := service.TransitionInput{Target: target, Note: note}
			if from != "" {
				if in.Current, err = models.ParseStage(from); err != nil {
					return err
				}
			}
			ctx, admin, err := a.admin(cmd.Context())
			if err != nil {
				return err
			}
			_, notice, err := admin.Transition(ctx, id, in)
			if err != nil {
				return err
			}
			printNotice(a.out, notice)
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "note stored with the status event")
	cmd.Flags().StringVar(&from, "from", "", "refuse unless the request is currently at this stage")
	return cmd
}

func newAdminBulkStatusCmd(a *app) *cobra.Command {
	var (
		ids  []int64
		note string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "bulk-status <stage>",
		Short: "Move several requests to one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := models.ParseStage(args[0])
			if err != nil {
				return err
			}
			ctx, admin, err := a.admin(cmd.Context())
			if err != nil {
				return err
			}
			return a.confirmed(yes, func(confirmed bool) (*service.BulkOutcome, error) {
				return admin.BulkTransition(ctx, ids, target, note, confirmed)
			})
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "comma separated request ids")
	cmd.Flags().StringVarP(&note, "note", "n", "", "note stored with every status event")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAdminBulkDeleteCmd(a *app) *cobra.Command {
	var (
		ids []int64
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "bulk-delete",
		Short: "Delete several requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, admin, err := a.admin(cmd.Context())
			if err != nil {
				return err
			}
			return a.confirmed(yes, func(confirmed bool) (*service.BulkOutcome, error) {
				return admin.BulkDelete(ctx, ids, confirmed)
			})
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "comma separated request ids")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmed runs call once, and again with confirmation when the service asks for it and the
// operator agrees on stdin.
func (a *app) confirmed(yes bool, call func(confirmed bool) (*service.BulkOutcome, error)) error {
	outcome, err := call(yes)
	var prompt *service.ConfirmationError
	if errors.As(err, &prompt) {
		ok, perr := a.confirm(prompt.Prompt)
		if perr != nil {
			return perr
		}
		if !ok {
			fmt.Fprintln(a.out, "Dibatalkan")
			return nil
		}
		outcome, err = call(true)
	}
	if err != nil {
		return err
	}
	printBulkOutcome(a.out, outcome)
	return nil
}

func newAdminExportCmd(a *app) *cobra.Command {
	var (
		format, out, from, to, status string
	)
	cmd := &cobra.Command{
		Use:       "export <permohonan|layanan|pengguna>",
		Short:     "Render a report as CSV, PDF or XLSX",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(service.ReportPermohonan), string(service.ReportLayanan), string(service.ReportPengguna)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.authorized(cmd.Context())
			if err != nil {
				return err
			}
			req := service.ReportRequest{
				Type:      service.ReportType(strings.ToLower(args[0])),
				Format:    service.ReportFormat(strings.ToLower(format)),
				StartDate: from,
				EndDate:   to,
				Status:    models.Stage(strings.ToLower(status)),
			}
			reports := service.NewReportService(a.api,
				export.NewCSVExporter(true), export.NewPDFExporter(a.cfg.OfficeName), export.NewXLSXExporter(), a.logger)
			file, err := reports.Generate(ctx, req)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Filename
			}
			if err := os.WriteFile(out, file.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(a.out, "Laporan disimpan ke %s (%d baris)\n", out, file.Rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", string(service.FormatCSV), "csv, pdf or xlsx")
	f.StringVarP(&out, "out", "o", "", "output file (default: generated name)")
	f.StringVar(&from, "from", "", "period start YYYY-MM-DD")
	f.StringVar(&to, "to", "", "period end YYYY-MM-DD")
	f.StringVar(&status, "status", "", "only requests at this stage")
	return cmd
}
