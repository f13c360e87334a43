package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

func newLayananCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layanan",
		Short: "Browse the service catalogue",
	}

	var kategori string
	list := &cobra.Command{
		Use:   "list",
		Short: "List active services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := service.NewCatalogService(a.api, nil, 0, a.logger)
			items, err := catalog.List(cmd.Context(), models.Kategori(strings.ToLower(kategori)), false)
			if err != nil {
				return err
			}
			printLayanan(a.out, items)
			return nil
		},
	}
	list.Flags().StringVarP(&kategori, "kategori", "k", "", "surat, kependudukan, keamanan or perizinan")
	cmd.AddCommand(list)
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		layananID int64
		fields    []string
		files     []string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a document request with its attachments",
		Example: `  portalctl submit --layanan 3 \
    --field nama="Budi Santoso" --field nik=1234567890123456 --field tanggal_lahir=1994-05-01 \
    --field tempat_lahir=Bandung --field jenis_kelamin=Laki-laki --field alamat="Jl. Melati 1" \
    --field no_hp=081234567890 --field keperluan="Melamar pekerjaan" \
    --file ktp=./ktp.pdf --file kk=./kk.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applicant, err := parseApplicant(fields)
			if err != nil {
				return err
			}
			attachments, err := parseAssignments(files, "--file")
			if err != nil {
				return err
			}

			subs, staging, err := a.submissions()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var draftID string
			if len(attachments) > 0 {
				draft, err := staging.CreateDraft(ctx)
				if err != nil {
					return err
				}
				draftID = draft.ID
				for _, kv := range attachments {
					if err := stageFile(cmd, staging, draftID, kv.key, kv.value); err != nil {
						if derr := staging.Discard(ctx, draftID); derr != nil {
							a.debug("discard draft: " + derr.Error())
						}
						return err
					}
				}
			}

			result, err := subs.Submit(ctx, service.SubmitInput{Applicant: applicant, LayananID: layananID, DraftID: draftID})
			if result != nil {
				printSubmission(a.out, result)
			}
			var partial *service.PartialUploadError
			if errors.As(err, &partial) {
				return fmt.Errorf("sebagian berkas gagal diunggah, jalankan: portalctl resume %d", result.PermohonanID)
			}
			return err
		},
	}
	cmd.Flags().Int64Var(&layananID, "layanan", 0, "service id (see: portalctl layanan list)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "applicant field as key=value, repeatable")
	cmd.Flags().StringArrayVar(&files, "file", nil, "attachment as slot=path, repeatable")
	_ = cmd.MarkFlagRequired("layanan")
	return cmd
}

func stageFile(cmd *cobra.Command, staging *service.StagingService, draftID, slot, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if _, err := staging.Stage(cmd.Context(), draftID, slot, filepath.Base(path), info.Size(), f); err != nil {
		return fmt.Errorf("%s (%s): %w", slot, filepath.Base(path), err)
	}
	return nil
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <request-id>",
		Short: "Upload the attachments of a request that did not reach the office",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			subs, _, err := a.submissions()
			if err != nil {
				return err
			}
			result, err := subs.AttachRemaining(cmd.Context(), id)
			if result != nil {
				printSubmission(a.out, result)
			}
			var partial *service.PartialUploadError
			if errors.As(err, &partial) {
				return fmt.Errorf("masih ada %d berkas yang gagal diunggah", len(result.Failed()))
			}
			return err
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <nomor-registrasi>",
		Short: "Track a request by its registration number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := service.NewTrackingService(a.api, a.logger).Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !view.Found {
				return appErrors.Clone(appErrors.ErrNotFound, view.Message)
			}
			printTracking(a.out, view)
			return nil
		},
	}
}

func newKontakCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kontak",
		Short: "Contact the office",
	}

	var in models.KontakInput
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a message to the office",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Pesan == "" {
				msg, err := a.prompt("Pesan: ")
				if err != nil {
					return err
				}
				in.Pesan = msg
			}
			if _, err := service.NewContactService(a.api, a.logger).Send(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Pesan berhasil dikirim")
			return nil
		},
	}
	send.Flags().StringVar(&in.Nama, "nama", "", "sender name")
	send.Flags().StringVar(&in.Email, "email", "", "reply address")
	send.Flags().StringVar(&in.Subjek, "subjek", "", "subject")
	send.Flags().StringVar(&in.Pesan, "pesan", "", "message body (prompted when empty)")
	cmd.AddCommand(send)
	return cmd
}

type assignment struct {
	key   string
	value string
}

// parseAssignments splits repeated key=value flags, keeping their order.
func parseAssignments(raw []string, flag string) ([]assignment, error) {
	out := make([]assignment, 0, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s %q: expected key=value", flag, item)
		}
		out = append(out, assignment{key: key, value: value})
	}
	return out, nil
}

func parseApplicant(raw []string) (models.Applicant, error) {
	var a models.Applicant
	pairs, err := parseAssignments(raw, "--field")
	if err != nil {
		return a, err
	}
	for _, kv := range pairs {
		switch strings.ToLower(kv.key) {
		case "nama":
			a.Nama = kv.value
		case "nik":
			a.NIK = kv.value
		case "tempat_lahir":
			a.TempatLahir = kv.value
		case "tanggal_lahir":
			a.TanggalLahir = kv.value
		case "jenis_kelamin":
			a.JenisKelamin = models.Gender(kv.value)
		case "alamat":
			a.Alamat = kv.value
		case "rt":
			a.RT = kv.value
		case "rw":
			a.RW = kv.value
		case "no_hp":
			a.NoHP = kv.value
		case "email":
			a.Email = kv.value
		case "keperluan":
			a.Keperluan = kv.value
		case "keterangan":
			a.Keterangan = kv.value
		default:
			return a, fmt.Errorf("unknown field %q", kv.key)
		}
	}
	return a, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "ID tidak valid")
	}
	return id, nil
}
