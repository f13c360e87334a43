package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
)

const dateLayout = "02/01/2006"

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatDate(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func printNotice(w io.Writer, n *models.Notice) {
	if n == nil {
		return
	}
	fmt.Fprintln(w, n.Message)
}

func printLayanan(w io.Writer, items []models.Layanan) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Belum ada layanan")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAMA\tKATEGORI\tWAKTU PROSES\tBIAYA")
	for _, l := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.Nama, l.Kategori, orDash(l.WaktuProses.String()), orDash(l.Biaya.String()))
	}
	_ = tw.Flush()
}

func printSubmission(w io.Writer, r *models.SubmissionResult) {
	fmt.Fprintf(w, "Nomor registrasi: %s (id %d)\n", r.NomorRegistrasi, r.PermohonanID)
	for _, u := range r.Uploads {
		line := fmt.Sprintf("  %-12s %-30s %s", u.Slot, u.Filename, u.Status)
		if u.Error != "" {
			line += ": " + u.Error
		}
		fmt.Fprintln(w, line)
	}
	if r.Complete {
		fmt.Fprintf(w, "Permohonan berhasil dikirim. Cek status dengan: portalctl status %s\n", r.NomorRegistrasi)
	}
}

func printTracking(w io.Writer, v *models.TrackingView) {
	if s := v.Summary; s != nil {
		tw := table(w)
		fmt.Fprintf(tw, "Nomor registrasi\t%s\n", s.NomorRegistrasi)
		fmt.Fprintf(tw, "Nama\t%s\n", s.Nama)
		fmt.Fprintf(tw, "Layanan\t%s\n", orDash(s.Layanan))
		fmt.Fprintf(tw, "Diajukan\t%s\n", formatDate(s.CreatedAt))
		fmt.Fprintf(tw, "Estimasi selesai\t%s\n", formatDate(s.EstimasiSelesai))
		fmt.Fprintf(tw, "Status\t%s\n", v.StageLabel)
		_ = tw.Flush()
	}
	fmt.Fprintln(w)
	for _, step := range v.Steps {
		mark := " "
		switch step.State {
		case models.StepCompleted:
			mark = "x"
		case models.StepCancelled:
			mark = "-"
		}
		when := ""
		if !step.Tanggal.IsZero() {
			when = " (" + formatDate(step.Tanggal) + ")"
		}
		fmt.Fprintf(w, "[%s] %s%s\n", mark, step.Label, when)
		if step.Keterangan != "" {
			fmt.Fprintf(w, "    %s\n", step.Keterangan)
		}
	}
	if v.CatatanAdmin != "" {
		fmt.Fprintf(w, "\nCatatan petugas: %s\n", v.CatatanAdmin)
	}
	if len(v.Pickup) > 0 {
		fmt.Fprintln(w, "\nDokumen dapat diambil di kantor kelurahan. Bawa:")
		for _, item := range v.Pickup {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
}

func printPermohonanList(w io.Writer, list *service.PermohonanList) {
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "Tidak ada permohonan yang cocok")
	} else {
		tw := table(w)
		fmt.Fprintln(tw, "ID\tNOMOR\tNAMA\tLAYANAN\tSTATUS\tTANGGAL")
		for _, p := range list.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.NomorRegistrasi, p.Nama, orDash(p.LayananName()), p.Status, formatDate(p.CreatedAt))
		}
		_ = tw.Flush()
	}
	if pg := list.Pagination; pg != nil {
		fmt.Fprintf(w, "Halaman %d/%d, %d dari %d ditampilkan (total %d)\n",
			pg.CurrentPage, pg.LastPage, len(list.Items), list.Fetched, pg.Total)
	}
}

func printBulkOutcome(w io.Writer, o *service.BulkOutcome) {
	printNotice(w, o.Notice)
	for _, r := range o.Results {
		if r.Success {
			continue
		}
		fmt.Fprintf(w, "  #%d gagal: %s\n", r.ID, orDash(r.Message))
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
