// Package fieldcheck validates citizen form fields with the office's Indonesian messages. Rules are
// pure functions of the value and the reference time; empty values pass, requiredness is checked
// separately.
package fieldcheck

import (
	"math"
	"regexp"
	"time"
	"unicode/utf8"
)

// Field names a validated input. Values match the JSON keys of the request form.
type Field string

const (
	Nama         Field = "nama"
	NIK          Field = "nik"
	TempatLahir  Field = "tempat_lahir"
	TanggalLahir Field = "tanggal_lahir"
	JenisKelamin Field = "jenis_kelamin"
	Alamat       Field = "alamat"
	RT           Field = "rt"
	RW           Field = "rw"
	NoHP         Field = "no_hp"
	Email        Field = "email"
	Keperluan    Field = "keperluan"
	Keterangan   Field = "keterangan"
	LayananID    Field = "layanan_id"
	Subjek       Field = "subjek"
	Pesan        Field = "pesan"
)

// Order is the declaration order used to pick the headline error.
var Order = []Field{
	LayananID, Nama, NIK, TempatLahir, TanggalLahir, JenisKelamin, Alamat, RT, RW, NoHP, Email,
	Keperluan, Keterangan, Subjek, Pesan,
}

const (
	MsgNama          = "Nama hanya boleh berisi huruf dan spasi"
	MsgTempatLahir   = "Tempat lahir hanya boleh berisi huruf dan spasi"
	MsgNIK           = "NIK harus 16 digit angka"
	MsgEmail         = "Format email tidak valid"
	MsgNoHP          = "Nomor HP tidak valid (contoh: 081234567890)"
	MsgRTRW          = "Hanya boleh berisi angka, maksimal 3 digit"
	MsgTanggalFuture = "Tanggal lahir tidak boleh di masa depan"
	MsgUsiaMinimal   = "Usia minimal 17 tahun untuk mengajukan permohonan"
	MsgTanggalRange  = "Tanggal lahir tidak valid"
	MsgTanggalFormat = "Format tanggal lahir tidak valid"
	MsgJenisKelamin  = "Jenis kelamin harus Laki-laki atau Perempuan"
	MsgSubjek        = "Subjek harus 5-255 karakter"
	MsgPesan         = "Pesan harus 10-2000 karakter"
	MsgRequired      = "wajib diisi"
	MsgInvalidForm   = "Mohon perbaiki data yang tidak valid"
)

const (
	MinAge = 17
	MaxAge = 150

	dateLayout = "2006-01-02"
	yearLength = 365.25 * 24 * float64(time.Hour)
)

var (
	lettersPattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
	nikPattern     = regexp.MustCompile(`^\d{16}$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`^(\+62|62|0)[0-9]{9,13}$`)
	rtrwPattern    = regexp.MustCompile(`^\d{1,3}$`)
)

var labels = map[Field]string{
	Nama:         "Nama",
	NIK:          "NIK",
	TempatLahir:  "Tempat lahir",
	TanggalLahir: "Tanggal lahir",
	JenisKelamin: "Jenis kelamin",
	Alamat:       "Alamat",
	RT:           "RT",
	RW:           "RW",
	NoHP:         "Nomor HP",
	Email:        "Email",
	Keperluan:    "Keperluan",
	Keterangan:   "Keterangan",
	LayananID:    "Layanan",
	Subjek:       "Subjek",
	Pesan:        "Pesan",
}

// Label returns the human readable name of f.
func Label(f Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// RequiredMessage is the requiredness error for f, e.g. "Nama wajib diisi".
func RequiredMessage(f Field) string {
	return Label(f) + " " + MsgRequired
}

// Validate returns the error message for raw, or "" when it is acceptable. now anchors the age
// rules so results are reproducible.
func Validate(field Field, raw string, now time.Time) string {
	if raw == "" {
		return ""
	}
	switch field {
	case Nama:
		return unless(lettersPattern.MatchString(raw), MsgNama)
	case TempatLahir:
		return unless(lettersPattern.MatchString(raw), MsgTempatLahir)
	case NIK:
		return unless(nikPattern.MatchString(raw), MsgNIK)
	case Email:
		return unless(emailPattern.MatchString(raw), MsgEmail)
	case NoHP:
		return unless(phonePattern.MatchString(raw), MsgNoHP)
	case RT, RW:
		return unless(rtrwPattern.MatchString(raw), MsgRTRW)
	case TanggalLahir:
		return validateBirthDate(raw, now)
	case JenisKelamin:
		return unless(raw == "Laki-laki" || raw == "Perempuan", MsgJenisKelamin)
	case Subjek:
		return unless(runeLenBetween(raw, 5, 255), MsgSubjek)
	case Pesan:
		return unless(runeLenBetween(raw, 10, 2000), MsgPesan)
	}
	return ""
}

// Age is the applicant's age in whole years: days since birth divided by 365.25, floored.
func Age(birth, now time.Time) int {
	return int(math.Floor(float64(now.Sub(birth)) / yearLength))
}

func validateBirthDate(raw string, now time.Time) string {
	birth, err := time.Parse(dateLayout, raw)
	if err != nil {
		return MsgTanggalFormat
	}
	if birth.After(now) {
		return MsgTanggalFuture
	}
	age := Age(birth, now)
	switch {
	case age < MinAge:
		return MsgUsiaMinimal
	case age > MaxAge:
		return MsgTanggalRange
	}
	return ""
}

func runeLenBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func unless(ok bool, msg string) string {
	if ok {
		return ""
	}
	return msg
}
