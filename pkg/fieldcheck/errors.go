package fieldcheck

import (
	"time"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// Errors collects per-field messages. Empty messages count as "no error".
type Errors map[Field]string

// Set records msg for f, ignoring empty messages.
func (e Errors) Set(f Field, msg string) {
	if msg != "" {
		e[f] = msg
	}
}

// HasErrors is the logical OR over every stored message.
func (e Errors) HasErrors() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// First returns the first error in declaration order.
func (e Errors) First() (Field, string) {
	for _, f := range Order {
		if msg := e[f]; msg != "" {
			return f, msg
		}
	}
	for f, msg := range e {
		if msg != "" {
			return f, msg
		}
	}
	return "", ""
}

// FieldErrors lists the messages in declaration order.
func (e Errors) FieldErrors() []appErrors.FieldError {
	out := make([]appErrors.FieldError, 0, len(e))
	seen := make(map[Field]struct{}, len(e))
	for _, f := range Order {
		if msg := e[f]; msg != "" {
			out = append(out, appErrors.FieldError{Field: string(f), Message: msg})
			seen[f] = struct{}{}
		}
	}
	for f, msg := range e {
		if _, ok := seen[f]; !ok && msg != "" {
			out = append(out, appErrors.FieldError{Field: string(f), Message: msg})
		}
	}
	return out
}

// Err converts the collection into a typed validation error, or nil when clean. The headline is
// the generic "please fix" message; fields carry the specifics.
func (e Errors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return appErrors.WithFields(appErrors.ErrValidation, MsgInvalidForm, e.FieldErrors())
}

var requiredApplicantFields = []Field{Nama, NIK, TempatLahir, TanggalLahir, JenisKelamin, Alamat, NoHP, Keperluan}

// ValidateForm checks every applicant field plus requiredness of the mandatory ones.
func ValidateForm(a models.Applicant, layananID int64, now time.Time) Errors {
	values := map[Field]string{
		Nama:         a.Nama,
		NIK:          a.NIK,
		TempatLahir:  a.TempatLahir,
		TanggalLahir: a.TanggalLahir,
		JenisKelamin: string(a.JenisKelamin),
		Alamat:       a.Alamat,
		RT:           a.RT,
		RW:           a.RW,
		NoHP:         a.NoHP,
		Email:        a.Email,
		Keperluan:    a.Keperluan,
		Keterangan:   a.Keterangan,
	}
	errs := Errors{}
	for _, f := range requiredApplicantFields {
		if values[f] == "" {
			errs.Set(f, RequiredMessage(f))
		}
	}
	if layananID <= 0 {
		errs.Set(LayananID, RequiredMessage(LayananID))
	}
	for f, v := range values {
		if _, missing := errs[f]; missing {
			continue
		}
		errs.Set(f, Validate(f, v, now))
	}
	return errs
}

// ValidateKontak checks the public contact form. The sender name is free text there.
func ValidateKontak(in models.KontakInput) Errors {
	errs := Errors{}
	for f, v := range map[Field]string{Nama: in.Nama, Email: in.Email, Subjek: in.Subjek, Pesan: in.Pesan} {
		switch {
		case v == "":
			errs.Set(f, RequiredMessage(f))
		case f != Nama:
			errs.Set(f, Validate(f, v, time.Time{}))
		}
	}
	return errs
}

// ValidateValues runs Validate over arbitrary field/value pairs, as the live form check does.
func ValidateValues(values map[string]string, now time.Time) Errors {
	errs := Errors{}
	for name, v := range values {
		errs.Set(Field(name), Validate(Field(name), v, now))
	}
	return errs
}
