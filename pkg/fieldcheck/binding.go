package fieldcheck

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/id"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	id_translations "github.com/go-playground/validator/v10/translations/id"

	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// tagFields binds each struct tag to the rule it runs.
var tagFields = map[string]Field{
	"nama_id":         Nama,
	"tempat_lahir_id": TempatLahir,
	"nik":             NIK,
	"email_id":        Email,
	"no_hp_id":        NoHP,
	"rtrw":            RT,
	"tanggal_lahir":   TanggalLahir,
	"jenis_kelamin":   JenisKelamin,
	"subjek":          Subjek,
	"pesan":           Pesan,
}

var (
	transMu sync.RWMutex
	trans   ut.Translator

	// clock feeds the tanggal_lahir tag; tests pin it.
	clock = time.Now
)

// Register installs the field rules as validator tags, reports JSON names in errors and loads the
// Indonesian translations for the built-in tags.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	for tag, field := range tagFields {
		field := field
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return Validate(field, fl.Field().String(), clock()) == ""
		}); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}

	locale := id.New()
	uni := ut.New(locale, locale)
	t, _ := uni.GetTranslator("id")
	if err := id_translations.RegisterDefaultTranslations(v, t); err != nil {
		return fmt.Errorf("register id translations: %w", err)
	}
	transMu.Lock()
	trans = t
	transMu.Unlock()
	return nil
}

// Translate turns a binding error into ordered field errors. Non-validation errors (bad JSON,
// wrong types) become a single "body" entry.
func Translate(err error) []appErrors.FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []appErrors.FieldError{{Field: "body", Message: "Format data tidak valid"}}
	}

	transMu.RLock()
	t := trans
	transMu.RUnlock()

	out := make([]appErrors.FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, appErrors.FieldError{Field: fe.Field(), Message: message(fe, t)})
	}
	return out
}

// BindError wraps a binding error as a typed validation error whose headline is the first field
// message.
func BindError(err error) error {
	return appErrors.WithFields(appErrors.ErrValidation, "", Translate(err))
}

func message(fe validator.FieldError, t ut.Translator) string {
	if field, ok := tagFields[fe.Tag()]; ok {
		if msg := Validate(field, fmt.Sprint(fe.Value()), clock()); msg != "" {
			return msg
		}
	}
	if fe.Tag() == "required" {
		return RequiredMessage(Field(fe.Field()))
	}
	if t != nil {
		return fe.Translate(t)
	}
	return fe.Error()
}
