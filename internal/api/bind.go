package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxJSONBody = 4 << 20

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

// validate returns the shared validator, reporting fields by their json name.
func validate() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vInst, vTrans = v, trans
	})
	return vInst, vTrans
}

// checkStruct validates dst and returns the first failure as a readable message.
func checkStruct(dst any) error {
	v, trans := validate()
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(verrs[0].Translate(trans))
	}
	return err
}

// decodeJSON reads one JSON object from the request body into T and validates it.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, errors.New("empty body")
		}
		return dst, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return dst, errors.New("unexpected trailing data")
	}
	if err := checkStruct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}
