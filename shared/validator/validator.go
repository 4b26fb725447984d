package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"hotel/shared/base64"
	"hotel/shared/failure"
	"hotel/shared/timezone"
	"io"
	"reflect"
	"slices"
	"strconv"
	"strings"

	val "github.com/go-playground/validator/v10"
)

const bytesPerMB = 1024 * 1024

var validate *val.Validate

// custom validations, registered once at init.
var custom = map[string]val.Func{
	// instant accepts an RFC3339 timestamp or a YYYY-MM-DD date.
	"instant": func(fl val.FieldLevel) bool {
		_, err := timezone.ParseInstant(fl.Field().String())

		return err == nil
	},
	// mimetypes checks the media type of a base64 data URL against a space separated list.
	"mimetypes": func(fl val.FieldLevel) bool {
		contentType := base64.GetContentType(fl.Field().String())

		return contentType != "" && slices.Contains(strings.Fields(fl.Param()), contentType)
	},
	// maxfilesize bounds the encoded length of a data URL, in MB.
	"maxfilesize": func(fl val.FieldLevel) bool {
		maxMB, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}

		return float64(len(fl.Field().String())) <= maxMB*bytesPerMB
	},
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	for tag, fn := range custom {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
}

// Validate decodes a JSON body into data and validates it. Every failure is a
// validation_error Failure carrying the first readable message.
func Validate[T any](r io.Reader, data *T) error {
	err := json.NewDecoder(r).Decode(data)

	if errors.Is(err, io.EOF) {
		return failure.BadRequestFromString("request body is required") //nolint:wrapcheck
	}

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	if err := validate.Struct(data); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}
