package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// ErrInvalidDescription is matched by every *DescriptionError
var ErrInvalidDescription = errors.New("invalid description")

// FieldError is a single problem found in a description
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DescriptionError collects every problem found in a description
type DescriptionError struct {
	Fields []FieldError
}

func (e *DescriptionError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid description: " + strings.Join(parts, "; ")
}

func (e *DescriptionError) Unwrap() error {
	return ErrInvalidDescription
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a caller supplied description against the dataset it describes
func Validate(desc domain.Description, ds *dataset.Dataset) error {
	var fields []FieldError

	if err := validate.Struct(desc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   trimNamespace(fe.Namespace()),
				Message: formatFieldError(fe),
			})
		}
	}

	if desc.PrimaryKey != "" && !ds.HasColumn(desc.PrimaryKey) {
		fields = append(fields, FieldError{
			Field:   "primaryKey",
			Message: fmt.Sprintf("unknown column %q", desc.PrimaryKey),
		})
	}

	seen := make(map[string]int, len(desc.Columns))
	for i, col := range desc.Columns {
		field := fmt.Sprintf("columns[%d].column", i)
		if !ds.HasColumn(col.Column) {
			fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf("unknown column %q", col.Column)})
			continue
		}
		if prev, ok := seen[col.Key()]; ok {
			fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf("duplicates columns[%d]", prev)})
			continue
		}
		seen[col.Key()] = i
	}

	if len(fields) > 0 {
		return &DescriptionError{Fields: fields}
	}
	return nil
}

// trimNamespace drops the struct name from a validator namespace
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "hexcolor":
		return "must be a hex color"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
