package address

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"storefront/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Normalizer turns a raw address into the snapshot stored on an order.
type Normalizer interface {
	Normalize(ctx context.Context, addr Raw) (domain.AddressSnapshot, error)
}

// Raw is an address as submitted by a client.
type Raw struct {
	Type        string `json:"type" validate:"omitempty,oneof=shipping billing other"`
	FullName    string `json:"full_name" validate:"required,max=160"`
	Line1       string `json:"line1" validate:"required,max=160"`
	Line2       string `json:"line2" validate:"max=160"`
	City        string `json:"city" validate:"required,max=120"`
	Prefecture  string `json:"prefecture" validate:"required,max=64"`
	PostalCode  string `json:"postal_code" validate:"required,jp_postal"`
	CountryCode string `json:"country_code" validate:"omitempty,len=2,alpha"`
	Phone       string `json:"phone" validate:"max=40"`
}

var (
	postalPattern = regexp.MustCompile(`^(\d{3}-\d{4}|\d{7})$`)
	postalDigits  = regexp.MustCompile(`^\d{7}$`)
)

// JPNormalizer validates Japanese addresses and rewrites postal codes to NNN-NNNN.
type JPNormalizer struct {
	validate *validator.Validate
}

func NewJPNormalizer() *JPNormalizer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("jp_postal", func(fl validator.FieldLevel) bool {
		return postalPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &JPNormalizer{validate: v}
}

var _ Normalizer = (*JPNormalizer)(nil)

func (n *JPNormalizer) Normalize(_ context.Context, addr Raw) (domain.AddressSnapshot, error) {
	addr = trim(addr)
	if addr.CountryCode == "" {
		addr.CountryCode = "JP"
	}
	addr.CountryCode = strings.ToUpper(addr.CountryCode)
	if addr.Type == "" {
		addr.Type = "shipping"
	}

	if err := n.validate.Struct(addr); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = message(fe)
			}
			return nil, domain.NewValidationError("address.normalize", fields)
		}
		return nil, fmt.Errorf("address: validate: %w", err)
	}

	if postalDigits.MatchString(addr.PostalCode) {
		addr.PostalCode = addr.PostalCode[:3] + "-" + addr.PostalCode[3:]
	}

	return domain.AddressSnapshot{
		"type":         addr.Type,
		"full_name":    addr.FullName,
		"line1":        addr.Line1,
		"line2":        addr.Line2,
		"city":         addr.City,
		"prefecture":   addr.Prefecture,
		"postal_code":  addr.PostalCode,
		"country_code": addr.CountryCode,
		"phone":        addr.Phone,
	}, nil
}

func trim(a Raw) Raw {
	return Raw{
		Type:        strings.ToLower(strings.TrimSpace(a.Type)),
		FullName:    strings.TrimSpace(a.FullName),
		Line1:       strings.TrimSpace(a.Line1),
		Line2:       strings.TrimSpace(a.Line2),
		City:        strings.TrimSpace(a.City),
		Prefecture:  strings.TrimSpace(a.Prefecture),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		CountryCode: strings.TrimSpace(a.CountryCode),
		Phone:       strings.TrimSpace(a.Phone),
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field cannot be blank."
	case "jp_postal":
		return "Enter a valid Japanese postal code (e.g., 100-0001)."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "len", "alpha":
		return "Must be a 2-letter country code."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	}
	return "Invalid value."
}
