package address

import (
	"context"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() Raw {
	return Raw{
		FullName:   "  Taro Yamada ",
		Line1:      "1-1 Chiyoda",
		City:       "Chiyoda-ku",
		Prefecture: "Tokyo",
		PostalCode: "1000001",
	}
}

func TestNormalizeCleansFields(t *testing.T) {
	snap, err := NewJPNormalizer().Normalize(context.Background(), validRaw())
	require.NoError(t, err)
	assert.Equal(t, "Taro Yamada", snap["full_name"])
	assert.Equal(t, "100-0001", snap["postal_code"])
	assert.Equal(t, "JP", snap["country_code"])
	assert.Equal(t, "shipping", snap["type"])
}

func TestNormalizeKeepsHyphenatedPostalCode(t *testing.T) {
	raw := validRaw()
	raw.PostalCode = "100-0001"
	raw.CountryCode = "jp"
	snap, err := NewJPNormalizer().Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "100-0001", snap["postal_code"])
	assert.Equal(t, "JP", snap["country_code"])
}

func TestNormalizeReportsFieldErrors(t *testing.T) {
	raw := validRaw()
	raw.City = "   "
	raw.PostalCode = "12-345"

	_, err := NewJPNormalizer().Normalize(context.Background(), raw)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "city")
	assert.Contains(t, verr.Fields, "postal_code")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
