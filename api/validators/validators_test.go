package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type shippingRequest struct {
	Quantity int           `json:"quantity" validate:"required,min=1,max=99"`
	Address  types.Address `json:"address" validate:"required"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest shippingRequest
	err := DecodeJSONBody(post(`{"quantity":2,"address":{"fullName":"Asha","line1":"12 MG Road","city":"Bengaluru","state":"KA","postalCode":"560001","phone":"+91 99000 00000"}}`), &dest)
	require.NoError(t, err)
	assert.Equal(t, 2, dest.Quantity)
	assert.Equal(t, "Bengaluru", dest.Address.City)
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var dest shippingRequest
	err := DecodeJSONBody(post(`{"quantity":0,"address":{"fullName":"Asha","line1":"x","city":"c","state":"s","postalCode":"1","phone":"call me"}}`), &dest)
	details := validationDetails(t, err)
	assert.Equal(t, "is required", details["quantity"])
	assert.Equal(t, "must be a valid phone number", details["address.phone"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"unknown field", `{"quantity":1,"coupon":"FREE"}`},
		{"trailing object", `{"quantity":1}{"quantity":2}`},
		{"wrong type", `{"quantity":"two"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dest shippingRequest
			err := DecodeJSONBody(post(tc.body), &dest)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&page=x&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = ParseQueryInt(req, "missing", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = ParseQueryInt(req, "page", 1, 1, 100)
	assert.Error(t, err)
	_, err = ParseQueryInt(req, "big", 1, 1, 100)
	assert.Error(t, err)
}

func TestParseQueryStringAndUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=%20pending%20&blank=%20", nil)
	status := ParseQueryString(req, "status")
	require.NotNil(t, status)
	assert.Equal(t, "pending", *status)
	assert.Nil(t, ParseQueryString(req, "blank"))

	id := uuid.New()
	parsed, err := ParseUUIDParam(" "+id.String()+" ", "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	_, err = ParseUUIDParam("nope", "orderId")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "linen", SanitizeString("  linen\t", 10))
	assert.Equal(t, "cot", SanitizeString("cotton", 3))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 0))
	assert.Equal(t, "crê", SanitizeString("crêpe", 3))
}
