package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Kind string `json:"kind" validate:"required,oneof=a b"`
}

type payload struct {
	URL   string `json:"url" validate:"required,url"`
	Items []item `json:"items" validate:"required,min=1,dive"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&payload{URL: "https://example.com", Items: []item{{Kind: "a"}}}))

	err := Struct(&payload{URL: "nope", Items: []item{{Kind: "a"}, {Kind: "c"}}})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{
		{Field: "url", Rule: "url"},
		{Field: "items[1].kind", Rule: "oneof", Param: "a b"},
	}, verr.Fields)
	assert.Equal(t, "url failed url; items[1].kind failed oneof=a b", verr.Error())

	err = Struct(&payload{URL: "https://example.com", Items: []item{}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []FieldError{{Field: "items", Rule: "min", Param: "1"}}, verr.Fields)
}
