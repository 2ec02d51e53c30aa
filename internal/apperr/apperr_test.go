package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	cases := []struct {
		err  error
		want int
	}{
		{InvalidErr("bad", cause), http.StatusBadRequest},
		{FieldsErr("bad", map[string]string{"email": "x"}), http.StatusBadRequest},
		{NotFoundErr("gone", nil), http.StatusNotFound},
		{GoneErr("expired", nil), http.StatusGone},
		{UnauthorizedErr("nope"), http.StatusUnauthorized},
		{Wrap(cause), http.StatusInternalServerError},
		{cause, http.StatusInternalServerError},
		{fmt.Errorf("ctx: %w", NotFoundErr("x", nil)), http.StatusNotFound},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	t.Parallel()

	require.Equal(t, defaultPublicMsg, PublicMessage(Wrap(errors.New("db exploded"))))
	require.Equal(t, defaultPublicMsg, PublicMessage(errors.New("raw")))
	require.Equal(t, "No such product.", PublicMessage(NotFoundErr("No such product.", nil)))
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := InvalidErr("bad", cause)
	require.ErrorIs(t, err, cause)
	require.Nil(t, Wrap(nil))
	require.Equal(t, "invalid: cause", err.Error())
	require.Equal(t, "unauthorized: nope", UnauthorizedErr("nope").Error())
}
