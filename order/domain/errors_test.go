package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_Status(t *testing.T) {
	cases := map[ErrorKind]int{
		MethodNotAllowed:         http.StatusMethodNotAllowed,
		OriginRejected:           http.StatusForbidden,
		MalformedBody:            http.StatusBadRequest,
		RateLimited:              http.StatusTooManyRequests,
		SpamSuspected:            http.StatusBadRequest,
		CaptchaRejected:          http.StatusForbidden,
		ValidationFailed:         http.StatusBadRequest,
		FieldTooLong:             http.StatusBadRequest,
		DownstreamDispatchFailed: http.StatusInternalServerError,
		UnexpectedFailure:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestKindOf_UnwrapsChain(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := fmt.Errorf("dispatch: %w", Wrap(DownstreamDispatchFailed, "mail", cause))

	assert.Equal(t, DownstreamDispatchFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, UnexpectedFailure, KindOf(errors.New("boom")))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: FieldTooLong, Field: "fullName", Message: "%s exceeds maximum length of %d", Args: []any{"Full name", 100}}
	assert.Equal(t, "field_too_long: Full name exceeds maximum length of 100 (field fullName)", err.Error())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeAccepted, OutcomeOf(nil))
	assert.Equal(t, Outcome("rate_limited"), OutcomeOf(NewError(RateLimited, "x")))
}
