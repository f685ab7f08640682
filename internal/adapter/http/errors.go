package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	if errors.Is(err, domain.ErrVerificationFailed) {
		return huma.NewError(402, err.Error())
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		if authErr.Kind == domain.Unauthorized {
			return huma.Error401Unauthorized(authErr.Error())
		}
		return huma.Error403Forbidden(authErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error400BadRequest(valErr.Error())
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var entErr *domain.EntitlementError
	if errors.As(err, &entErr) {
		return huma.Error403Forbidden(entErr.Error())
	}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Temporary {
			return huma.Error503ServiceUnavailable("payment gateway unavailable, retry later")
		}
		return huma.Error502BadGateway("payment gateway rejected the request")
	}

	return huma.Error500InternalServerError("internal server error")
}
