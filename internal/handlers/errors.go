package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"drravalement/site/internal/apperr"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/service"
)

var validationErrors = []error{
	service.ErrInvalidEmail,
	service.ErrWeakPassword,
	service.ErrInvalidRole,
	service.ErrInvalidStatus,
	service.ErrQuoteInvalid,
	service.ErrEmptyUpload,
	service.ErrUploadTooLarge,
	service.ErrUnsupportedType,
	service.ErrTypeMismatch,
}

var notFoundErrors = []error{
	repository.ErrUserNotFound,
	repository.ErrSessionNotFound,
	repository.ErrQuoteNotFound,
	repository.ErrMediaNotFound,
}

// toAPIError maps service and repository errors onto the public taxonomy.
func toAPIError(err error) *apperr.APIError {
	var apiErr *apperr.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apperr.ErrValidation.WithMessage(target.Error())
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return apperr.ErrNotFound
		}
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperr.ErrCredential
	case errors.Is(err, service.ErrUserInactive):
		return apperr.ErrAccountInactive
	case errors.Is(err, service.ErrTooManyAttempts):
		return apperr.ErrRateLimited
	case errors.Is(err, repository.ErrEmailTaken):
		return apperr.ErrConflict.WithMessage("Email already registered")
	case errors.Is(err, service.ErrSelfDemotion), errors.Is(err, service.ErrSelfDeletion):
		return apperr.ErrForbidden.WithMessage(err.Error())
	case errors.Is(err, service.ErrQuoteTransition), errors.Is(err, service.ErrMediaTampered):
		return apperr.ErrConflict.WithMessage(err.Error())
	}
	return nil
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	if apiErr == nil {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		apiErr = apperr.ErrInternal
	}
	apperr.Respond(c, apiErr)
}
