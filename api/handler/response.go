package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"codeauth/internal/dto"
	"codeauth/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    service.ErrValidation.Code,
		Message: message,
	})
}

func writeValidationError(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    service.ErrValidation.Code,
		Message: service.ErrValidation.Message,
		Fields:  fieldErrors(err),
	})
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError never puts the cause on the wire.
func writeServiceError(c echo.Context, logger logrus.FieldLogger, err error) error {
	var appErr *service.AppError
	if !errors.As(err, &appErr) {
		appErr = service.ErrInternal
	}
	status := statusForKind(appErr.Kind)

	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"code": appErr.Code,
			"uri":  c.Request().RequestURI,
		}).Error("request failed")
	}
	if appErr.Kind == service.KindRateLimited && appErr.RetryAfter > 0 {
		seconds := int(math.Ceil(appErr.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	return c.JSON(status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func clientInfo(c echo.Context) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: stringPtr(c.RealIP()),
		UserAgent: stringPtr(c.Request().UserAgent()),
	}
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:      dto.UserResponseFromEntity(result.User),
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
	}
}
