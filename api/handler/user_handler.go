package handler

import (
	"io"
	"net/http"

	"codeauth/api/middleware"
	"codeauth/internal/dto"
	"codeauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Logger   logrus.FieldLogger
}

func NewUserHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *UserHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &UserHandler{
		Service:  svc,
		Validate: validate,
		Logger:   logger,
	}
}

func (h *UserHandler) Me(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	user, err := h.Service.GetCurrentUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	var req dto.UpdateProfileRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	user, err := h.Service.UpdateProfile(c.Request().Context(), principal.UserID, req.Name)
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	header, err := c.FormFile("avatar")
	if err != nil {
		return writeBadRequest(c, "avatar file is required")
	}
	if header.Size <= 0 || header.Size > maxAvatarBytes {
		return writeBadRequest(c, "avatar must be between 1 byte and 5 MB")
	}
	file, err := header.Open()
	if err != nil {
		return writeBadRequest(c, "avatar file is unreadable")
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.ErrUnexpectedEOF {
		return writeBadRequest(c, "avatar file is unreadable")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return writeBadRequest(c, "avatar file is unreadable")
	}

	user, err := h.Service.UpdateAvatar(c.Request().Context(), principal.UserID, service.AvatarUpload{
		Body:        file,
		Size:        header.Size,
		ContentType: http.DetectContentType(sniff[:n]),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	var req dto.ChangePasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	err := h.Service.ChangePassword(c.Request().Context(), principal, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		Client:          clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated"})
}

func (h *UserHandler) ChangeEmail(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	var req dto.ChangeEmailRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	user, err := h.Service.ChangeEmail(c.Request().Context(), principal, service.ChangeEmailInput{
		NewEmail: req.NewEmail,
		Code:     req.Code,
		Client:   clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}
