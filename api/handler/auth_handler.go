package handler

import (
	"net/http"

	"codeauth/api/middleware"
	"codeauth/internal/dto"
	"codeauth/internal/entity"
	"codeauth/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Logger   logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *AuthHandler {
	if validate == nil {
		validate = NewValidator()
	}
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Logger:   logger,
	}
}

func (h *AuthHandler) SendCode(c echo.Context) error {
	var req dto.SendCodeRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	input := service.IssueCodeInput{
		Email:   req.Email,
		Purpose: entity.VerificationPurpose(req.Purpose),
		Client:  clientInfo(c),
	}
	if err := h.Service.IssueCode(c.Request().Context(), input); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "verification code sent"})
}

func (h *AuthHandler) LoginWithCode(c echo.Context) error {
	var req dto.CodeLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	result, err := h.Service.LoginWithCode(c.Request().Context(), service.CodeLoginInput{
		Email:  req.Email,
		Code:   req.Code,
		Client: clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, authResponse(result))
}

func (h *AuthHandler) LoginWithPassword(c echo.Context) error {
	var req dto.PasswordLoginRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	result, err := h.Service.LoginWithPassword(c.Request().Context(), service.PasswordLoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, authResponse(result))
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	result, err := h.Service.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Code:     req.Code,
		Client:   clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, authResponse(result))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	if err := h.Service.Logout(c.Request().Context(), principal, clientInfo(c)); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeServiceError(c, h.Logger, service.ErrUnauthorized)
	}
	if err := h.Service.LogoutAll(c.Request().Context(), principal, clientInfo(c)); err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "all sessions revoked"})
}

func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeBadRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return writeValidationError(c, err)
	}
	err := h.Service.ResetPassword(c.Request().Context(), service.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
		Client:      clientInfo(c),
	})
	if err != nil {
		return writeServiceError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated"})
}
