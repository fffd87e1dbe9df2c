package dto

type SendCodeRequest struct {
	Email   string `json:"email" validate:"required,email,max=255"`
	Purpose string `json:"purpose" validate:"required,oneof=login register change-email reset-password"`
}

type CodeLoginRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  string `json:"code" validate:"required,verification_code"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=100"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100,strong_password"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Code     string `json:"code" validate:"required,verification_code"`
}

type PasswordResetRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Code        string `json:"code" validate:"required,verification_code"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100,strong_password"`
}

type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
