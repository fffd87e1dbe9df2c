package service

import (
	"context"
	"errors"
	"fmt"

	"codeauth/internal/entity"
	"codeauth/internal/repository"
	"codeauth/internal/utils"

	"github.com/google/uuid"
)

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByID(ctx, userID)
	})
	if err != nil {
		return nil, s.upstream("find user by id", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*entity.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.saveUser(ctx, user, "update profile"); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) UpdateAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (*entity.User, error) {
	ext, ok := avatarExtensions[upload.ContentType]
	if !ok {
		return nil, invalidInput("unsupported avatar type")
	}
	if s.avatars == nil {
		return nil, ErrAvatarStorage
	}
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", user.ID, uuid.NewString(), ext)
	url, err := within(ctx, s.deliveryTimeout(), func(ctx context.Context) (string, error) {
		return s.avatars.PutAvatar(ctx, key, upload.Body, upload.Size, upload.ContentType)
	})
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("avatar upload failed")
		return nil, ErrAvatarStorage
	}

	user.AvatarURL = &url
	if err := s.saveUser(ctx, user, "update avatar"); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword keeps the caller's session and revokes every other one.
func (s *AuthService) ChangePassword(ctx context.Context, principal Principal, input ChangePasswordInput) error {
	if input.NewPassword == "" {
		return ErrValidation
	}
	user, err := s.GetCurrentUser(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if !s.passwordHash.Verify(user.PasswordHash, input.CurrentPassword) {
		return ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, user, input.NewPassword); err != nil {
		return err
	}
	if err := s.revokeUserSessions(ctx, user.ID, principal.SessionID); err != nil {
		return err
	}
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.PasswordChanged, nil)
	return nil
}

// ChangeEmail moves the account to an address proven by a change-email code
// sent to that address.
func (s *AuthService) ChangeEmail(ctx context.Context, principal Principal, input ChangeEmailInput) (*entity.User, error) {
	newEmail := utils.NormalizeEmail(input.NewEmail)
	if newEmail == "" {
		return nil, ErrValidation
	}
	user, err := s.GetCurrentUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if user.Email == newEmail {
		return nil, invalidInput("new email matches the current email")
	}

	if err := s.VerifyCode(ctx, newEmail, entity.PurposeChangeEmail, input.Code); err != nil {
		return nil, err
	}

	taken, err := within(ctx, s.storeTimeout(), func(ctx context.Context) (*entity.User, error) {
		return s.users.FindByEmail(ctx, newEmail)
	})
	if err != nil {
		return nil, s.upstream("find user by email", err)
	}
	if taken != nil {
		return nil, ErrConflict
	}

	previous := user.Email
	user.Email = newEmail
	user.EmailVerified = true
	if err := s.saveUser(ctx, user, "change email"); err != nil {
		return nil, err
	}
	s.logSecurity(ctx, &user.ID, input.Client.IPAddress, entity.EmailChanged, map[string]any{"previous": previous})
	return user, nil
}

func (s *AuthService) saveUser(ctx context.Context, user *entity.User, op string) error {
	err := withinErr(ctx, s.storeTimeout(), func(ctx context.Context) error {
		return s.users.Update(ctx, user)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrConflict
	}
	if err != nil {
		return s.upstream(op, err)
	}
	return nil
}
