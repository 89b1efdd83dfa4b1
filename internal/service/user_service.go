package service

import (
	"context"
	"strings"

	"gigboard/internal/models"
	"gigboard/internal/repository"
	"gigboard/internal/validation"
)

type UserService struct {
	users    repository.UserRepository
	validate *validation.Validator
}

// UpdateProfileInput carries the editable profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	FirstName      *string         `json:"first_name" validate:"omitempty,notblank,max=50"`
	LastName       *string         `json:"last_name" validate:"omitempty,notblank,max=50"`
	Bio            *string         `json:"bio" validate:"omitempty,max=500"`
	Phone          *string         `json:"phone" validate:"omitempty,max=32"`
	ProfileImage   *string         `json:"profile_image" validate:"omitempty,url"`
	Location       *models.Address `json:"location"`
	Skills         []string        `json:"skills" validate:"omitempty,max=30,dive,notblank,max=50"`
	Certifications []string        `json:"certifications" validate:"omitempty,max=30,dive,notblank,max=100"`
}

// ListUsersInput filters the admin user listing.
type ListUsersInput struct {
	Role   string
	Active *bool
	Search string
	Limit  int
	Offset int
}

func NewUserService(users repository.UserRepository, v *validation.Validator) *UserService {
	return &UserService{users: users, validate: v}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies the provided fields. Skills and certifications are
// only kept for experts.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.ProfileImage != nil {
		user.ProfileImage = *in.ProfileImage
	}
	if in.Location != nil {
		user.Location = *in.Location
	}
	columns := []string{"first_name", "last_name", "bio", "phone", "profile_image",
		"location_address", "location_city", "location_state", "location_country"}
	if user.Role == models.RoleExpert {
		if in.Skills != nil {
			user.Skills = in.Skills
		}
		if in.Certifications != nil {
			user.Certifications = in.Certifications
		}
		columns = append(columns, "skills", "certifications")
	}

	if err := s.users.Update(ctx, user, columns...); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, in ListUsersInput) ([]models.User, int64, error) {
	role := models.Role(in.Role)
	if role != "" && !role.Valid() {
		return nil, 0, models.NewFieldValidationError("Invalid filter", map[string]string{
			"role": "Must be one of: client, expert, admin",
		})
	}
	return s.users.List(ctx, repository.UserFilter{
		Role:   role,
		Active: in.Active,
		Search: in.Search,
	}, in.Limit, in.Offset)
}

// SetActive activates or deactivates an account. Deactivated users are
// rejected by the gate on their next request.
func (s *UserService) SetActive(ctx context.Context, adminID, targetID uint, active bool) (*models.User, error) {
	if adminID == targetID && !active {
		return nil, models.NewForbiddenError("You cannot deactivate your own account")
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}

	user.IsActive = active
	if err := s.users.Update(ctx, user, "is_active"); err != nil {
		return nil, err
	}
	return user, nil
}
