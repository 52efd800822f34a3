package service

import (
	"context"
	"regexp"
	"strings"

	"paperflow/internal/models"
	"paperflow/internal/repository"
)

type UserService struct {
	userRepo       repository.UserRepository
	studentPattern *regexp.Regexp
}

func NewUserService(userRepo repository.UserRepository, studentEmailPattern string) (*UserService, error) {
	pattern, err := regexp.Compile(studentEmailPattern)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &UserService{userRepo: userRepo, studentPattern: pattern}, nil
}

// LoginInput carries the identity asserted by the OAuth provider.
type LoginInput struct {
	Email          string
	Name           string
	GoogleID       string
	ProfilePicture string
}

// Login upserts the user for the asserted identity. First-time logins are
// classified by email shape: addresses matching the student pattern get the
// STUDENT role, everything else starts as FACULTY.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		role := models.RoleFaculty
		if s.studentPattern.MatchString(email) {
			role = models.RoleStudent
		}
		user = &models.User{
			Email:          email,
			Name:           in.Name,
			GoogleID:       in.GoogleID,
			ProfilePicture: in.ProfilePicture,
			LegacyRole:     role,
		}
		user.GrantRole(role)
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	changed := false
	if in.Name != "" && user.Name != in.Name {
		user.Name = in.Name
		changed = true
	}
	if in.GoogleID != "" && user.GoogleID != in.GoogleID {
		user.GoogleID = in.GoogleID
		changed = true
	}
	if in.ProfilePicture != "" && user.ProfilePicture != in.ProfilePicture {
		user.ProfilePicture = in.ProfilePicture
		changed = true
	}
	if changed {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

type UpdateProfileInput struct {
	UserID        uint
	Name          string
	Department    string
	VtuNumber     string
	ContactNumber string
	YearOfStudy   string
	TtsID         string
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxFieldLen = 100

	if in.Name != "" {
		if len(in.Name) > maxFieldLen {
			return nil, models.NewValidationError("Name too long (max 100 characters)")
		}
		user.Name = in.Name
	}
	if in.Department != "" {
		if len(in.Department) > maxFieldLen {
			return nil, models.NewValidationError("Department too long (max 100 characters)")
		}
		user.Department = in.Department
	}
	if in.VtuNumber != "" {
		user.VtuNumber = in.VtuNumber
	}
	if in.ContactNumber != "" {
		user.ContactNumber = in.ContactNumber
	}
	if in.YearOfStudy != "" {
		user.YearOfStudy = in.YearOfStudy
	}
	if in.TtsID != "" {
		user.TtsID = in.TtsID
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateSignature stores the user's signature image. HOD users keep a second
// slot so a department head can sign both as mentor and as head.
func (s *UserService) UpdateSignature(ctx context.Context, userID uint, data []byte, asHod bool) (*models.User, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("Signature image is empty")
	}
	const maxSignatureBytes = 1 << 20
	if len(data) > maxSignatureBytes {
		return nil, models.NewValidationError("Signature image too large (max 1 MB)")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if asHod {
		if !user.HasRole(models.RoleHod) {
			return nil, models.NewForbiddenError("Only a HOD can store a HOD signature")
		}
		user.HodSignatureData = data
	} else {
		user.SignatureData = data
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole grants a role to a user. Granting is additive: existing roles are
// kept so a HOD who also mentors keeps both hats.
func (s *UserService) SetRole(ctx context.Context, targetID uint, role models.Role) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, models.NewValidationError("Unknown role: " + string(role))
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.GrantRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.GrantRole(role)
	return user, nil
}

// MigrateLegacyRoles copies the old single-role column into the role set for
// every user that predates multi-role support.
func (s *UserService) MigrateLegacyRoles(ctx context.Context) (int, error) {
	const pageSize = 200
	migrated := 0
	for offset := 0; ; offset += pageSize {
		users, err := s.userRepo.List(ctx, pageSize, offset)
		if err != nil {
			return migrated, err
		}
		if len(users) == 0 {
			return migrated, nil
		}
		for i := range users {
			u := &users[i]
			if len(u.Roles) > 0 || u.LegacyRole == "" {
				continue
			}
			if !models.ValidRole(u.LegacyRole) {
				continue
			}
			if err := s.userRepo.GrantRole(ctx, u.ID, u.LegacyRole); err != nil {
				return migrated, err
			}
			migrated++
		}
		if len(users) < pageSize {
			return migrated, nil
		}
	}
}
