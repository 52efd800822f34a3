package service

import (
	"context"

	"paperflow/internal/cache"
	"paperflow/internal/models"
	"paperflow/internal/repository"
)

// DirectoryService resolves which user should receive a document when a
// forward names a role instead of a person.
type DirectoryService struct {
	userRepo repository.UserRepository
}

func NewDirectoryService(userRepo repository.UserRepository) *DirectoryService {
	return &DirectoryService{userRepo: userRepo}
}

// ResolveHolder picks a user carrying the role. A same-department holder is
// preferred when a department is given; the unfiltered lookup is the
// fallback. No holder at all is NO_SUCH_HOLDER.
func (s *DirectoryService) ResolveHolder(ctx context.Context, role models.Role, department string) (*models.User, error) {
	if department != "" {
		user, err := s.userRepo.FirstByRoleAndDepartment(ctx, role, department)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	user, err := s.userRepo.FirstByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNoSuchHolderError(role)
	}
	return user, nil
}

// ListMentors returns the staff a student can pick as the first hop,
// narrowed to the student's department when any match there. Results are
// cached briefly; the staff directory changes rarely.
func (s *DirectoryService) ListMentors(ctx context.Context, department string) ([]models.User, error) {
	var mentors []models.User
	err := cache.Aside(ctx, cache.MentorsKey(department), &mentors, cache.MentorsTTL, func() error {
		var ferr error
		mentors, ferr = s.listMentors(ctx, department)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return mentors, nil
}

func (s *DirectoryService) listMentors(ctx context.Context, department string) ([]models.User, error) {
	roles := []models.Role{models.RoleMentor, models.RoleFaculty, models.RoleHod}
	if department != "" {
		mentors, err := s.userRepo.ListByRoles(ctx, roles, department)
		if err != nil {
			return nil, err
		}
		if len(mentors) > 0 {
			return mentors, nil
		}
	}
	return s.userRepo.ListByRoles(ctx, roles, "")
}
