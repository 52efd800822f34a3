// Package models contains data structures for the application's domain models.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies a capability a user carries in the approval chain.
type Role string

const (
	RoleStudent           Role = "STUDENT"
	RoleFaculty           Role = "FACULTY"
	RoleMentor            Role = "MENTOR"
	RoleHod               Role = "HOD"
	RoleDean              Role = "DEAN"
	RoleDeanAcademics     Role = "DEAN_ACADEMICS"
	RoleRegistrar         Role = "REGISTRAR"
	RoleCoe               Role = "COE"
	RoleRnd               Role = "RND"
	RoleIndustryRelations Role = "INDUSTRY_RELATIONS"
	RoleExamCell          Role = "EXAM_CELL"
	RoleAdmin             Role = "ADMIN"
)

var allRoles = map[Role]bool{
	RoleStudent: true, RoleFaculty: true, RoleMentor: true, RoleHod: true,
	RoleDean: true, RoleDeanAcademics: true, RoleRegistrar: true, RoleCoe: true,
	RoleRnd: true, RoleIndustryRelations: true, RoleExamCell: true, RoleAdmin: true,
}

// ValidRole reports whether the role is one the system knows about.
func ValidRole(role Role) bool {
	return allRoles[role]
}

// User represents a registered identity: a student submitting documents or a
// staff member holding one or more approval roles.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"unique;not null" json:"email"`
	Name           string     `gorm:"not null" json:"name"`
	Department     string     `json:"department"`
	VtuNumber      string     `json:"vtu_number"`
	ContactNumber  string     `json:"contact_number"`
	YearOfStudy    string     `json:"year_of_study"`
	TtsID          string     `json:"tts_id"`
	GoogleID       string     `json:"-"`
	ProfilePicture string     `json:"profile_picture"`
	LegacyRole     Role       `gorm:"column:role" json:"-"`
	Roles          []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"roles"`

	// Stored signature images stamped onto approved PDFs. The HOD variant is
	// preferred when the user acts at the HOD stage.
	SignatureData    []byte `json:"-"`
	HodSignatureData []byte `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRole is one row of a user's role set.
type UserRole struct {
	UserID uint `gorm:"primaryKey"`
	Role   Role `gorm:"primaryKey;size:32"`
}

// MarshalJSON renders a role-set row as the bare role string.
func (ur UserRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(ur.Role)
}

// UnmarshalJSON accepts the bare role string emitted by MarshalJSON, so
// cached and client-decoded users round-trip. The UserID column is
// restored from the owning row by the persistence layer, not the payload.
func (ur *UserRole) UnmarshalJSON(data []byte) error {
	var role Role
	if err := json.Unmarshal(data, &role); err != nil {
		return err
	}
	ur.Role = role
	return nil
}

// HasRole reports whether the user carries the given role, falling back to
// the legacy single-valued role column when the role set is empty.
func (u *User) HasRole(role Role) bool {
	for _, ur := range u.Roles {
		if ur.Role == role {
			return true
		}
	}
	return len(u.Roles) == 0 && u.LegacyRole == role
}

// GrantRole adds the role to the in-memory role set if not already present.
// Persistence is the repository's job.
func (u *User) GrantRole(role Role) {
	for _, ur := range u.Roles {
		if ur.Role == role {
			return
		}
	}
	u.Roles = append(u.Roles, UserRole{UserID: u.ID, Role: role})
}

// EffectiveRole picks the single role reported in tokens and profile views.
// Priority is fixed: HOD > DEAN > ADMIN > any other member of the role set.
// An empty role set falls back to the legacy column, then to STUDENT.
func (u *User) EffectiveRole() Role {
	if len(u.Roles) == 0 {
		if u.LegacyRole != "" {
			return u.LegacyRole
		}
		return RoleStudent
	}
	for _, priority := range []Role{RoleHod, RoleDean, RoleAdmin} {
		for _, ur := range u.Roles {
			if ur.Role == priority {
				return priority
			}
		}
	}
	return u.Roles[0].Role
}
