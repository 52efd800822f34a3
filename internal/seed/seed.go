// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"paperflow/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumStudents int
	Departments []string
	ShouldClean bool
}

// DefaultDepartments is the department list used when none is given.
var DefaultDepartments = []string{"CSE", "ECE", "EEE", "MECH", "CIVIL"}

// Seeder populates the database with demo accounts.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every seeded row. Documents go first so foreign keys
// never dangle.
func (s *Seeder) ClearAll() error {
	for _, stmt := range []string{
		"DELETE FROM documents",
		"DELETE FROM artifacts",
		"DELETE FROM user_roles",
		"DELETE FROM users",
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("cleanup failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Seed populates the database with demo accounts: one holder per approval
// office, a HOD and mentors for each department, and a batch of students.
func Seed(db *gorm.DB, opts Options) error {
	if opts.NumStudents <= 0 {
		opts.NumStudents = 25
	}
	if len(opts.Departments) == 0 {
		opts.Departments = DefaultDepartments
	}

	log.Printf("🌱 Seeding %d students across %d departments...", opts.NumStudents, len(opts.Departments))

	s := NewSeeder(db)
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("⚠️  Warning: could not clear all existing data, continuing anyway...")
		}
	}

	holders, err := s.createOfficeHolders()
	if err != nil {
		return fmt.Errorf("failed to create office holders: %w", err)
	}
	log.Printf("✓ %d office holders created", len(holders))

	faculty, err := s.createDepartmentFaculty(opts.Departments)
	if err != nil {
		return fmt.Errorf("failed to create department faculty: %w", err)
	}
	log.Printf("✓ %d department faculty created", len(faculty))

	students, err := s.createStudents(opts.NumStudents, opts.Departments)
	if err != nil {
		return fmt.Errorf("failed to create students: %w", err)
	}
	log.Printf("✓ %d students created", len(students))

	log.Println("✅ Seeding complete")
	return nil
}

// officeRoles are the college-wide approval offices. Mentor and HOD are
// department scoped and seeded per department instead.
var officeRoles = []models.Role{
	models.RoleDean,
	models.RoleDeanAcademics,
	models.RoleRegistrar,
	models.RoleCoe,
	models.RoleRnd,
	models.RoleIndustryRelations,
	models.RoleExamCell,
	models.RoleAdmin,
}

func (s *Seeder) createOfficeHolders() ([]models.User, error) {
	holders := make([]models.User, 0, len(officeRoles))
	for _, role := range officeRoles {
		user := models.User{
			Email:      officeEmail(role),
			Name:       randomName(),
			LegacyRole: role,
			Roles:      []models.UserRole{{Role: role}},
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		holders = append(holders, user)
	}
	return holders, nil
}

func (s *Seeder) createDepartmentFaculty(departments []string) ([]models.User, error) {
	var faculty []models.User
	for _, dept := range departments {
		hod := models.User{
			Email:      facultyEmail("hod", dept),
			Name:       randomName(),
			Department: dept,
			LegacyRole: models.RoleHod,
			Roles:      []models.UserRole{{Role: models.RoleHod}},
		}
		if err := s.db.Create(&hod).Error; err != nil {
			return nil, err
		}
		faculty = append(faculty, hod)

		for i := 1; i <= mentorsPerDepartment; i++ {
			mentor := models.User{
				Email:      facultyEmail(fmt.Sprintf("mentor%d", i), dept),
				Name:       randomName(),
				Department: dept,
				LegacyRole: models.RoleMentor,
				Roles:      []models.UserRole{{Role: models.RoleMentor}},
			}
			if err := s.db.Create(&mentor).Error; err != nil {
				return nil, err
			}
			faculty = append(faculty, mentor)
		}
	}
	return faculty, nil
}

func (s *Seeder) createStudents(count int, departments []string) ([]models.User, error) {
	students := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		dept := departments[i%len(departments)]
		user := models.User{
			Email:       studentEmail(i),
			Name:        randomName(),
			Department:  dept,
			VtuNumber:   fmt.Sprintf("VTU%05d", 10000+i),
			YearOfStudy: fmt.Sprintf("%d", 1+i%4),
			LegacyRole:  models.RoleStudent,
			Roles:       []models.UserRole{{Role: models.RoleStudent}},
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		students = append(students, user)
	}
	return students, nil
}
