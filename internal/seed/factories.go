package seed

import (
	"fmt"
	"math/rand"
	"strings"

	"paperflow/internal/models"
)

const mentorsPerDepartment = 3

var (
	firstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael", "Linda",
		"William", "Elizabeth", "David", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Arjun", "Priya", "Rahul", "Ananya", "Vikram", "Divya", "Karthik", "Meera",
		"Suresh", "Lakshmi", "Ravi", "Kavya", "Aditya", "Sneha", "Rohan", "Pooja",
	}

	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Kumar", "Sharma", "Reddy", "Iyer", "Nair", "Menon", "Rao", "Pillai",
		"Krishnan", "Subramanian", "Venkatesh", "Raman", "Patel", "Gupta", "Singh", "Das",
	}
)

func randomName() string {
	first := firstNames[rand.Intn(len(firstNames))]
	last := lastNames[rand.Intn(len(lastNames))]
	return fmt.Sprintf("%s %s", first, last)
}

// studentEmail produces an address the first-login classifier recognizes
// as a student account.
func studentEmail(i int) string {
	return fmt.Sprintf("student%05d@veltech.edu.in", 10000+i)
}

func facultyEmail(slug, department string) string {
	return fmt.Sprintf("%s.%s@veltech.edu.in", slug, strings.ToLower(department))
}

func officeEmail(role models.Role) string {
	slug := strings.ToLower(strings.ReplaceAll(string(role), "_", "-"))
	return fmt.Sprintf("%s@veltech.edu.in", slug)
}
