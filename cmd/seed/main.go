// Command main runs the database seeder for Paperflow.
package main

import (
	"flag"
	"log"
	"strings"

	"paperflow/internal/config"
	"paperflow/internal/database"
	"paperflow/internal/seed"
)

func main() {
	// Parse command line flags
	numStudents := flag.Int("students", 25, "Number of students to create")
	departments := flag.String("departments", strings.Join(seed.DefaultDepartments, ","), "Comma-separated department list")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d students, departments=%s, clean=%v\n", *numStudents, *departments, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	_, err = database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumStudents: *numStudents,
		Departments: strings.Split(*departments, ","),
		ShouldClean: *shouldClean,
	}
	if err := seed.Seed(database.DB, opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
