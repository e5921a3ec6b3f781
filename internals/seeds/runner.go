package seeds

import (
	"log"

	"smart_attendance_backend/internals/seeds/roster"

	"gorm.io/gorm"
)

// RunAllSeeds loads reference data. Each seeder is idempotent.
func RunAllSeeds(db *gorm.DB, rosterPath string) error {
	//* Roster (students + course enrollments)
	if _, err := roster.SeedRosterFromJSON(db, rosterPath); err != nil {
		log.Printf("❌ roster seed failed: %v", err)
		return err
	}
	return nil
}
