// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"smart_attendance_backend/internals/configs"
	routeDetails "smart_attendance_backend/internals/route/details"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg configs.Config) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, db)

	log.Println("[INFO] Mounting Attendance routes...")
	routeDetails.AttendanceRoutes(app, db, cfg)
}
