// middlewares/cors.go

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CorsMiddleware allows the instructor dashboard origins (comma separated).
func CorsMiddleware(origins string) fiber.Handler {
	list := make([]string, 0, 4)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(list, ", "),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		AllowCredentials: false,
	})
}
