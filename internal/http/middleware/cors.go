package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/notebook-backend/internal/platform/envutil"
)

// CORS allows the local dev frontends by default; CORS_ALLOW_ORIGINS
// (comma-separated) overrides the list.
func CORS() gin.HandlerFunc {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if raw := envutil.Str("CORS_ALLOW_ORIGINS", ""); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Trace-Id", "X-Request-Id"},
		AllowCredentials: true,
	})
}
