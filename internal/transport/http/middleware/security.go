package middleware

import "github.com/gin-gonic/gin"

// Security sets response headers for an API that hands out bearer tokens:
// nothing is cached, framed or sniffed, and the verify URL (which carries a
// token in its query) is never leaked through Referer.
func Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		c.Next()
	}
}
