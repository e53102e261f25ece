package utils

import "github.com/gin-gonic/gin"

// Success wraps auxiliary endpoint payloads
func Success(c *gin.Context, data gin.H) {
	c.JSON(200, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes the error object the mobile client understands
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"error": msg,
	})
}

// ErrorWith writes an error object with extra debugging fields
func ErrorWith(c *gin.Context, code int, msg string, extra gin.H) {
	body := gin.H{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}
