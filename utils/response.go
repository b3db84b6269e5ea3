package utils

import "github.com/gin-gonic/gin"

// Error writes the uniform failure body. Messages are client-facing and must
// not leak storage internals.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}
