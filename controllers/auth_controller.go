package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verselabs/verse/middleware"
	"github.com/verselabs/verse/models"
	"github.com/verselabs/verse/utils"
)

// AuthController handles account registration, login and session endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

const signupFailedMsg = "Email already exists or invalid data"

// avatarFor derives a deterministic avatar URL from the username.
func avatarFor(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(username)
}

// Signup registers a new account and opens a session in one step.
//
// Duplicate emails are not pre-checked: the unique index on users.email is
// the only guard, so two concurrent signups with the same email race at the
// store and exactly one wins. The loser gets the same generic 400 as any
// other invalid payload.
func (a *AuthController) Signup(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Username string `json:"username" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, signupFailedMsg)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, signupFailedMsg)
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Username:     req.Username,
		AvatarURL:    avatarFor(req.Username),
	}

	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, signupFailedMsg)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Username, user.AvatarURL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.SetSessionCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// Login verifies credentials and opens a session.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Absent user and wrong password are indistinguishable to callers.
		utils.Error(ctx, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Username, user.AvatarURL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.SetSessionCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// Me echoes the verified session claims.
func (a *AuthController) Me(ctx *gin.Context) {
	claims, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": claims})
}

// Logout clears the session cookie. The token itself stays valid until the
// signing secret rotates; there is no server-side revocation.
func (a *AuthController) Logout(ctx *gin.Context) {
	utils.ClearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// publicUser strips the identity record down to client-safe fields.
func publicUser(u models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"username":  u.Username,
		"avatarUrl": u.AvatarURL,
	}
}
