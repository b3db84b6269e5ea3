package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verselabs/verse/middleware"
	"github.com/verselabs/verse/models"
	"github.com/verselabs/verse/utils"
)

// PostController serves the chronological feed.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

const feedCacheKey = "cache:posts:feed"

// feedQuery is the denormalized read: every feed row is a post joined with
// its author's display fields. The id tiebreak keeps same-instant posts in
// insertion order, newest first.
func (p *PostController) feedQuery() *gorm.DB {
	return p.db.Table("posts").
		Select("posts.id, posts.user_id, posts.content, posts.created_at, users.username, users.avatar_url").
		Joins("JOIN users ON posts.user_id = users.id").
		Order("posts.created_at DESC, posts.id DESC")
}

// ListPosts returns the full feed, newest first. The response is a bare JSON
// array; no pagination is applied.
func (p *PostController) ListPosts(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(feedCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	rows := make([]models.PostWithAuthor, 0)
	if err := p.feedQuery().Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	utils.CacheSetJSON(feedCacheKey, rows, time.Hour)
	ctx.JSON(http.StatusOK, rows)
}

// CreatePost inserts a post for the authenticated user, then re-reads the
// joined row so the client gets the denormalized representation immediately.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	claims, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
		return
	}

	post := models.Post{
		UserID:  claims.ID,
		Content: req.Content,
	}

	if err := p.db.Create(&post).Error; err != nil {
		// Covers the author row having disappeared between token issuance
		// and insert (referential integrity failure).
		utils.Error(ctx, http.StatusBadRequest, "failed to create post")
		return
	}

	var row models.PostWithAuthor
	if err := p.feedQuery().Where("posts.id = ?", post.ID).Scan(&row).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	utils.InvalidateByPrefix(feedCacheKey)

	ctx.JSON(http.StatusOK, row)
}
