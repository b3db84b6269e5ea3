package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verselabs/verse/models"
	"github.com/verselabs/verse/utils"
)

// StatsController owns the global view counter.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// RecordView atomically increments the view counter and returns the new
// value. The increment is a single UPDATE, so concurrent calls cannot lose
// updates; the store serializes single-row writes. Two callers may read the
// same post-increment value, but the stored counter always advances by
// exactly one per call.
func (s *StatsController) RecordView(ctx *gin.Context) {
	// `key` is reserved in MySQL; backtick quoting also parses under SQLite.
	if err := s.db.Model(&models.Stat{}).
		Where("`key` = ?", models.ViewsKey).
		UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to record view")
		return
	}

	var stat models.Stat
	if err := s.db.Where("`key` = ?", models.ViewsKey).First(&stat).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to read views")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"views": stat.Value})
}
