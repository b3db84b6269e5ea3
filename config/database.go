package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/verselabs/verse/models"
)

var db *gorm.DB

// InitDatabase opens the configured database, performs automatic migrations
// for the given models and seeds the view counter row. The DSN selects the
// driver: mysql URIs go to MySQL, anything else is treated as an SQLite path.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()

	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var err error
	db, err = gorm.Open(openDialector(cfg.DatabaseURI), &gorm.Config{Logger: gLogger})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	if isMySQL(cfg.DatabaseURI) {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// SQLite serializes writes on a single connection; more would only
		// trade lock errors for queueing.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := db.AutoMigrate(modelDefs...); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}

	if err := SeedStats(db); err != nil {
		log.Fatalf("failed to seed stats row: %v", err)
	}

	return db
}

// openDialector picks the gorm driver from the DSN shape.
func openDialector(uri string) gorm.Dialector {
	if isMySQL(uri) {
		return mysql.Open(strings.TrimPrefix(uri, "mysql://"))
	}
	return sqlite.Open(strings.TrimPrefix(uri, "sqlite://"))
}

func isMySQL(uri string) bool {
	return strings.HasPrefix(uri, "mysql://") || strings.Contains(uri, "@tcp(")
}

// SeedStats initializes the view counter to 0 exactly once. Existing rows
// are left untouched so the counter never moves backwards across restarts.
func SeedStats(db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Stat{Key: models.ViewsKey, Value: 0}).Error
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to the initialized gorm instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
