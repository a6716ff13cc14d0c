package Models

import (
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open returns a gorm handle for one of the supported drivers.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "sqlite":
		if dsn == "" {
			dsn = "database.db"
		}
		dialector = sqlite.Open(dsn)
	case "mysql":
		normalized, err := mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(normalized)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return connection, nil
}

// mysqlDSN makes the driver scan DATETIME columns into time.Time in UTC.
// Business dates are stored as strings, so only timestamps are affected.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// OpenInMemory opens a private sqlite database. Tests use it.
func OpenInMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	connection, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	// A second pooled connection would see an empty database.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(connection); err != nil {
		return nil, err
	}
	return connection, nil
}

// Migrate creates or updates every table the console uses.
func Migrate(db *gorm.DB) error {
	// Users first, everything else references them by id.
	if err := db.AutoMigrate(&User{}, &FCMToken{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	if err := db.AutoMigrate(&DailyPlan{}, &Task{}, &Activity{}); err != nil {
		return fmt.Errorf("failed to migrate planning tables: %w", err)
	}
	return nil
}

// Connect opens the configured database, migrates it and stores it in DB.
func Connect(driver, dsn string) error {
	connection, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	if err := Migrate(connection); err != nil {
		return err
	}
	DB = connection
	return nil
}
