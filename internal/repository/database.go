package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"icr-prover/pkg/logger"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Connect opens the database for driver and migrates the proof tables.
func Connect(driver, connectionString string, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSqlite, "":
		dialector = sqlite.Open(connectionString)
	case DriverPostgres:
		dialector = postgres.Open(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	log.Infof("Establishing connection to %s database", driver)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot establish database connection: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating database failed: %w", err)
	}
	log.Info("All tables created (or already exist).")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ProofRecord{}, &ProofFailure{})
}
