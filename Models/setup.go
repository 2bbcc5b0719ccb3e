package Models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ProductionReport/Config"
)

// Dialector picks the gorm driver for cfg.DBDriver. For sqlite DB_NAME is the
// database file.
func Dialector(cfg *Config.Configuration) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "sqlserver":
		q := url.Values{}
		q.Set("database", cfg.DBName)
		dsn := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:     cfg.DBHost + ":" + strconv.Itoa(cfg.DBPort),
			RawQuery: q.Encode(),
		}
		return sqlserver.Open(dsn.String()), nil
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.DBUser
		mc.Passwd = cfg.DBPassword
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort)
		mc.DBName = cfg.DBName
		mc.ParseTime = true
		mc.Loc = time.Local
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return gormmysql.New(gormmysql.Config{DSN: mc.FormatDSN(), SkipInitializeWithVersion: true}), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}

// Connect opens the report database without pinging it, so the service
// starts while the database is down. Nothing is migrated; the service only
// reads.
func Connect(cfg *Config.Configuration) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}
