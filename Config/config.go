package Config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds everything the service needs at startup.
type Configuration struct {
	Address string `env:"ADDRESS" envDefault:"127.0.0.1:5000"`

	// Local folder holding CSV and batch spreadsheet artifacts.
	ExportDir string `env:"EXPORT_DIR" envDefault:"exports"`
	// Network share that receives finished artifacts.
	SharePath         string        `env:"SHARE_PATH" envDefault:"\\\\sambasy\\public\\ProductionReportSystem"`
	ShareProbeTimeout time.Duration `env:"SHARE_PROBE_TIMEOUT" envDefault:"5s"`

	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	IdleCheckSpec string        `env:"IDLE_CHECK_SPEC" envDefault:"@every 2s"`

	// sqlserver, mysql or sqlite
	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlserver"`
	DBHost     string `env:"DB_HOST" envDefault:"192.168.0.18"`
	DBPort     int    `env:"DB_PORT" envDefault:"1433"`
	DBName     string `env:"DB_NAME" envDefault:"Oee_SingRong_ChiangsTest"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	// Schema prefix for the report tables; empty for sqlite.
	DBSchema string `env:"DB_SCHEMA" envDefault:"dbo"`

	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./Templates"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"./static"`

	LogPath       string `env:"LOG_PATH" envDefault:"ProductionReportSystem.log"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"20"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
	LogSkipPaths  string `env:"LOG_SKIP_PATHS" envDefault:"/api/heartbeat,/api/get_queue_status,/api/get_queue_types,/health,/static"`
}

// SkipPaths splits LogSkipPaths.
func (c *Configuration) SkipPaths() []string {
	var out []string
	for _, p := range strings.Split(c.LogSkipPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewConfig loads the given .env files (".env" when none are given, missing
// files are fine) and parses the environment.
func NewConfig(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DBDriver != "sqlserver" && cfg.DBDriver != "mysql" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return &cfg, nil
}
