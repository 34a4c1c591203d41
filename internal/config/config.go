package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv parses numeric variables

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    DBUser    string // database username
    DBPass    string // database password (optional)
    DBHost    string // database host address
    DBPort    string // database port number
    DBName    string // database name
    DBMigrate bool   // create tables on start when true
    JWTSecret string // secret shared with the auth provider to verify bearer tokens
    LogLevel  string // zap level name (debug, info, warn, error)

    // DefaultPricePerUnit is applied when a reading is written without a
    // price per unit.
    DefaultPricePerUnit float64
}

// LoadDotEnv preloads variables from the given files (default ".env") into
// the process environment.  Variables that are already set win.  A missing
// file is not an error so production deployments can rely on the real
// environment only.
func LoadDotEnv(files ...string) error {
    if len(files) == 0 {
        files = []string{".env"}
    }
    present := make([]string, 0, len(files))
    for _, f := range files {
        if _, err := os.Stat(f); err == nil {
            present = append(present, f)
        }
    }
    if len(present) == 0 {
        return nil
    }
    return godotenv.Load(present...)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:                 must("APP_ENV"),                 // environment (dev/test/prod)
        Port:                must("APP_PORT"),                // port to bind the HTTP server
        DBUser:              must("DB_USER"),                 // database user
        DBPass:              os.Getenv("DB_PASS"),            // database password (empty allowed)
        DBHost:              must("DB_HOST"),                 // database host
        DBPort:              must("DB_PORT"),                 // database port
        DBName:              must("DB_NAME"),                 // database name
        DBMigrate:           envBool("DB_MIGRATE", false),    // run schema creation on start
        JWTSecret:           must("JWT_SECRET"),              // secret used for verifying JWTs
        LogLevel:            envStr("LOG_LEVEL", "info"),     // logger level
        DefaultPricePerUnit: envFloat("DEFAULT_PRICE_PER_UNIT", 5.0),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// envFloat parses a float variable and returns d when it is unset or invalid.
// Negative values also fall back to d.
func envFloat(k string, d float64) float64 {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil || f < 0 {
        return d
    }
    return f
}
