package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"buildbid/internal/auth"
	"buildbid/internal/db"
	"buildbid/internal/domain/accesscontrol"
	"buildbid/internal/domain/storage"
	"buildbid/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// LoadAccessConfig retrieves evaluator settings from environment variables.
// AUTH_BREAK_GLASS_IDS is a comma-separated list of account IDs or role
// codes; AUTH_FAIL_OPEN_ON_TIMEOUT defaults to true to preserve the
// availability-over-strictness policy.
func LoadAccessConfig() accessConfig {
	var breakGlass []string
	for _, id := range strings.Split(os.Getenv("AUTH_BREAK_GLASS_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			breakGlass = append(breakGlass, id)
		}
	}

	failOpen := true
	if val, exists := os.LookupEnv("AUTH_FAIL_OPEN_ON_TIMEOUT"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			failOpen = parsedVal
		} else {
			fmt.Println("Invalid AUTH_FAIL_OPEN_ON_TIMEOUT, defaulting to true")
		}
	}

	lookupTimeout := 5 * time.Second
	if val, exists := os.LookupEnv("AUTH_PERMISSION_LOOKUP_TIMEOUT"); exists {
		if parsedVal, err := time.ParseDuration(val); err == nil {
			lookupTimeout = parsedVal
		} else {
			fmt.Println("Invalid AUTH_PERMISSION_LOOKUP_TIMEOUT, defaulting to 5s")
		}
	}

	return accessConfig{
		breakGlassIDs:     breakGlass,
		failOpenOnTimeout: failOpen,
		lookupTimeout:     lookupTimeout,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "1.0.0"

//	@title			BuildBid Access API
//	@description	Role-based access control and session gating for the BuildBid construction marketplace.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	maxConnsStr := os.Getenv("DB_MAX_CONNS")
	maxConns, err := strconv.Atoi(maxConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    maxConns,
			maxIdleTime: os.Getenv("DB_MAX_IDLE_TIME"),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				accessTokenExp:  time.Hour * 24,     // 1 day
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "BuildBid",
			},
		},
		access:      LoadAccessConfig(),
		rateLimiter: LoadRateLimiterConfig(),
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// The static role model is typed configuration; a divergence between
	// its tables is a build defect, so refuse to boot on one.
	if err := accesscontrol.ValidateModel(); err != nil {
		logger.Fatalw("role model validation failed", "error", err)
	}

	// Database
	db, err := db.New(
		cfg.db.addr,
		int32(cfg.db.maxConns),
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}

	defer db.Close()
	logger.Info("database connection pool established")

	//storage
	store := storage.NewContainer(db)

	// Permission evaluator, shared by every protected route
	evaluator := accesscontrol.NewEvaluator(
		store.AccessControl,
		accesscontrol.Config{
			BreakGlassIDs:     cfg.access.breakGlassIDs,
			FailOpenOnTimeout: cfg.access.failOpenOnTimeout,
			LookupTimeout:     cfg.access.lookupTimeout,
		},
		logger,
	)

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
		cfg.auth.token.refreshTokenExp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		authenticator: jwtAuthenticator,
		evaluator:     evaluator,
		rateLimiter:   rateLimiter,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := db.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
		}
	}))
	expvar.Publish("permission_cache_entries", expvar.Func(func() any {
		return evaluator.CacheSize()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
