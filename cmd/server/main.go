package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"postboard/internal/app"
	"postboard/internal/config"
	"postboard/internal/ratelimit"
	"postboard/internal/server"
	"postboard/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse JWT leeway: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		TokenSecret:   cfg.JWTSecret,
		TokenTTL:      tokenTTL,
		TokenIssuer:   cfg.JWTIssuer,
		TokenAudience: cfg.JWTAudience,
		TokenLeeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var loginLimiter, signupLimiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		if cfg.LoginRateLimitPerMinute > 0 {
			loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "postboard:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
			if err != nil {
				log.Fatalf("failed to init login rate limiter: %v", err)
			}
		}
		if cfg.SignupRateLimitPerMinute > 0 {
			signupLimiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "postboard:ratelimit:signup", cfg.SignupRateLimitPerMinute, time.Minute)
			if err != nil {
				log.Fatalf("failed to init signup rate limiter: %v", err)
			}
		}
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		LoginLimiter:   loginLimiter,
		SignupLimiter:  signupLimiter,
		TrustedProxies: trustedProxies,
	})

	handler := util.WithCORS(util.WithSecurityHeaders(util.WithRequestID(util.WithRequestLog(httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
