package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"plansync/api"
	"plansync/auth"
	"plansync/directory"
	"plansync/sharing"
	"plansync/storage"
	"plansync/store"
	"plansync/subscription"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	mongoURI := os.Getenv("MONGO_URI")
	mongoDB := os.Getenv("MONGO_DATABASE")
	if mongoURI == "" || mongoDB == "" {
		log.Fatal("missing mongo config")
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	pageSize := 50
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid PAGE_SIZE: %v", err)
		}
		pageSize = n
	}

	ctx := context.Background()
	notifier := storage.NewNotifier(rc, logger)
	client, err := storage.Connect(ctx, mongoURI, mongoDB, notifier)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}

	var ident auth.Provider
	if domain := os.Getenv("AUTH0_DOMAIN"); domain != "" {
		audience := os.Getenv("AUTH0_AUDIENCE")
		if audience == "" {
			log.Fatal("missing Auth0 audience")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		ident = auth.NewTokenProvider(jwks, audience, "https://"+domain+"/")
	} else {
		// Local runs skip token validation entirely.
		ident = auth.Static{User: auth.User{
			ID:   os.Getenv("LOCAL_USER_ID"),
			Name: os.Getenv("LOCAL_USER_NAME"),
		}}
	}

	dir := directory.New(client)
	factory := &subscription.Factory{
		Redis:  rc,
		Source: client,
		Logger: logger,
		Limit:  pageSize,
	}
	engine := store.New(client, dir, factory, ident, logger)
	if err := engine.Subscribe(ctx); err != nil {
		logger.WithError(err).Warn("initial subscribe failed, waiting for sign-in")
	}
	coordinator := sharing.New(dir, engine, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("plansync"))
	e.GET("/metrics", echoprometheus.NewHandler())
	api.Register(e, engine, coordinator, ident, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		engine.Close()
		notifier.Flush()
		_ = e.Shutdown(context.Background())
	}()

	if err := e.Start(listenAddr); err != nil {
		logger.WithError(err).Info("server stopped")
	}
}
