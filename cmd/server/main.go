package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/lubembemichael/mail-agent/agent"
	"github.com/lubembemichael/mail-agent/authflow"
	"github.com/lubembemichael/mail-agent/gemini"
	"github.com/lubembemichael/mail-agent/internal/config"
	"github.com/lubembemichael/mail-agent/internal/metrics"
	"github.com/lubembemichael/mail-agent/mailbox"
	"github.com/lubembemichael/mail-agent/pipeline"
	"github.com/lubembemichael/mail-agent/server"
	"github.com/lubembemichael/mail-agent/sessions"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	flow, err := authflow.New(c, server.RedirectURL(c))
	if err != nil {
		return fmt.Errorf("authflow.New %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sessionRepo := sessions.NewInMemoryRepo()
	gateway := mailbox.NewGateway(flow)
	replyAgent := agent.New(gemini.New(c.GetGeminiAPIKey(), gemini.WithModel(c.GetGeminiModel())))
	processor := pipeline.New(sessionRepo, gateway, replyAgent, collector, c.GetMaxResults())

	handler := server.New(c, flow, sessionRepo, processor, gateway, metrics.Handler(registry))

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(env string) {
	if env == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
