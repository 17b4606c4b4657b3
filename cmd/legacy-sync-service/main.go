// legacy-sync-service runs the outbox consumers without serving the public
// API: the Pub/Sub pull receiver plus the direct processor fallback. Deploy
// it when push delivery is unavailable or a dedicated worker is preferred.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/legacysync"
	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
	"bitbucket.org/tbphq/members_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8081"

func main() {
	port := os.Getenv("WORKER_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Health endpoint only; the worker exposes no app routes.
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: ":" + port, Handler: r}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	}

	var syncer *legacysync.Syncer
	if pool, err := config.OpenLegacyPool(); err != nil {
		logger.WithFields(logrus.Fields{"field": "legacyDb"}).Warn("legacy pool not configured: " + err.Error())
	} else {
		syncer = legacysync.NewSyncer(pool)
		defer pool.Close()
	}
	processor := workflow.NewProcessor(db, logger, syncer, config.NewSMTPMailer())

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go workflow.NewOutboxDispatcher(db, logger).Run(workerCtx)
	if workflow.ShouldRunDirectOutboxProcessor() {
		go workflow.NewOutboxDirectProcessor(db, processor, logger).Run(workerCtx)
	}
	go func() {
		if err := workflow.RunOutboxReceiver(workerCtx, processor); err != nil {
			logger.WithFields(logrus.Fields{"field": "receiver"}).Error("outbox receiver stopped: " + err.Error())
		}
	}()

	logger.WithFields(logrus.Fields{"info": "Connection Established"}).Info("worker listening on http://localhost:", port)

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
