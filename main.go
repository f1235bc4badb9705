package main

import (
	"net/http"

	"changeportal/bizerror"
	"changeportal/client/store"
	"changeportal/common"
	"changeportal/config"
	"changeportal/coordinator"
	"changeportal/event"
	"changeportal/infra/tracing"
	"changeportal/security"
	"changeportal/servehttp"
	"changeportal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.ParseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse config failed %v", err)
	}
	common.ConfigureLogging(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	logrus.Info("service start")

	tracerCloser, err := tracing.InitGlobalTracer(cfg.ServiceName, cfg.TracingEnabled)
	if err != nil {
		logrus.Fatalf("init tracer failed %v", err)
	}
	defer tracerCloser.Close()

	storeClient := store.New(cfg.Store)
	bus := event.NewBus()
	recorder := event.NewRecorder(event.DefaultRecorderCapacity)
	bus.Subscribe(recorder.Handle)
	bus.Subscribe(func(e *event.EventRecord) *event.EventHandleResult {
		logrus.WithFields(logrus.Fields{"event": e.Type, "object": e.ObjectID, "reason": e.Reason}).Info("outcome published")
		return nil
	})
	coord := coordinator.New(storeClient, bus, coordinator.Options{Watch: watcher.OptionsFrom(cfg.Watch)})

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, cfg.ServiceName)
	})

	servehttp.RegisterObjectHandler(engine, coord, security.SimpleAuthFilter())
	servehttp.RegisterEventHandler(engine, recorder, security.SimpleAuthFilter())

	servehttp.StartHTTPServer(cfg.HTTPAddr, engine, coord.Close)
}
