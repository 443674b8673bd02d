package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	eventdesk "github.com/derWhity/eventdesk/internal"
	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	eventrepo "github.com/derWhity/eventdesk/internal/repos/event/inmem"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	appName    = "EventDesk"
	appVersion = "0.1.0"
)

func main() {
	defaultConfig, err := models.DefaultConfigFile()
	if err != nil {
		panic(err)
	}

	configFile := flag.String(
		"config",
		defaultConfig,
		"The configuration file to load the application's configuration from",
	)
	flag.Parse()

	ctx := context.Background()

	// Initialize the logger
	logger := logrus.WithField(log.FldVersion, appVersion)
	logger.Infof("%s version %s is starting up...", appName, appVersion)
	ctx = ctxhelper.WithLogger(ctx, logger)

	// Load the main configuration file
	cs := eventdesk.NewConfigService(*configFile)
	if err := cs.Load(ctx); err != nil {
		logger.WithError(err).Error("Cannot load config. Using defaults")
	}
	conf := cs.GetConfig(ctx)

	// The event store lives in memory only - a restart starts from a clean slate.
	// Persistence is the job of the surrounding platform, not this service.
	repo := eventrepo.New(logger)

	evSrv := eventdesk.NewEventService(repo, cs, logger)
	dscSrv := eventdesk.NewDiscoveryService(repo, cs, logger)
	anaSrv := eventdesk.NewAnalyticsService(repo, logger)

	httpLogger := logger.WithField(log.FldTransport, "HTTP")

	h := eventdesk.MakeHTTPHandler(
		evSrv,
		dscSrv,
		anaSrv,
		cs,
		httpLogger,
	)

	// Start listening
	errs := make(chan error)

	// Listen for stop signals that will end the service
	go func() {
		c := make(chan os.Signal, 2)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		err := fmt.Errorf("%s", <-c)
		logger.Info("Caught signal to stop. Shutting down.")
		errs <- err
	}()

	go func() {
		httpLogger.WithField("addr", conf.ListenAddress).Info("Starting listening port")
		errs <- http.ListenAndServe(conf.ListenAddress, h)
	}()

	// Watchdog for systemd
	go func() {
		interval, err := daemon.SdWatchdogEnabled(false)
		if err != nil || interval == 0 {
			return
		}
		logger.Info("Activating systemd watchdog goroutine")
		port := strings.Split(conf.ListenAddress, ":")[1]
		url := fmt.Sprintf("http://127.0.0.1:%s/alive", port)
		for {
			if _, err := http.Get(url); err == nil {
				daemon.SdNotify(false, "WATCHDOG=1")
			}
			time.Sleep(interval / 3)
		}
	}()

	// Notify systemd that we are ready to go (if available)
	daemon.SdNotify(false, "READY=1")

	logger.WithError(<-errs).Error("Shutdown complete")
}
