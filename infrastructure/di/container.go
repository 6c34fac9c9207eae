package di

import (
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/infrastructure/config"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	LinkStore   ports.LinkStore
	Publisher   ports.EventPublisher
	Summaries   ports.SummaryResolver
	Metrics     *observability.Collector
	Exporter    *observability.CloudWatchExporter
	Limits      *config.LiveLimits
	Watcher     *config.ConfigWatcher
	LinkService *services.LinkService
	Router      http.Handler
}

// Validate checks the dependencies every entry point relies on
func (c *Container) Validate() error {
	switch {
	case c.Logger == nil:
		return errMissing("logger")
	case c.LinkStore == nil:
		return errMissing("link store")
	case c.LinkService == nil:
		return errMissing("link service")
	case c.Router == nil:
		return errMissing("router")
	}
	return nil
}

type missingDependencyError string

func (e missingDependencyError) Error() string { return "missing dependency: " + string(e) }

func errMissing(name string) error { return missingDependencyError(name) }
