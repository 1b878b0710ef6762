package app

import (
	"go.uber.org/fx"

	"github.com/bazaarlabs/bazaar/internal/cache"
	"github.com/bazaarlabs/bazaar/internal/config"
	"github.com/bazaarlabs/bazaar/internal/database"
	"github.com/bazaarlabs/bazaar/internal/logger"
	"github.com/bazaarlabs/bazaar/internal/messaging"
	"github.com/bazaarlabs/bazaar/internal/observability"
	repositoryorder "github.com/bazaarlabs/bazaar/internal/repository/order"
	grpcserver "github.com/bazaarlabs/bazaar/internal/server/grpc"
	httpserver "github.com/bazaarlabs/bazaar/internal/server/http"
	serviceorder "github.com/bazaarlabs/bazaar/internal/service/order"
	transporthttp "github.com/bazaarlabs/bazaar/internal/transport/http"
	"github.com/bazaarlabs/bazaar/internal/worker"
	workerorder "github.com/bazaarlabs/bazaar/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring: HTTP plus the gRPC health
// endpoint used by deployment probes.
var Module = fx.Options(
	HTTP,
	grpcserver.Module,
)
