package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fixlytaller/fixly-session/docs" // swagger spec registration
	"github.com/fixlytaller/fixly-session/internal/api/handler"
	"github.com/fixlytaller/fixly-session/internal/api/middleware"
	"github.com/fixlytaller/fixly-session/internal/core/ports"
	"github.com/fixlytaller/fixly-session/internal/core/service"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Repairs      ports.RepairRepository
	Checks       map[string]handler.Check
	MasterKey    middleware.MasterKeyConfig
	AllowOrigins []string
	Log          zerolog.Logger
}

// allowedHeaders are the headers browsers may send cross-origin.
var allowedHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderAuthorization,
	middleware.HeaderMasterKey,
	middleware.HeaderTenantID,
	middleware.HeaderLocationID,
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	origins := deps.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowHeaders: allowedHeaders,
		MaxAge:       86400,
	}))
	e.Use(middleware.TenantScope(deps.Log))
	e.Use(requestLogger(deps.Log))

	// --- Dependencies ---
	repairService := service.NewRepairService(deps.Repairs, deps.Log)
	repairHandler := handler.NewRepairHandler(repairService)

	// --- Repair history routes ---
	e.DELETE("/api/historial/:id", repairHandler.DeleteArchived,
		repairHandler.RequireRepairID,
		middleware.MasterKey(deps.MasterKey),
	)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			reqLog := middleware.Logger(c, log)
			reqLog.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
