package http

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/vbncursed/vkr/pass-service/internal/ratelimit"
)

// Deps — зависимости HTTP слоя
type Deps struct {
	Service       Passes
	Ready         []ReadyCheck
	Limiter       ratelimit.Limiter
	WalletLimit   int
	WalletWindow  time.Duration
	EnableSwagger bool
	Logger        *slog.Logger
}

func Router(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(RequestLogger(d.Logger))
	e.Binder = StrictJSONBinder{}
	e.HTTPErrorHandler = ErrorHandler(d.Logger)

	// Swagger UI (включается флагом ENABLE_SWAGGER=1)
	if d.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/api/v1")
	v1.GET("/healthz", Healthz)
	v1.GET("/readyz", Readyz(d.Ready))

	v1.POST("/passes", CreatePass(d.Service))
	v1.GET("/passes/:wallet_type/:customer_id/:offer_id", GetPass(d.Service))
	v1.POST("/passes/:serial/status", ChangeStatus(d.Service))
	v1.POST("/passes/:serial/push", RequestPush(d.Service))
	v1.GET("/signer", Signer(d.Service))

	// Web service кошелька: webServiceURL указывает на корень сервиса
	wallet := e.Group("/v1", RateLimit(d.Limiter, "wallet", d.WalletLimit, d.WalletWindow, d.Logger))
	wallet.GET("/passes/:passTypeIdentifier/:serialNumber", WalletGetPass(d.Service))
	wallet.POST("/log", WalletLog(d.Logger))

	return e
}
