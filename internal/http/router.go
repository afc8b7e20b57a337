package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/confreg/internal/http/handlers"
	"github.com/geocoder89/confreg/internal/http/middlewares"
	"github.com/geocoder89/confreg/internal/newsletter"
	"github.com/geocoder89/confreg/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName  = "confreg"
	maxBodyBytes = 64 << 10
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Env                string
	RoutePrefix        string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	Log        *slog.Logger
	Prom       *observability.Prom
	Gatherer   prometheus.Gatherer
	Admitter   handlers.Admitter
	Query      handlers.RegistrationQuerier
	Newsletter newsletter.Forwarder
	Store      Pinger

	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	ping := func() error {
		if d.Store == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Store.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping, d.ShuttingDown)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	registrations := handlers.NewRegistrationHandler(d.Admitter, d.Query, d.Log)
	subscribe := handlers.NewNewsletterHandler(d.Newsletter, d.Log)

	limiter := middlewares.NewRateLimiter(d.RateLimitPerMinute, time.Minute)

	api := r.Group(d.RoutePrefix)
	api.GET("/conference/:conferenceId/registrations", registrations.ListForConference)

	writes := api.Group("",
		limiter.Middleware(middlewares.KeyByIP),
		middlewares.MaxBodyBytes(maxBodyBytes),
		middlewares.RequireJSON(),
	)
	writes.POST("/conference/register", registrations.Register)
	writes.POST("/mailchimp-subscribe", subscribe.Subscribe)

	return r
}
