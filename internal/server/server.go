// Package server exposes the marketplace HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/kraalhq/kraal/internal/clock"
	"github.com/kraalhq/kraal/internal/config"
	"github.com/kraalhq/kraal/internal/event"
	"github.com/kraalhq/kraal/internal/matchscore"
	obsmiddleware "github.com/kraalhq/kraal/internal/observability/logger"
	obsmetrics "github.com/kraalhq/kraal/internal/observability/metrics"
	obstracing "github.com/kraalhq/kraal/internal/observability/tracing"
	"github.com/kraalhq/kraal/internal/offer"
	offerdomain "github.com/kraalhq/kraal/internal/offer/domain"
	"github.com/kraalhq/kraal/internal/providers/pdf"
	"github.com/kraalhq/kraal/internal/ratelimit"
	"github.com/kraalhq/kraal/internal/request"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	"github.com/kraalhq/kraal/internal/settlement"
	settlementdomain "github.com/kraalhq/kraal/internal/settlement/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	matchscore.Module,
	settlement.Module,
	request.Module,
	offer.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock

	requestSvc    requestdomain.Service
	offerSvc      offerdomain.Service
	settlementSvc settlementdomain.Service
	events        event.Reader
	statements    pdf.Provider
	submitLimiter *ratelimit.SubmitLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	RequestSvc    requestdomain.Service
	OfferSvc      offerdomain.Service
	SettlementSvc settlementdomain.Service
	Events        event.Reader
	Statements    pdf.Provider
	SubmitLimiter *ratelimit.SubmitLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		genID:         p.GenID,
		clock:         p.Clock,
		requestSvc:    p.RequestSvc,
		offerSvc:      p.OfferSvc,
		settlementSvc: p.SettlementSvc,
		events:        p.Events,
		statements:    p.Statements,
		submitLimiter: p.SubmitLimiter,
	}

	s.registerAPIRoutes()
	s.registerInternalRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/fees/preview", s.PreviewFees)

	api.POST("/requests", s.ActorRequired(), s.CreateRequest)
	api.GET("/requests", s.ListRequests)
	api.GET("/requests/:id", s.GetRequest)
	api.POST("/requests/:id/cancel", s.ActorRequired(), s.CancelRequest)

	api.POST("/requests/:id/offers", s.ActorRequired(), s.SubmitRateLimit(), s.SubmitOffer)
	api.GET("/requests/:id/offers", s.ListOffers)
	api.POST("/requests/:id/offers/:offer_id/accept", s.ActorRequired(), s.AcceptOffer)
	api.POST("/requests/:id/offers/:offer_id/withdraw", s.ActorRequired(), s.WithdrawOffer)
	api.GET("/requests/:id/offers/:offer_id/statement", s.ActorRequired(), s.GetStatement)
}

func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal")

	internal.POST("/sweep", s.SweepNow)
}
