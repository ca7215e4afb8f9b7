package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/pressroomhq/commune/internal/activity"
	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	"github.com/pressroomhq/commune/internal/community"
	communitydomain "github.com/pressroomhq/commune/internal/community/domain"
	"github.com/pressroomhq/commune/internal/config"
	"github.com/pressroomhq/commune/internal/lock"
	"github.com/pressroomhq/commune/internal/observability"
	obsmiddleware "github.com/pressroomhq/commune/internal/observability/logger"
	obsmetrics "github.com/pressroomhq/commune/internal/observability/metrics"
	obstracing "github.com/pressroomhq/commune/internal/observability/tracing"
	"github.com/pressroomhq/commune/internal/providers/email"
	"github.com/pressroomhq/commune/internal/user"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
)

var Module = fx.Module("http.server",
	email.Module,
	lock.Module,
	user.Module,
	activity.Module,
	community.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	communitySvc communitydomain.Service
	userSvc      userdomain.Directory
	activitySvc  activitydomain.Recorder
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	CommunitySvc communitydomain.Service
	UserSvc      userdomain.Directory
	ActivitySvc  activitydomain.Recorder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		communitySvc: p.CommunitySvc,
		userSvc:      p.UserSvc,
		activitySvc:  p.ActivitySvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Users --------
	api.POST("/users", s.CreateUser)
	api.GET("/users/:id", s.GetUserByID)
	api.GET("/users/:id/communities", s.ListUserCommunities)

	// -------- Communities --------
	api.GET("/communities", s.ListCommunities)
	api.GET("/communities/:id", s.GetCommunityByID)
	api.POST("/communities", s.ActorRequired(), s.CreateCommunity)
	api.PATCH("/communities/:id", s.ActorRequired(), s.UpdateCommunity)
	api.DELETE("/communities/:id", s.ActorRequired(), s.DeleteCommunity)

	// -------- Membership --------
	api.GET("/communities/:id/members", s.ListMembers)
	api.DELETE("/communities/:id/members/:userId", s.ActorRequired(), s.RemoveMember)
	api.POST("/communities/:id/join-requests", s.ActorRequired(), s.SubmitJoinRequest)
	api.GET("/communities/:id/join-requests", s.ActorRequired(), s.ListJoinRequests)
	api.POST("/communities/:id/join-requests/:userId/approve", s.ActorRequired(), s.ApproveJoinRequest)
	api.POST("/communities/:id/join-requests/:userId/reject", s.ActorRequired(), s.RejectJoinRequest)
	api.POST("/communities/:id/follow", s.ActorRequired(), s.FollowCommunity)
	api.DELETE("/communities/:id/follow", s.ActorRequired(), s.UnfollowCommunity)

	// -------- Authorization --------
	api.GET("/communities/:id/authorized-persons", s.ListAuthorizedPersons)
	api.POST("/communities/:id/authorized-persons/invite", s.ActorRequired(), s.InviteAuthorizedPerson)
	api.POST("/communities/:id/authorized-persons/verify", s.ActorRequired(), s.VerifyAuthorizedOTP)
	api.POST("/communities/:id/email-verification", s.ActorRequired(), s.SendEmailVerification)
	api.POST("/communities/:id/email-verification/confirm", s.ActorRequired(), s.VerifyDomainEmail)

	// -------- Activity --------
	api.GET("/activity", s.ListActivity)
}
