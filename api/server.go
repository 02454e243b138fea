package api

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/config"
	"github.com/webpiratt/swapd/service"
	"github.com/webpiratt/swapd/storage"
)

type Server struct {
	cfg          *config.Config
	db           storage.DatabaseStorage
	redis        *storage.RedisStorage
	client       *asynq.Client
	sdClient     *statsd.Client
	orderService service.Order
	logger       *logrus.Logger
}

// NewServer returns a new server.
func NewServer(
	cfg *config.Config,
	db storage.DatabaseStorage,
	redis *storage.RedisStorage,
	client *asynq.Client,
	sdClient *statsd.Client,
	orderService service.Order,
	logger *logrus.Logger,
) *Server {
	return &Server{
		cfg:          cfg,
		db:           db,
		redis:        redis,
		client:       client,
		sdClient:     sdClient,
		orderService: orderService,
		logger:       logger,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M")) // set maximum allowed size for a request body to 2M
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))

	e.Validator = &RequestValidator{Validator: validator.New()}

	e.GET("/ping", s.Ping)

	grp := e.Group("/api")
	grp.POST("/create-swap", s.CreateSwap)
	grp.POST("/create-limit-order", s.CreateLimitOrder)
	grp.POST("/create-dca", s.CreateDCA)
	grp.POST("/swap-status", s.SwapStatus)
	grp.GET("/swap-status", s.SwapStatus)
	grp.GET("/limit-orders", s.ListLimitOrders)
	grp.DELETE("/limit-order/:id", s.CancelLimitOrder)
	grp.GET("/dca", s.ListDCASchedules)
	grp.DELETE("/dca/:id", s.CancelDCA)
	grp.GET("/history", s.GetHistory)
	grp.GET("/reputation", s.GetReputation)

	return e.Start(fmt.Sprintf(":%d", s.cfg.Server.Port))
}
