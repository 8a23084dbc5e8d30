package server

import (
	"encoding/json"

	"tracker-superacres/internal/config"
	"tracker-superacres/internal/location"
	"tracker-superacres/internal/metrics"
	"tracker-superacres/internal/scoring"
	"tracker-superacres/internal/session"
	"tracker-superacres/internal/shared/geo"
	"tracker-superacres/internal/store"
	"tracker-superacres/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	Redis      *redis.Client
	Stream     *stream.Hub
	Controller *session.Controller
	KV         store.KV
}

// NewServer wires the tracking core: the simulated walker feeds both the
// foreground subscription and the durable background channel, exactly the
// two-channels-one-device shape the session controller expects.
func NewServer(cfg config.Config, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	kv := store.NewRedisKV(redisClient)
	src := location.NewSimulated(cfg.SimStartLat, cfg.SimStartLng)
	background := location.NewBackgroundChannel(src, store.NewBackgroundBuffer(kv))
	submitter := scoring.NewClient(cfg.ScoreAPIURL, cfg.ScoreAPIToken, kv)

	ctrl := session.NewController(
		location.StaticPermissions{Foreground: true, Background: true},
		src,
		background,
		submitter,
	)

	hub := stream.NewHub(redisClient)
	ctrl.OnSnapshot(func(snap metrics.Snapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			return
		}
		hub.Broadcast(payload)
	})

	s := &Server{
		App:        app,
		Cfg:        cfg,
		Redis:      redisClient,
		Stream:     hub,
		Controller: ctrl,
		KV:         kv,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.App.Get("/colors/:userID", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"color": geo.ColorForUser(c.Params("userID"))})
	})

	session.RegisterRoutes(s.App.Group("/session"), s.Controller, s.KV)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
