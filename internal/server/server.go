package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/niterudb/internal/domain"
	"github.com/varoOP/niterudb/internal/provider"
	"github.com/varoOP/niterudb/internal/service"
)

// Server is the HTTP surface over the service facade.
type Server struct {
	log  zerolog.Logger
	echo *echo.Echo
	svc  service.Service
	addr string
}

func NewServer(log zerolog.Logger, svc service.Service, cfg domain.ServerConfig) *Server {
	s := &Server{
		log:  log.With().Str("module", "server").Logger(),
		echo: echo.New(),
		svc:  svc,
		addr: cfg.Addr,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger())

	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.addr).Msg("starting http server")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			s.log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Msg("request")
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	v1 := s.echo.Group("/v1")

	v1.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	v1.GET("/anime/search", s.handleSearch())
	v1.GET("/anime/trending", s.handleTrending())
	v1.GET("/anime/:id", s.handleDetails())
	v1.GET("/anime/:id/recommendations", s.handleRecommendations())
	v1.POST("/recommendations/hybrid", s.handleHybrid())
	v1.POST("/recommendations/preference", s.handlePreference())
	v1.GET("/cache/stats", s.handleCacheStats())
	v1.DELETE("/cache", s.handleClearCache())
}

func (s *Server) handleSearch() echo.HandlerFunc {
	return func(c echo.Context) error {
		query := strings.TrimSpace(c.QueryParam("q"))
		if query == "" {
			return jsonError(c, http.StatusBadRequest, "query parameter q is required")
		}

		opts := domain.SearchOptions{
			Page:         intParam(c, "page"),
			PerPage:      intParam(c, "perPage"),
			Year:         intParam(c, "year"),
			Status:       domain.Status(c.QueryParam("status")),
			IncludeAdult: c.QueryParam("includeAdult") == "true",
		}
		if genres := c.QueryParam("genres"); genres != "" {
			opts.Genres = strings.Split(genres, ",")
		}

		records, err := s.svc.SearchAnime(c.Request().Context(), query, opts)
		if err != nil {
			return s.handleError(c, err, "search")
		}
		return c.JSON(http.StatusOK, map[string]any{"results": records, "count": len(records)})
	}
}

func (s *Server) handleDetails() echo.HandlerFunc {
	return func(c echo.Context) error {
		rec, err := s.svc.GetAnimeDetails(c.Request().Context(), c.Param("id"))
		if err != nil {
			return s.handleError(c, err, "details")
		}
		if rec == nil {
			return jsonError(c, http.StatusNotFound, "anime not found")
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) handleRecommendations() echo.HandlerFunc {
	return func(c echo.Context) error {
		results, err := s.svc.GetRecommendations(c.Request().Context(), c.Param("id"), intParam(c, "limit"))
		if err != nil {
			return s.handleError(c, err, "recommendations")
		}
		return c.JSON(http.StatusOK, map[string]any{"results": results, "count": len(results)})
	}
}

func (s *Server) handleHybrid() echo.HandlerFunc {
	type request struct {
		IDs   []string `json:"ids"`
		Limit int      `json:"limit"`
	}
	return func(c echo.Context) error {
		var req request
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid request body")
		}
		if len(req.IDs) == 0 {
			return jsonError(c, http.StatusBadRequest, "ids is required")
		}

		results, err := s.svc.GetHybridRecommendations(c.Request().Context(), req.IDs, req.Limit)
		if err != nil {
			return s.handleError(c, err, "hybrid recommendations")
		}
		return c.JSON(http.StatusOK, map[string]any{"results": results, "count": len(results)})
	}
}

func (s *Server) handlePreference() echo.HandlerFunc {
	type request struct {
		Profile domain.PreferenceProfile `json:"profile"`
		Limit   int                      `json:"limit"`
	}
	return func(c echo.Context) error {
		var req request
		if err := c.Bind(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid request body")
		}
		if req.Profile.IsEmpty() {
			return jsonError(c, http.StatusBadRequest, "profile is empty")
		}

		results, err := s.svc.GetPreferenceBasedRecommendations(c.Request().Context(), req.Profile, req.Limit)
		if err != nil {
			return s.handleError(c, err, "preference recommendations")
		}
		return c.JSON(http.StatusOK, map[string]any{"results": results, "count": len(results)})
	}
}

func (s *Server) handleTrending() echo.HandlerFunc {
	return func(c echo.Context) error {
		records, err := s.svc.GetTrendingAnime(c.Request().Context())
		if err != nil {
			return s.handleError(c, err, "trending")
		}
		return c.JSON(http.StatusOK, map[string]any{"results": records, "count": len(records)})
	}
}

func (s *Server) handleCacheStats() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.svc.GetCacheStats())
	}
}

func (s *Server) handleClearCache() echo.HandlerFunc {
	return func(c echo.Context) error {
		s.svc.ClearCache()
		return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
	}
}

func (s *Server) handleError(c echo.Context, err error, op string) error {
	if errors.Is(err, provider.ErrUnknownSource) || errors.Is(err, domain.ErrMalformedID) {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	s.log.Error().Err(err).Str("op", op).Msg("request failed")
	return jsonError(c, http.StatusInternalServerError, op+" failed")
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func intParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
