package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/ai-den/jsongrammar/api"
	"github.com/ai-den/jsongrammar/check"
	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/grammar"
	"github.com/ai-den/jsongrammar/version"
)

// Server limits the number of compilations running at once to
// JSONGRAMMAR_NUM_PARALLEL.
type Server struct {
	sem *semaphore.Weighted
}

func NewServer() *Server {
	return &Server{
		sem: semaphore.NewWeighted(int64(envconfig.NumParallel)),
	}
}

func (s *Server) GenerateRoutes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowHeaders = []string{"Authorization", "Content-Type", "User-Agent", "Accept", "X-Requested-With", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	config.AllowOrigins = envconfig.AllowOrigins

	r := gin.New()
	r.Use(
		gin.Recovery(),
		cors.New(config),
		requestIDMiddleware(),
		loggingMiddleware(),
	)

	r.POST("/api/grammar", s.GrammarHandler)
	r.POST("/api/check", s.CheckHandler)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Handle(method, "/", func(c *gin.Context) {
			c.String(http.StatusOK, "jsongrammar is running")
		})

		r.Handle(method, "/api/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version})
		})
	}

	return r
}

// compilerOptions decodes a request's options map. The whitespace policy
// defaults to JSONGRAMMAR_WHITESPACE.
func compilerOptions(m map[string]any) ([]grammar.Option, error) {
	o := api.Options{Whitespace: envconfig.Whitespace}
	if err := o.FromMap(m); err != nil {
		return nil, err
	}

	ws, err := grammar.ParseWhitespace(o.Whitespace)
	if err != nil {
		return nil, err
	}

	opts := []grammar.Option{grammar.WithWhitespace(ws)}
	if o.RootName != "" {
		opts = append(opts, grammar.WithRootName(o.RootName))
	}
	return opts, nil
}

func (s *Server) acquire(c *gin.Context) bool {
	if err := s.sem.Acquire(c.Request.Context(), 1); err != nil {
		slog.Info("request canceled while waiting", "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, api.ErrorResponse{Message: "server busy", Code: api.ErrCodeGeneral})
		return false
	}
	return true
}

func (s *Server) GrammarHandler(c *gin.Context) {
	var req api.GrammarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error(), Code: api.ErrCodeMalformedSchema})
		return
	}

	if len(req.Schema) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: "schema is required", Code: api.ErrCodeMalformedSchema})
		return
	}

	opts, err := compilerOptions(req.Options)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error(), Code: api.ErrCodeInvalidOptions})
		return
	}

	if !s.acquire(c) {
		return
	}
	defer s.sem.Release(1)

	schema, err := grammar.Parse(req.Schema)
	if err != nil {
		abortWithSchemaError(c, err)
		return
	}

	g, err := grammar.Compile(schema, opts...)
	if err != nil {
		abortWithSchemaError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.GrammarResponse{
		Root:        g.Root(),
		Grammar:     g.String(),
		Productions: g.Len(),
	})
}

func (s *Server) CheckHandler(c *gin.Context) {
	var req api.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error(), Code: api.ErrCodeMalformedSchema})
		return
	}

	if len(req.Schema) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: "schema is required", Code: api.ErrCodeMalformedSchema})
		return
	}

	opts, err := compilerOptions(req.Options)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error(), Code: api.ErrCodeInvalidOptions})
		return
	}

	if !s.acquire(c) {
		return
	}
	defer s.sem.Release(1)

	checker, err := check.New(req.Schema, opts...)
	if err != nil {
		abortWithSchemaError(c, err)
		return
	}

	resp := api.CheckResponse{Root: checker.Grammar.Root(), Results: make([]api.CheckResult, len(req.Instances))}
	for i, instance := range req.Instances {
		r := checker.Check(instance)
		resp.Results[i] = api.CheckResult{Accepted: r.Accepted, Valid: r.Valid}
		if r.Err != nil {
			resp.Results[i].Error = r.Err.Error()
		}
		if !r.Sound() {
			slog.Warn("grammar accepted an invalid instance", "root", checker.Grammar.Root(), "index", i, "error", r.Err)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// abortWithSchemaError maps compiler errors to 400 responses with a
// machine-readable code. Anything else is an internal error.
func abortWithSchemaError(c *gin.Context, err error) {
	resp := api.ErrorResponse{Message: err.Error()}

	var se *grammar.SchemaError
	if errors.As(err, &se) {
		resp.Data = map[string]any{"path": se.Path}
	}

	switch {
	case errors.Is(err, grammar.ErrUnresolvedReference):
		resp.Code = api.ErrCodeUnresolvedReference
	case errors.Is(err, grammar.ErrUnsupportedSchema):
		resp.Code = api.ErrCodeUnsupportedSchema
	case errors.Is(err, grammar.ErrMalformedSchema):
		resp.Code = api.ErrCodeMalformedSchema
	default:
		slog.Error("compile failed", "error", err)
		resp.Code = api.ErrCodeGeneral
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func Serve(ln net.Listener) error {
	slog.Info("server config", "env", envconfig.Values())

	if !envconfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := NewServer()
	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// listen for a ctrl+c and drain in-flight requests
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srvr.Shutdown(ctx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	if err := srvr.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
