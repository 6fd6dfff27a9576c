// Package server exposes the analysis pipeline over HTTP.
//
// The API mirrors a small upload-and-score service: multipart POST
// endpoints for scoring and boosting, JSON responses, permissive CORS
// for browser clients, and a {"detail": ...} envelope on errors.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	emocheck "github.com/menta2k/emo-check"
	"github.com/menta2k/emo-check/pkg/scorer"
	"github.com/menta2k/emo-check/pkg/types"
)

// DefaultMaxUploadBytes caps multipart image uploads at 10MB.
const DefaultMaxUploadBytes = 10 << 20

// Server wraps a Pipeline behind a gin engine.
type Server struct {
	pipeline  *emocheck.Pipeline
	maxUpload int64
	engine    *gin.Engine
}

// New creates a Server and registers all routes.
func New(pipeline *emocheck.Pipeline, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	s := &Server{
		pipeline:  pipeline,
		maxUpload: maxUpload,
		engine:    engine,
	}

	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)
	engine.POST("/predict", s.handlePredict)
	engine.POST("/boost", s.handleBoost)

	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server on addr and blocks until it fails.
func (s *Server) Run(addr string) error {
	log.Printf("Listening on %s", addr)
	return s.engine.Run(addr)
}

// corsMiddleware allows browser clients from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// handleRoot reports that the API is up.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Emo-Check API is running",
		"status":  "ok",
	})
}

// handleHealth reports which scoring backbones are loaded.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"models":  s.pipeline.Models(),
		"version": emocheck.Version,
	})
}

// handlePredict scores an uploaded photo and returns the full emo report.
func (s *Server) handlePredict(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	model := c.DefaultPostForm("model_type", scorer.ModelResNet)

	result, err := s.pipeline.Analyze(c.Request.Context(), data, model)
	if err != nil {
		log.Printf("Analyze failed: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleBoost applies a filter to an uploaded photo and returns the
// boosted image as base64 PNG.
func (s *Server) handleBoost(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	filter := c.PostForm("filter_type")

	result, err := s.pipeline.Boost(c.Request.Context(), data, filter)
	if err != nil {
		log.Printf("Boost failed: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image_base64":   result.Base64(),
		"filter_applied": result.FilterApplied,
	})
}

// readUpload pulls the image bytes out of the multipart form.
func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	if err := c.Request.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing image file: %w", err)
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		return nil, fmt.Errorf("image exceeds the %dMB upload limit", s.maxUpload/(1<<20))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	return data, nil
}

// respondError maps pipeline errors onto HTTP status codes. Client
// mistakes (bad upload, unknown selector) are 400s, a missing backbone
// is a 503, everything else is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrUnsupportedFormat),
		errors.Is(err, types.ErrDecode),
		errors.Is(err, types.ErrEmptyPixelData),
		errors.Is(err, types.ErrUnknownModel),
		errors.Is(err, types.ErrUnknownFilter):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"detail": err.Error()})
}
