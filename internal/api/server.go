// Package api exposes a thin HTTP surface over schema validation, guarded
// generation runs and the run registry. No generation logic lives here.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/registry"
	"github.com/fbrzx/dw-simulator/internal/schema"
)

type Server struct {
	runner *generate.Runner
	reg    *registry.Registry
}

func NewServer(runner *generate.Runner, reg *registry.Registry) *Server {
	return &Server{runner: runner, reg: reg}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/schemas/validate", s.validateSchema)
	router.POST("/experiments/:name/generate", s.generateExperiment)
	router.GET("/experiments/:name/runs", s.listRuns)
	router.GET("/runs/:id", s.getRun)

	return router
}

// validateSchema accepts a raw JSON or YAML experiment schema. Violations
// come back as a list, never just the first one.
func (s *Server) validateSchema(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	exp, err := schema.Parse(body)
	if err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"violations": vErr.Violations})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	warnings := map[string][]string{}
	for _, tbl := range exp.Tables {
		if len(tbl.Warnings) > 0 {
			warnings[tbl.Name] = tbl.Warnings
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"experiment": exp.Name,
		"tables":     len(exp.Tables),
		"warnings":   warnings,
	})
}

type generateRequest struct {
	Schema       *schema.Experiment `json:"schema" binding:"required"`
	RowOverrides map[string]int     `json:"rows,omitempty"`
	Seed         *int64             `json:"seed,omitempty"`
	OutputRoot   string             `json:"output_root,omitempty"`
}

func (s *Server) generateExperiment(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Schema.Name != c.Param("name") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schema name does not match experiment in path"})
		return
	}

	if err := req.Schema.Validate(); err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"violations": vErr.Violations})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, run, err := s.runner.Run(c.Request.Context(), generate.Request{
		Schema:       req.Schema,
		RowOverrides: req.RowOverrides,
		Seed:         req.Seed,
		OutputRoot:   req.OutputRoot,
	})
	if err != nil {
		var active *registry.ErrRunActive
		if errors.As(err, &active) {
			c.JSON(http.StatusConflict, gin.H{
				"error":      active.Error(),
				"run_id":     active.RunID,
				"started_at": active.StartedAt,
			})
			return
		}
		status := http.StatusInternalServerError
		resp := gin.H{"error": err.Error()}
		if run != nil {
			resp["run_id"] = run.ID
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "result": result})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.reg.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.reg.List(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
