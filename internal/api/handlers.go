package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// LivenessMessage is returned by GET /.
const LivenessMessage = "datatool query server is running"

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": LivenessMessage})
}

// HealthResponse is the body of GET /health.
//
// Status is "ok" when a table is loaded and "degraded" when the server is
// answering from an empty substitute table.
type HealthResponse struct {
	Status  string `json:"status"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Source  string `json:"source,omitempty"`
	Note    string `json:"note,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	tbl := s.snapshot.Load()
	resp := HealthResponse{
		Status:  "ok",
		Rows:    tbl.Len(),
		Columns: len(tbl.Columns()),
		Source:  tbl.Source(),
		Note:    tbl.Note(),
	}
	if tbl.Note() != "" {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

// SchemaResponse is the body of GET /schema.
type SchemaResponse struct {
	Columns []table.Column `json:"columns"`
	Rows    int            `json:"rows"`
	Source  string         `json:"source,omitempty"`
}

func (s *Server) handleSchema(c *gin.Context) {
	tbl := s.snapshot.Load()
	c.JSON(http.StatusOK, SchemaResponse{
		Columns: tbl.Columns(),
		Rows:    tbl.Len(),
		Source:  tbl.Source(),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "request body too large", nil)
			return
		}
		s.writeError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "reading request body failed", nil)
		return
	}

	if len(bytes.TrimSpace(body)) > 0 {
		violations, err := s.validator.Validate(body)
		if err != nil {
			s.writeError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "body is not valid JSON",
				map[string]any{"reason": err.Error()})
			return
		}
		if len(violations) > 0 {
			s.writeError(c, http.StatusUnprocessableEntity, ErrCodeInvalidRequest, "request does not match the query schema",
				map[string]any{"errors": violations})
			return
		}
	}

	q, err := queryir.NormalizeJSON(body)
	if err != nil {
		var reqErr *queryir.RequestError
		details := map[string]any{}
		if errors.As(err, &reqErr) && reqErr.Field != "" {
			details["field"] = reqErr.Field
		}
		s.writeError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), details)
		return
	}

	// One snapshot for the whole request.
	tbl := s.snapshot.Load()

	start := s.clock.Now()
	res, err := s.engine.Evaluate(tbl, q)
	elapsed := s.clock.Now().Sub(start)

	if err != nil {
		var qe *engine.QueryError
		if errors.As(err, &qe) {
			s.metrics.QueriesTotal.WithLabelValues(string(qe.Code)).Inc()
			s.writeError(c, http.StatusBadRequest, string(qe.Code), qe.Message, qe.Details())
			return
		}
		s.metrics.QueriesTotal.WithLabelValues(ErrCodeInternal).Inc()
		s.logger.Error("query failed", "error", err, "request_id", requestIDFrom(c))
		s.writeError(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", nil)
		return
	}

	s.metrics.QueriesTotal.WithLabelValues("ok").Inc()
	s.metrics.QueryMatches.Observe(float64(res.TotalCount))
	for _, w := range res.Warnings {
		s.metrics.WarningsTotal.WithLabelValues(string(w.Code)).Inc()
	}
	if fp, err := queryir.Fingerprint(q); err == nil {
		s.logger.Debug("query evaluated",
			"fingerprint", fp[:16],
			"matches", res.TotalCount,
			"warnings", len(res.Warnings),
			"request_id", requestIDFrom(c),
		)
	}

	c.JSON(http.StatusOK, QueryResponse{
		Success:    true,
		Data:       res.Records(),
		TotalCount: res.TotalCount,
		Pagination: NewPagination(res.TotalCount, q.Offset, q.Limit),
		Metadata: Metadata{
			QueryTimeMS:  float64(elapsed) / float64(time.Millisecond),
			TotalMatches: res.TotalCount,
			RequestID:    requestIDFrom(c),
			Warnings:     res.Warnings,
			Note:         res.Note,
		},
	})
}
