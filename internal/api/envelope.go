package api

import (
	"math"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/table"
)

// Error codes produced by the HTTP layer itself. Query errors use the
// engine's codes (UNKNOWN_COLUMN etc.).
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// QueryResponse is the success envelope of POST /query.
type QueryResponse struct {
	Success    bool           `json:"success"`
	Data       []table.Record `json:"data"`
	TotalCount int            `json:"total_count"`
	Pagination Pagination     `json:"pagination"`
	Metadata   Metadata       `json:"metadata"`
}

// Pagination describes the returned page in page-number terms.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// Metadata carries diagnostics about one query.
type Metadata struct {
	QueryTimeMS  float64          `json:"query_time_ms"`
	TotalMatches int              `json:"total_matches"`
	RequestID    string           `json:"request_id"`
	Warnings     []engine.Warning `json:"warnings,omitempty"`
	Note         string           `json:"note,omitempty"`
}

// ErrorResponse is the failure envelope of every route.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	Details   map[string]any `json:"details,omitempty"`
	Code      string         `json:"code"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// NewPagination derives page numbers from offset and limit.
//
// Without a limit the whole result is one page. Page numbers are 1-based;
// an offset that is not a multiple of the limit lands on the page holding
// its first row.
func NewPagination(total, offset, limit int) Pagination {
	p := Pagination{Total: total}
	if limit <= 0 {
		p.PageSize = total
		p.Page = 1
		if total > 0 {
			p.TotalPages = 1
		}
		return p
	}
	p.PageSize = limit
	p.Page = offset / limit
	if p.Page < math.MaxInt {
		p.Page++
	}
	p.TotalPages = total / limit
	if total%limit != 0 {
		p.TotalPages++
	}
	return p
}
