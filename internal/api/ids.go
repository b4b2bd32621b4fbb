package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// IDGenerator produces request IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 request IDs, so IDs sort
// in arrival order in logs.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does.
		return uuid.NewString()
	}
	return id.String()
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// requestID assigns an ID to each request and echoes it in a header.
func requestID(gen IDGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := gen.Generate()
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
