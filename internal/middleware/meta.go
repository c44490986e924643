package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "response_meta_start"

	MetaCacheHit       = "cache_hit"
	MetaProcessingTime = "processing_time_ms"
	MetaRequestID      = "request_id"
)

// WithResponseMeta prepares per-request metadata that handlers can enrich
// before rendering the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the analytics cache.
func SetCacheHit(c *gin.Context, hit bool) {
	setMeta(c, MetaCacheHit, hit)
}

// ResponseMeta snapshots the collected metadata, adding the request id and
// the time spent since WithResponseMeta ran.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	out := make(map[string]interface{})
	if c == nil {
		return out
	}
	if stored, ok := c.Get(responseMetaKey); ok {
		if meta, ok := stored.(map[string]interface{}); ok {
			for k, v := range meta {
				out[k] = v
			}
		}
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			out[MetaProcessingTime] = time.Since(t).Milliseconds()
		}
	}
	if id := requestid.Value(c); id != "" {
		out[MetaRequestID] = id
	}
	return out
}

func setMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, _ := c.Get(responseMetaKey)
	typed, ok := meta.(map[string]interface{})
	if !ok {
		typed = make(map[string]interface{})
		c.Set(responseMetaKey, typed)
	}
	typed[key] = value
}
