// Package cache provides a Redis-backed response cache for read-heavy
// lookup endpoints. Cache failures are never surfaced to clients; a broken
// Redis degrades to uncached responses.
package cache

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache wraps a Redis client with a fixed entry TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zerolog.Logger
}

// New creates a cache against the given Redis address.
func New(addr string, ttl time.Duration, logger *zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Cache{
		client: client,
		ttl:    ttl,
		log:    logger,
	}
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

type cachedWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware returns a gin middleware that serves GET responses from Redis
// when possible and stores successful responses on miss. The request URI is
// the cache key.
func (c *Cache) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		key := "resp:" + ctx.Request.URL.RequestURI()

		cached, err := c.client.Get(ctx.Request.Context(), key).Result()
		if err == nil {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			ctx.Abort()
			return
		}
		if !errors.Is(err, redis.Nil) {
			// Redis unavailable: fall through to the handler.
			c.log.Debug().Err(err).Str("key", key).Msg("cache lookup failed")
			ctx.Next()
			return
		}

		ctx.Header("X-Cache", "MISS")
		writer := &cachedWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = writer

		ctx.Next()

		status := writer.Status()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			if err := c.client.Set(ctx.Request.Context(), key, writer.body.Bytes(), c.ttl).Err(); err != nil {
				c.log.Debug().Err(err).Str("key", key).Msg("cache store failed")
			}
		}
	}
}
