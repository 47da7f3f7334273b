package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/registry"
	"github.com/skekre98/modhost/web"
)

// demoCatalog binds the example modules shipped in configs/modules.
func demoCatalog(logger *slog.Logger) *registry.Catalog {
	c := registry.NewCatalog()

	c.Register("greeter", func(d module.Descriptor) (registry.Extension, error) {
		return registry.Funcs{
			Handlers: []web.Route{{
				Method: http.MethodGet,
				Path:   "/hello",
				Handler: func(c *gin.Context) {
					c.JSON(http.StatusOK, gin.H{"message": "hello", "version": d.Version})
				},
			}},
		}, nil
	})

	c.Register("clock", func(d module.Descriptor) (registry.Extension, error) {
		var since atomic.Int64
		return registry.Funcs{
			OnStart: func(context.Context) error {
				since.Store(time.Now().Unix())
				logger.Info("clock started", "module", d.ID)
				return nil
			},
			OnStop: func(context.Context) error {
				logger.Info("clock stopped", "module", d.ID)
				return nil
			},
			Handlers: []web.Route{{
				Method: http.MethodGet,
				Path:   "/now",
				Handler: func(c *gin.Context) {
					c.JSON(http.StatusOK, gin.H{
						"now":   time.Now().UTC().Format(time.RFC3339),
						"since": time.Unix(since.Load(), 0).UTC().Format(time.RFC3339),
					})
				},
			}},
		}, nil
	})

	return c
}
