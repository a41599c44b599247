//go:build !embed
// +build !embed

package main

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupStaticFiles configures static file serving for development (no embedding)
func setupStaticFiles(router *gin.Engine, zl *zap.Logger) {
	if _, err := os.Stat("./web/index.html"); err != nil {
		zl.Info("no local map front end found; serving API only", zap.String("dir", "./web"))
	} else {
		zl.Info("serving map front end from local filesystem", zap.String("dir", "./web"))
		router.Static("/static", "./web/static")
		router.StaticFile("/", "./web/index.html")
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(404, gin.H{
			"error": "Not found",
			"hint":  "Map front end is served from ./web or embedded with -tags embed",
		})
	})
}
