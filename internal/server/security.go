package server

import (
	"strings"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// contentSecurityPolicy lets the player load blob: media sources and remote
// poster images while keeping scripts same-origin.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"style-src 'self' 'unsafe-inline'",
	"script-src 'self'",
	"img-src 'self' data: https:",
	"media-src 'self' blob:",
	"connect-src 'self'",
}, "; ")

func securityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: contentSecurityPolicy,
	})
}
