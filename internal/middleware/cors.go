package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

// originPolicy matches request origins against the configured list.
// Entries are exact origins, "*", or "https://*.example.com" for any subdomain.
type originPolicy struct {
	any      bool
	exact    map[string]bool
	suffixes []string // host suffix after the wildcard, e.g. ".example.com"
	schemes  []string
}

func parseOrigins(s string) originPolicy {
	p := originPolicy{exact: make(map[string]bool)}
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case o == "*":
			p.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			p.schemes = append(p.schemes, scheme+"://")
			p.suffixes = append(p.suffixes, host)
		default:
			p.exact[o] = true
		}
	}
	if len(p.exact) == 0 && len(p.suffixes) == 0 {
		p.any = true
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.exact[origin] {
		return true
	}
	for i, suffix := range p.suffixes {
		if strings.HasPrefix(origin, p.schemes[i]) && strings.HasSuffix(origin, suffix) &&
			len(origin) > len(p.schemes[i])+len(suffix) {
			return true
		}
	}
	return false
}

// CORS sets cross-origin headers. Listed origins are echoed back with credentials allowed so
// the session cookie travels; "*" (or an empty list) allows any origin without credentials.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := parseOrigins(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case policy.allows(origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		case policy.any:
			c.Header("Access-Control-Allow-Origin", "*")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Methods", corsMethods)
		c.Header("Access-Control-Allow-Headers", corsHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
