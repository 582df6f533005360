package mw

import (
	"net/http"

	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/utils"
)

// AllowOnlyCIDRS keeps the panel reachable only from the listed IPs and
// CIDRs. An empty list lets every client through. With trustProxy the client
// IP comes from the proxy headers, so enable it only behind a proxy you run.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		log.Debug("panel CIDR allow-list empty, all clients allowed")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Info("panel CIDR allow-list active",
		logger.Int("rules", m.Len()),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("panel request from disallowed address",
					logger.String("client_ip", ip),
					logger.String("remote_addr", r.RemoteAddr),
					logger.String("path", r.URL.Path))
				writeDetail(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
