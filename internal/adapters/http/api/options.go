package api

import "github.com/okian/dutylog/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit limits write requests to perMinute per client with the
// given burst. A non-positive rate disables limiting.
func WithRateLimit(perMinute float64, burst int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = NewRateLimiter(perMinute, burst)
		}
	}
}

// WithTrustedProxyHeaders makes the rate limiter key clients by the
// X-Real-IP and X-Forwarded-For headers instead of the remote address.
func WithTrustedProxyHeaders(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// WithMaxBodyBytes caps request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
