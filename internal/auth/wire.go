package auth

import (
	"github.com/google/wire"

	"bazaar/config"
)

// ProvideVerifier is a Wire provider function that creates the token Verifier
func ProvideVerifier(cfg *config.Config) Verifier {
	return NewJWTVerifier(cfg.JWTSecret)
}

var Set = wire.NewSet(ProvideVerifier)
