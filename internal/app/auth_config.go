package app

import (
	iauth "github.com/sellercentry/centry/internal/auth"
)

// JWTServiceConfig converts AuthConfig to the auth package representation.
func (c AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: c.JWT.TTL,
	}
}
