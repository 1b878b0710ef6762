package middleware

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/bazaarlabs/bazaar/internal/auth"
	"github.com/bazaarlabs/bazaar/internal/config"
	"github.com/bazaarlabs/bazaar/internal/presentation/http/response"
	"github.com/bazaarlabs/bazaar/pkg/errorbank"
)

const ctxActorKey = "auth.actor"

// Actor returns the authenticated actor, or auth.Anonymous when the request
// carried no valid token.
func Actor(c echo.Context) auth.Actor {
	if actor, ok := c.Get(ctxActorKey).(auth.Actor); ok {
		return actor
	}
	return auth.Anonymous
}

// AuthJWT verifies bearer tokens and stores the resulting actor on the
// request. Requests without an Authorization header pass through anonymous;
// the policy layer decides which operations require authentication. A header
// that is present but invalid is rejected outright.
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				c.Set(ctxActorKey, auth.Anonymous)
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return response.New(c).WithError(errorbank.Unauthorized("malformed authorization header")).Build()
			}

			actor, err := parseToken(strings.TrimSpace(parts[1]), cfg.Auth)
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthorized("invalid token", errorbank.WithCause(err))).Build()
			}

			c.Set(ctxActorKey, actor)
			return next(c)
		}
	}
}

func parseToken(raw string, cfg config.Auth) (auth.Actor, error) {
	if raw == "" {
		return auth.Anonymous, errors.New("empty token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || token == nil || !token.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return auth.Anonymous, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Anonymous, errors.New("unexpected claims type")
	}

	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return auth.Anonymous, errors.New("wrong issuer")
	}

	uid, _ := claims["sub"].(string)
	if uid == "" {
		return auth.Anonymous, errors.New("missing sub claim")
	}

	role, _ := claims["role"].(string)
	actor := auth.Actor{UID: uid, Role: auth.Role(role)}

	switch actor.Role {
	case auth.RoleAdmin, auth.RoleSeller, auth.RoleUser:
	default:
		return auth.Anonymous, errors.New("unknown role claim")
	}

	if sellerID, ok := claims["seller_id"].(string); ok {
		actor.SellerID = sellerID
	}
	if email, ok := claims["email"].(string); ok {
		actor.Email = email
	}

	return actor, nil
}
