package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/token"
)

const ClaimsKey = "claims"

// JWTAuth validates the Bearer token on every protected route and stores the
// resulting claim both in the gin context and in the request context.
func JWTAuth(tokens *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		claim, err := tokens.ParseAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(apierror.HTTPStatus(err), apierror.Body(err))
			return
		}

		c.Set(ClaimsKey, claim)
		c.Request = c.Request.WithContext(identity.WithClaim(c.Request.Context(), claim))
		c.Next()
	}
}

// RequireRole rejects requests whose role is not in the allowed list. Finer
// decisions (ownership, team) belong to the policy package.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	allowed := make(map[identity.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claim, ok := GetClaims(c)
		if !ok || !allowed[claim.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

var errNoClaim = errors.New("no identity claim on request")

// GetClaims retrieves the claim stored by JWTAuth.
func GetClaims(c *gin.Context) (identity.Claim, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return identity.Claim{}, false
	}
	claim, ok := v.(identity.Claim)
	return claim, ok
}

// MustClaims is GetClaims for handlers mounted behind JWTAuth.
func MustClaims(c *gin.Context) identity.Claim {
	claim, ok := GetClaims(c)
	if !ok {
		panic(errNoClaim)
	}
	return claim
}
