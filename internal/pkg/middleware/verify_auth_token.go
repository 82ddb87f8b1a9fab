package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

const (
	accessTokenRequired string = "error.token.required"
	accessTokenInvalid  string = "error.token.invalid"
)

type TokenVerifier interface {
	VerifyIdToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// VerifyAuthToken guards operator routes with a Firebase ID token passed as a bearer token.
func VerifyAuthToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		idTokenValue := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if idTokenValue == "" {
			log.Warn().Str("path", c.FullPath()).Msg("Token missing: 401")
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Missing access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenRequired).
					Build())
			return
		}

		token, err := verifier.VerifyIdToken(c.Request.Context(), idTokenValue)
		if err != nil {
			log.Warn().Err(err).Msg("Error verifying token")
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Cannot verify access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenInvalid).
					WithDetail(err.Error()).
					Build())
			return
		}

		utils.SetAccessTokenCtx(&utils.AccessToken{Token: *token, RawToken: idTokenValue}, c)
		c.Next()
	}
}
