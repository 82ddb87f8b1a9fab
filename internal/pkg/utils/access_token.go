package utils

import (
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

const (
	emailClaimKey string = "email"
	tokenCtxKey   string = "accessToken"
)

type AccessToken struct {
	Token    auth.Token
	RawToken string
}

func SetAccessTokenCtx(token *AccessToken, ctx *gin.Context) {
	ctx.Set(tokenCtxKey, *token)
}

// GetOperator returns the identity of the caller that passed VerifyAuthToken, preferring the
// email claim. Empty when the route is not authenticated.
func GetOperator(ctx *gin.Context) string {
	value, exists := ctx.Get(tokenCtxKey)
	if !exists {
		return ""
	}
	at, ok := value.(AccessToken)
	if !ok {
		return ""
	}
	if email, ok := at.Token.Claims[emailClaimKey].(string); ok {
		return email
	}
	return at.Token.UID
}
