package security

import (
	"strings"

	"changeportal/bizerror"

	"github.com/gin-gonic/gin"
)

const KeySecCtx = "SecCtx"

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
)

func FindSecurityContext(ctx *gin.Context) *Context {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return nil
	}
	secCtx, ok := value.(*Context)
	if !ok || secCtx.Identity.ID == "" {
		return nil
	}
	return secCtx
}

func SaveSecurityContext(ctx *gin.Context, secCtx *Context) {
	if secCtx != nil && secCtx.Identity.ID != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}

// ActorID is the acting user of the request, empty when unauthenticated.
func ActorID(ctx *gin.Context) string {
	if secCtx := FindSecurityContext(ctx); secCtx != nil {
		return secCtx.Identity.ID
	}
	return ""
}

// SimpleAuthFilter takes the acting user from the headers set by the portal gateway.
func SimpleAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := strings.TrimSpace(ctx.GetHeader(HeaderUserID))
		if userID == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		secCtx := &Context{
			Token:    strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer "),
			Identity: Identity{ID: userID, Name: strings.TrimSpace(ctx.GetHeader(HeaderUserName))},
		}
		SaveSecurityContext(ctx, secCtx)
		ctx.Next()
	}
}
