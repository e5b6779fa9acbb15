package public

import (
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

func getAccountID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, shared.ContextAccountID)
}

func viewerID(c *gin.Context) uint {
	return shared.OptionalContextUint(c, shared.ContextAccountID)
}

func getAccountClaims(c *gin.Context) (*service.AccountJWTClaims, bool) {
	value, exists := c.Get(shared.ContextAccountClaims)
	if !exists {
		shared.RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return nil, false
	}
	claims, ok := value.(*service.AccountJWTClaims)
	if !ok || claims == nil {
		shared.RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return claims, true
}
