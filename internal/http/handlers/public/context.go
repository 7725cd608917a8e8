package public

import (
	"strings"

	"github.com/diancan-next/internal/constants"
	handlershared "github.com/diancan-next/internal/http/handlers/shared"
	"github.com/diancan-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// getCartSession 读取购物车会话令牌，缺失时直接响应错误
func getCartSession(c *gin.Context) (string, bool) {
	token := strings.TrimSpace(c.GetHeader(constants.CartSessionHeader))
	if token == "" {
		respondError(c, response.CodeBadRequest, "error.cart_session_missing", nil)
		return "", false
	}
	return token, true
}
