package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/middleware"
	"github.com/lecturehub/lecturehub-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func principalFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(middleware.ContextPrincipalKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func pageParamsFromQuery(c *gin.Context) models.PageParams {
	var params models.PageParams
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	// A missing or invalid size stays zero; the repositories apply the
	// shared default.
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		params.PageSize = size
	}
	params.SortBy = c.Query("sort_by")
	params.SortOrder = c.Query("sort_order")
	return params
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
