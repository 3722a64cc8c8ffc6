// Package handler 包含了处理 HTTP 请求的 Gin 处理函数。
package handler

import (
	"errors"
	"io"
	"net/http"
	"shelf-search-go/internal/middleware"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/service"
	"shelf-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchRequest 是搜索接口的请求体。
type SearchRequest struct {
	Terms []string `json:"terms"`
}

// SearchResponse 是搜索接口成功时的响应体。
type SearchResponse struct {
	Results []model.SearchResultDTO `json:"results"`
}

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 是处理目录模糊搜索请求的 Gin 处理函数。
func (h *SearchHandler) Search(c *gin.Context) {
	ownerID := c.GetString(middleware.OwnerIDKey)
	if ownerID == "" {
		log.Errorf("[SearchHandler] 无法从 Gin 上下文中获取 ownerId")
		respondError(c, service.ErrAuthResolution)
		return
	}

	var req SearchRequest
	// 空请求体按没有查询词处理
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warnf("[SearchHandler] 请求体解析失败, owner: %s, error: %v", ownerID, err)
		respondError(c, service.ErrInvalidQuery)
		return
	}
	log.Infof("[SearchHandler] 收到搜索请求, owner: %s, terms: %q", ownerID, req.Terms)

	results, err := h.searchService.Search(c.Request.Context(), ownerID, req.Terms)
	if err != nil {
		log.Errorf("[SearchHandler] 搜索服务返回错误, owner: %s, error: %v", ownerID, err)
		respondError(c, err)
		return
	}
	if results == nil {
		results = []model.SearchResultDTO{}
	}

	log.Infof("[SearchHandler] 搜索成功, owner: %s, 返回 %d 条结果", ownerID, len(results))
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

// respondError 把错误分类映射为状态码，只返回面向用户的信息。
func respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "搜索失败"
	switch {
	case errors.Is(err, service.ErrAuthResolution):
		status, message = http.StatusUnauthorized, "无法识别调用者身份"
	case errors.Is(err, service.ErrInvalidQuery):
		status, message = http.StatusBadRequest, "无效的查询参数"
	case errors.Is(err, service.ErrStorageQuery):
		status, message = http.StatusInternalServerError, "读取目录失败"
	}
	c.JSON(status, gin.H{"code": status, "message": message})
}
