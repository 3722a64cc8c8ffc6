package service

import "errors"

// 搜索链路中的错误分类，handler 通过 errors.Is 映射为 HTTP 状态码。
var (
	// ErrAuthResolution 表示无法从请求中得到调用者的 ownerId。
	ErrAuthResolution = errors.New("owner identity could not be resolved")
	// ErrStorageQuery 表示重建索引时目录存储查询失败，整个请求失败。
	ErrStorageQuery = errors.New("catalog storage query failed")
	// ErrCoverLookup 表示单个条目的封面读取失败，只记录日志，不影响请求。
	ErrCoverLookup = errors.New("cover lookup failed")
	// ErrInvalidQuery 表示请求体不是合法的查询。
	ErrInvalidQuery = errors.New("invalid search query")
)
