package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NormalizeOwnerID 把调用者身份（UUID，带或不带连字符）转换为目录存储使用的格式：去掉连字符并转为大写。
func NormalizeOwnerID(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", ErrAuthResolution)
	}
	id, err := uuid.Parse(identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthResolution, err)
	}
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}
