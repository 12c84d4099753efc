package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// KeyPrefix 软件包统一存放的目录
const KeyPrefix = "software/"

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeLabel 版本号中非 [a-zA-Z0-9.-] 的字符替换为 _
func SanitizeLabel(label string) string {
	return unsafeLabelChars.ReplaceAllString(label, "_")
}

// ObjectKey 生成对象 Key: software/<版本号>-<毫秒时间戳>-<原文件名>
// 时间戳保证同一版本号重复上传不会覆盖
func ObjectKey(label, fileName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = unsafeLabelChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%s%s-%d-%s", KeyPrefix, SanitizeLabel(label), now.UnixMilli(), base)
}

// Extension 从地址或 Key 中取扩展名 (忽略 query)
func Extension(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return strings.ToLower(path.Ext(location))
}

func objectName(key string) string {
	return strings.TrimPrefix(strings.ReplaceAll(key, "\\", "/"), "/")
}
