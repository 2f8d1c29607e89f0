/**
 * 工具类:证书DN解析
 * @author: sun977
 * @date: 2025.08.29
 * @description: 反向代理转发的证书DN串解析
 */
package utils

import "strings"

// ParseDN 解析斜杠分隔的证书DN串
// 形如 /C=CN/O=neohq/CN=abcdef，没有等号的片段直接跳过
func ParseDN(dn string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(dn, "/") {
		idx := strings.Index(part, "=")
		if idx < 0 {
			continue
		}
		result[part[:idx]] = part[idx+1:]
	}
	return result
}
