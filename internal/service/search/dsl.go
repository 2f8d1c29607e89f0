/**
 * 检索服务层:查询DSL解析
 * @author: sun977
 * @date: 2025.08.29
 * @description: 检索框查询串的分词与解析
 * @func: ParseQuery 把查询串解析为字段过滤和自由词两部分
 */
package search

import (
	"errors"
	"strings"
)

// ErrUnbalancedQuote 查询串引号不闭合
var ErrUnbalancedQuote = errors.New("unbalanced quote in query")

// ParsedQuery 解析后的查询
type ParsedQuery struct {
	Fields map[string]string // 字段过滤，同名后写覆盖先写
	Terms  []string          // 自由词，全文检索用
}

// tokenize 按shell风格分词
// 支持双引号、单引号和引号外的反斜杠转义，引号可以出现在token中间
func tokenize(query string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' || c == '"':
			quote := c
			inToken = true
			closed := false
			for i++; i < len(runes); i++ {
				if runes[i] == quote {
					closed = true
					break
				}
				if quote == '"' && runes[i] == '\\' && i+1 < len(runes) {
					i++
				}
				current.WriteRune(runes[i])
			}
			if !closed {
				return nil, ErrUnbalancedQuote
			}
		case c == '\\' && i+1 < len(runes):
			inToken = true
			i++
			current.WriteRune(runes[i])
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			inToken = true
			current.WriteRune(c)
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// ParseQuery 解析查询串
// 形如 key:value 的token是字段过滤，以冒号结尾的token把字段名挂起等下一个token做值，
// 其余token是自由词。挂起的字段名在任何非挂起token之后失效，串尾挂起的字段绑定空值
func ParseQuery(query string) (*ParsedQuery, error) {
	tokens, err := tokenize(query)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedQuery{Fields: make(map[string]string)}
	pending := ""
	for _, token := range tokens {
		if strings.HasSuffix(token, ":") {
			pending = strings.TrimSuffix(token, ":")
			continue
		}

		if idx := strings.Index(token, ":"); idx >= 0 {
			parsed.Fields[token[:idx]] = token[idx+1:]
		} else if pending != "" {
			parsed.Fields[pending] = token
		} else {
			parsed.Terms = append(parsed.Terms, token)
		}
		pending = ""
	}
	if pending != "" {
		parsed.Fields[pending] = ""
	}

	return parsed, nil
}
