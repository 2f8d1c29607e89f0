/**
 * 模型:资产清单公共类型
 * @description: JSON列的自定义类型，兼容MySQL JSON字段的读写
 */
package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice 自定义字符串切片类型，存储为MySQL JSON数组
// 用于 Fingerprint.CPEs、App.Versions、Alert.Keywords 等字段
type StringSlice []string

// Scan 实现sql.Scanner接口，用于从数据库读取数据
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("无法将 %T 转换为 StringSlice", value)
	}

	if len(data) == 0 {
		*s = StringSlice{}
		return nil
	}

	var slice []string
	if err := json.Unmarshal(data, &slice); err != nil {
		return fmt.Errorf("StringSlice.Scan 失败: %w", err)
	}

	*s = StringSlice(slice)
	return nil
}

// Value 实现driver.Valuer接口，用于向数据库写入数据
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("StringSlice.Value 失败: %w", err)
	}
	return string(data), nil
}

// JSONMap 自定义映射类型，存储为MySQL JSON对象
// 用于 Fingerprint.Certificate、Website.Headers 等结构化抓取内容
type JSONMap map[string]interface{}

// Scan 实现sql.Scanner接口
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("无法将 %T 转换为 JSONMap", value)
	}

	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("JSONMap.Scan 失败: %w", err)
	}

	*m = JSONMap(result)
	return nil
}

// Value 实现driver.Valuer接口
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("JSONMap.Value 失败: %w", err)
	}
	return string(data), nil
}
