/**
 * 模型:Alert 敏感内容线索模型
 * @author: sun977
 * @date: 2025.07.14
 * @description: 外部源推送的安全通告线索，按URL去重
 */
package inventory

import "time"

// Alert 敏感内容线索
// URL唯一，重复上报在入库层吞掉
type Alert struct {
	ID          uint64      `json:"id" gorm:"primaryKey;autoIncrement;comment:线索ID"`
	Title       string      `json:"title" gorm:"column:title;size:256;not null;comment:通告标题"`
	Content     string      `json:"content" gorm:"column:content;type:text;comment:通告正文"`
	Source      string      `json:"source" gorm:"column:source;size:16;comment:来源标签"`
	URL         string      `json:"url" gorm:"column:url;size:767;not null;uniqueIndex;comment:通告URL"`
	Timestamp   time.Time   `json:"timestamp" gorm:"column:timestamp;not null;index;comment:通告时间"`
	Keywords    StringSlice `json:"keywords" gorm:"column:keywords;type:json;comment:命中关键词列表"`
	Highlighted bool        `json:"highlighted" gorm:"column:highlighted;default:false;comment:是否高亮"`
}

// TableName 指定表名
func (Alert) TableName() string {
	return "alerts"
}
