/**
 * 模型:Website 站点模型
 * @author: sun977
 * @date: 2025.07.14
 * @description: Web站点抓取记录及其识别出的应用组件，记录只增不改
 */
package inventory

import (
	"strings"
	"time"
)

// Website 站点抓取记录
// 同一 url 允许多行，最新行以自增ID最大者为准
type Website struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement;comment:站点记录ID"`
	Domain    string    `json:"domain" gorm:"column:domain;size:255;not null;index;comment:站点域名"`
	IP        string    `json:"ip" gorm:"column:ip;size:45;index;comment:解析IP"`
	Port      int       `json:"port" gorm:"column:port;comment:端口号"`
	URL       string    `json:"url" gorm:"column:url;size:2048;not null;comment:页面URL"`
	Headers   JSONMap   `json:"headers" gorm:"column:headers;type:json;comment:响应头"`
	HTML      string    `json:"html" gorm:"column:html;type:longtext;comment:页面HTML"`
	Title     string    `json:"title" gorm:"column:title;size:512;comment:页面标题"`
	RawHeader string    `json:"rawHeader" gorm:"column:raw_header;type:text;comment:原始响应头文本"`
	Detail    string    `json:"detail" gorm:"column:detail;type:json;comment:组件识别原始结果"`
	AppJoint  string    `json:"app_joint" gorm:"column:app_joint;size:1024;comment:应用名拼接串"`
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;autoCreateTime;index;comment:入库时间"`

	// SearchIndex 全文检索投影列
	SearchIndex string `json:"-" gorm:"column:search_index;type:longtext;index:idx_website_search,class:FULLTEXT,option:WITH PARSER ngram;comment:全文检索投影"`

	// Apps 识别出的应用组件，随站点记录一并写入
	Apps []App `json:"apps" gorm:"foreignKey:WebsiteID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Website) TableName() string {
	return "websites"
}

// AppNames 返回应用名列表
func (w *Website) AppNames() []string {
	names := make([]string, 0, len(w.Apps))
	for _, app := range w.Apps {
		names = append(names, app.Name)
	}
	return names
}

// BuildSearchIndex 构建全文检索投影
// rawHeaders 为序列化后的响应头文本，由调用方传入
func (w *Website) BuildSearchIndex(rawHeaders string) {
	parts := []string{
		w.Domain,
		w.URL,
		rawHeaders,
		w.AppJoint,
		w.HTML,
		w.Title,
	}
	w.SearchIndex = strings.Join(parts, " ")
}

// App 站点应用组件模型
// 一个站点记录对应多个识别出的应用及版本
type App struct {
	ID        uint64      `json:"id" gorm:"primaryKey;autoIncrement;comment:组件ID"`
	WebsiteID uint64      `json:"website_id" gorm:"column:website_id;not null;index;comment:所属站点记录ID"`
	Name      string      `json:"app" gorm:"column:app;size:255;not null;index;comment:应用名"`
	Ver       string      `json:"ver" gorm:"column:ver;size:128;comment:识别版本"`
	Versions  StringSlice `json:"versions" gorm:"column:versions;type:json;comment:候选版本列表"`
}

// TableName 指定表名
func (App) TableName() string {
	return "apps"
}
