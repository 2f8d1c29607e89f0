/**
 * 模型:Fingerprint 主机指纹模型
 * @author: sun977
 * @date: 2025.07.14
 * @description: 主机端口指纹记录，采集端每次上报追加新行(只增不改)
 * @func: 提供全文检索投影列的构建
 */
package inventory

import (
	"strings"
	"time"
)

// Fingerprint 主机指纹模型
// 同一 ip:port 允许多行，最新行以自增ID最大者为准
type Fingerprint struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement;comment:指纹ID"`
	IP        string    `json:"ip" gorm:"column:ip;size:45;not null;index;comment:主机IP"`
	Port      int       `json:"port" gorm:"column:port;not null;index;comment:端口号"`
	Service   string    `json:"service" gorm:"column:service;size:128;comment:服务名"`
	OS        string    `json:"os" gorm:"column:os;size:255;comment:操作系统"`
	Info      string    `json:"info" gorm:"column:info;type:text;comment:附加信息"`
	Product   string    `json:"product" gorm:"column:product;size:255;index;comment:产品名"`
	Hostname  string    `json:"hostname" gorm:"column:hostname;size:255;comment:主机名"`
	Device    string    `json:"device" gorm:"column:device;size:255;comment:设备类型"`
	Version   string    `json:"version" gorm:"column:version;size:128;comment:产品版本"`
	CPEs      StringSlice `json:"cpes" gorm:"column:cpes;type:json;comment:CPE列表"`
	Certificate JSONMap `json:"certificate" gorm:"column:certificate;type:json;comment:TLS证书信息"`
	Banner    string    `json:"banner" gorm:"column:banner;type:text;comment:服务banner"`
	Raw       string    `json:"raw" gorm:"column:raw;type:longtext;comment:原始上报记录"`
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;autoCreateTime;index;comment:入库时间"`

	// SearchIndex 全文检索投影列，入库时由可检索字段拼接生成
	SearchIndex string `json:"-" gorm:"column:search_index;type:longtext;index:idx_fingerprint_search,class:FULLTEXT,option:WITH PARSER ngram;comment:全文检索投影"`
}

// TableName 指定表名
func (Fingerprint) TableName() string {
	return "fingerprints"
}

// BuildSearchIndex 构建全文检索投影
// 拼接顺序固定，空字段自然留空不影响检索
func (f *Fingerprint) BuildSearchIndex() {
	parts := []string{
		f.OS,
		f.Info,
		f.Service,
		f.Product,
		f.Hostname,
		f.Device,
		f.Version,
		f.Banner,
	}
	f.SearchIndex = strings.Join(parts, " ")
}
