/**
 * CA签发适配器
 * @author: sun977
 * @date: 2025.08.29
 * @description: 本地CA证书签发，为采集端生成客户端身份证书
 * @func: NewAuthority 加载CA材料；Issue 为指定UID签发证书与私钥
 */
package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"

	"neohq/internal/config"
	agentModel "neohq/internal/model/agent"
)

const keyBits = 2048

// Authority 本地签发机构
// 持有CA证书与私钥，所有签发操作串行安全(无内部状态变更)
type Authority struct {
	caCert        *x509.Certificate
	caKey         *rsa.PrivateKey
	validityYears int
}

// IssuedPair 一次签发产出的证书与私钥，均为PEM文本
type IssuedPair struct {
	CertPEM string
	KeyPEM  string
}

// NewAuthority 从配置加载CA证书和私钥
// 私钥支持历史遗留的口令加密PEM
func NewAuthority(cfg *config.CAConfig) (*Authority, error) {
	certData, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("读取CA证书失败: %w", err)
	}
	certBlock, _ := pem.Decode(certData)
	if certBlock == nil {
		return nil, fmt.Errorf("CA证书不是有效的PEM")
	}
	caCert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("解析CA证书失败: %w", err)
	}

	keyData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("读取CA私钥失败: %w", err)
	}
	keyBlock, _ := pem.Decode(keyData)
	if keyBlock == nil {
		return nil, fmt.Errorf("CA私钥不是有效的PEM")
	}

	keyBytes := keyBlock.Bytes
	if x509.IsEncryptedPEMBlock(keyBlock) { //nolint:staticcheck // 兼容历史加密私钥
		keyBytes, err = x509.DecryptPEMBlock(keyBlock, []byte(cfg.KeyPassphrase)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("解密CA私钥失败: %w", err)
		}
	}

	caKey, err := parsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("解析CA私钥失败: %w", err)
	}

	years := cfg.ValidityYears
	if years <= 0 {
		years = 99
	}

	return &Authority{
		caCert:        caCert,
		caKey:         caKey,
		validityYears: years,
	}, nil
}

// parsePrivateKey 依次尝试PKCS1和PKCS8格式
func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("CA私钥不是RSA类型")
	}
	return key, nil
}

// Issue 为采集端UID签发客户端证书
// CN为UID的32位十六进制形式，序列号由UID字节决定，同一UID重签序列号不变
func (a *Authority) Issue(uid uuid.UUID) (*IssuedPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("生成客户端私钥失败: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: new(big.Int).SetBytes(uid[:]),
		Subject: pkix.Name{
			CommonName: agentModel.FormatUID(uid),
		},
		NotBefore:          now,
		NotAfter:           now.AddDate(a.validityYears, 0, 0),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		ExtKeyUsage:        []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, a.caCert, &key.PublicKey, a.caKey)
	if err != nil {
		return nil, fmt.Errorf("签发证书失败: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return &IssuedPair{
		CertPEM: string(certPEM),
		KeyPEM:  string(keyPEM),
	}, nil
}
