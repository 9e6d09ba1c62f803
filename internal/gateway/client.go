package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SignatureHeader 回调签名头
const SignatureHeader = "X-Webhook-Signature"

// WebhookPayload 支付网关回调负载
type WebhookPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Client 模拟支付网关客户端
// 真实支付渠道由外部承接；这里负责渠道侧支付单号的发放与回调签名的生成校验。
type Client struct {
	secret []byte
}

// New 创建支付网关客户端
func New(secret string) *Client {
	return &Client{secret: []byte(secret)}
}

// NewProviderRef 生成渠道侧支付单号
func (c *Client) NewProviderRef() string {
	return uuid.NewString()
}

// Sign 计算回调体的 HMAC-SHA256 签名（十六进制）
func (c *Client) Sign(body []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验回调签名
func (c *Client) VerifySignature(body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// BuildCallback 构造带签名的回调请求体，供模拟支付流程回传 webhook
func (c *Client) BuildCallback(reference, status string) ([]byte, string, error) {
	body, err := json.Marshal(WebhookPayload{Reference: reference, Status: status})
	if err != nil {
		return nil, "", fmt.Errorf("构造回调负载失败: %w", err)
	}
	return body, c.Sign(body), nil
}
