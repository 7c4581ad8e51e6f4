// Package recaptcha 提供了一个调用 reCAPTCHA siteverify 接口的客户端。
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"personal-site-go/internal/config"
	"personal-site-go/pkg/log"
)

// Verifier 校验前端提交的 reCAPTCHA 响应。
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) (bool, error)
}

// Client 是 reCAPTCHA 的 HTTP 客户端。
type Client struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewClient 创建一个新的 reCAPTCHA 客户端实例。
func NewClient(cfg config.RecaptchaConfig) *Client {
	return &Client{
		secret:    cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify 调用 siteverify。未配置 secret 时跳过校验（仅用于本地开发）。
func (c *Client) Verify(ctx context.Context, response, remoteIP string) (bool, error) {
	if c.secret == "" {
		log.Warnf("[Recaptcha] secret 未配置，跳过校验")
		return true, nil
	}
	if response == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("调用 reCAPTCHA 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("reCAPTCHA 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("解析 reCAPTCHA 响应失败: %w", err)
	}
	if !result.Success {
		log.Infof("[Recaptcha] 校验未通过: %v", result.ErrorCodes)
	}
	return result.Success, nil
}
