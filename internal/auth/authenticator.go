// Package auth 实现管理员身份校验。站点只有一个管理员，凭据来自启动配置。
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"personal-site-go/internal/config"
	"personal-site-go/pkg/hash"
	"personal-site-go/pkg/token"
)

// CookieName 是保存管理员凭据的 cookie 名称。
const CookieName = "admin_token"

// ErrInvalidCredentials 表示登录失败，不区分具体原因。
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminAuthenticator 定义了管理员登录与校验的接口，
// 消息服务只依赖该接口，可以替换为更强的实现。
type AdminAuthenticator interface {
	// Login 校验密码，成功时返回应写入 cookie 的 token。
	Login(password string) (string, error)
	// IsAdmin 判断 cookie 中的 token 是否代表管理员。
	IsAdmin(token string) bool
	// CookieMaxAge 返回 cookie 的有效期（秒），0 表示会话 cookie。
	CookieMaxAge() int
}

// passwordChecker 比对提交的密码与配置的明文密码或 bcrypt 哈希。
type passwordChecker struct {
	password     string
	passwordHash string
}

func (p passwordChecker) check(password string) bool {
	if password == "" {
		return false
	}
	if p.passwordHash != "" {
		return hash.CheckPasswordHash(password, p.passwordHash)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(p.password)) == 1
}

// TokenAuthenticator 是共享密钥方案：登录成功后下发固定 token，校验时只做相等比较。
// 没有过期时间，也不区分会话。
type TokenAuthenticator struct {
	passwords passwordChecker
	token     string
}

// NewTokenAuthenticator 创建一个新的 TokenAuthenticator。
func NewTokenAuthenticator(password, passwordHash, adminToken string) *TokenAuthenticator {
	return &TokenAuthenticator{
		passwords: passwordChecker{password: password, passwordHash: passwordHash},
		token:     adminToken,
	}
}

func (a *TokenAuthenticator) Login(password string) (string, error) {
	if !a.passwords.check(password) {
		return "", ErrInvalidCredentials
	}
	return a.token, nil
}

func (a *TokenAuthenticator) IsAdmin(tok string) bool {
	if tok == "" || a.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(a.token)) == 1
}

func (a *TokenAuthenticator) CookieMaxAge() int { return 0 }

// JWTAuthenticator 在登录时签发带过期时间的 JWT。
type JWTAuthenticator struct {
	passwords passwordChecker
	jwt       *token.JWTManager
}

// NewJWTAuthenticator 创建一个新的 JWTAuthenticator。
func NewJWTAuthenticator(password, passwordHash string, jwtManager *token.JWTManager) *JWTAuthenticator {
	return &JWTAuthenticator{
		passwords: passwordChecker{password: password, passwordHash: passwordHash},
		jwt:       jwtManager,
	}
}

func (a *JWTAuthenticator) Login(password string) (string, error) {
	if !a.passwords.check(password) {
		return "", ErrInvalidCredentials
	}
	return a.jwt.GenerateToken()
}

func (a *JWTAuthenticator) IsAdmin(tok string) bool {
	if tok == "" {
		return false
	}
	_, err := a.jwt.VerifyToken(tok)
	return err == nil
}

func (a *JWTAuthenticator) CookieMaxAge() int {
	return int(a.jwt.TTL() / time.Second)
}

// New 根据配置选择实现。
func New(cfg config.AdminConfig) (AdminAuthenticator, error) {
	switch cfg.AuthMode {
	case "", "token":
		return NewTokenAuthenticator(cfg.Password, cfg.PasswordHash, cfg.Token), nil
	case "jwt":
		return NewJWTAuthenticator(cfg.Password, cfg.PasswordHash, token.NewJWTManager(cfg.JWTSecret, cfg.TokenExpireHours)), nil
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", cfg.AuthMode)
	}
}
