package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPHasher 使用带密钥的 BLAKE2b 对验证码做单向摘要
type OTPHasher struct {
	key []byte
}

// NewOTPHasher 创建验证码摘要器，密钥长度超过 64 字节时截断
func NewOTPHasher(secret string) *OTPHasher {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	return &OTPHasher{key: key}
}

// Hash 计算摘要，channel 与账号 ID 参与计算以隔离不同槽位
func (h *OTPHasher) Hash(accountID uint, channel, code string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// 仅在密钥超长时出错，构造函数已截断
		panic(err)
	}
	fmt.Fprintf(mac, "%d:%s:%s", accountID, channel, code)
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal 常量时间比较
func (h *OTPHasher) Equal(storedHash string, accountID uint, channel, code string) bool {
	if storedHash == "" || code == "" {
		return false
	}
	computed := h.Hash(accountID, channel, code)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(computed)) == 1
}

// generateOTP 生成 100000-999999 之间均匀分布的 6 位验证码
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
