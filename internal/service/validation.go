package service

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// NormalizeEmail 去空格、转小写并校验格式
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidField("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidField("email", "is not a valid email address")
	}
	return email, nil
}

// NormalizePhone 去除空格与分隔符，要求可选 + 前缀加 7-15 位数字
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", invalidField("phone", "is required")
	}
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", invalidField("phone", "contains invalid characters")
		}
	}
	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", invalidField("phone", "must contain 7 to 15 digits")
	}
	return normalized, nil
}

// ValidSAIDNumber 校验南非身份证号：13 位数字、合法出生日期、公民标识 0/1 与 Luhn 校验位
func ValidSAIDNumber(id string) bool {
	if len(id) != 13 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	if _, err := time.Parse("060102", id[:6]); err != nil {
		return false
	}
	if id[10] != '0' && id[10] != '1' {
		return false
	}
	return luhnValid(id)
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func requireLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 && min > 0 {
		return invalidField(field, "is required")
	}
	if n < min {
		return invalidField(field, "must be at least %d characters", min)
	}
	if max > 0 && n > max {
		return invalidField(field, "must be at most %d characters", max)
	}
	return nil
}

// NormalizePagination 统一分页参数，默认 20，最大 maxSize
func NormalizePagination(page, pageSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}
