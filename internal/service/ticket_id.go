package service

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	ticketIDLetters  = "ABCDEFGHJKMNPQRSTUVWXYZ"
	ticketIDAlphaNum = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	ticketIDRetries  = 5
)

// GenerateTicketID 生成 LLL-MMM-MMMM 格式工单号，字符集排除 0/O/1/I/L
func GenerateTicketID() (string, error) {
	var b strings.Builder
	b.Grow(12)
	groups := []struct {
		alphabet string
		n        int
	}{
		{ticketIDLetters, 3},
		{ticketIDAlphaNum, 3},
		{ticketIDAlphaNum, 4},
	}
	for i, g := range groups {
		if i > 0 {
			b.WriteByte('-')
		}
		if err := writeRandomChars(&b, g.alphabet, g.n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// ValidTicketID 校验工单号格式
func ValidTicketID(id string) bool {
	if len(id) != 12 || id[3] != '-' || id[7] != '-' {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch {
		case i == 3 || i == 7:
			continue
		case i < 3:
			if strings.IndexByte(ticketIDLetters, id[i]) < 0 {
				return false
			}
		default:
			if strings.IndexByte(ticketIDAlphaNum, id[i]) < 0 {
				return false
			}
		}
	}
	return true
}

func writeRandomChars(b *strings.Builder, alphabet string, n int) error {
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return nil
}
