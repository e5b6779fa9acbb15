package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractJSON 从模型输出中取出 JSON 对象，兼容 ```json 代码块
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no json object in output", ErrResponseInvalid)
	}
	return s[start : end+1], nil
}

// DecodeValidated 提取、按 schema 校验并解码到 dest
func DecodeValidated(text, schema string, dest interface{}) error {
	doc, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, item := range result.Errors() {
			reasons = append(reasons, item.String())
		}
		return fmt.Errorf("%w: %s", ErrResponseInvalid, strings.Join(reasons, "; "))
	}
	if err := json.Unmarshal([]byte(doc), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}
