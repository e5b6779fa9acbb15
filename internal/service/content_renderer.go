package service

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ContentRenderer 将用户提交的 Markdown 渲染为清洗后的 HTML
type ContentRenderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewContentRenderer 创建渲染器：GFM 扩展 + UGC 白名单
func NewContentRenderer() *ContentRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &ContentRenderer{markdown: md, policy: policy}
}

// Render 渲染并清洗，原始 HTML 标签会被转义或剔除
func (r *ContentRenderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(r.policy.Sanitize(buf.String())), nil
}
