package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// ContentKind 알림 메시지 종류
type ContentKind string

const (
	ContentThankYou       ContentKind = "thank_you"
	ContentCoupon         ContentKind = "coupon"
	ContentGoogleRedirect ContentKind = "google_redirect"
	ContentFeedback       ContentKind = "feedback" // 가맹점 알림
	ContentLotteryWin     ContentKind = "lottery_win"
)

// ContentContext 메시지 템플릿 데이터
type ContentContext struct {
	CompanyName string
	Rating      int
	Comment     string
	Issues      []string
	CouponCode  string
	ExpiresOn   string
	ReviewURL   string
	Prize       string
}

// Content 생성된 메시지
type Content struct {
	Subject string
	HTML    string
	Text    string
}

// ContentGenerator 알림 메시지 생성기
type ContentGenerator interface {
	Generate(kind ContentKind, data ContentContext) (*Content, error)
}

type messageTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type templateContentGenerator struct {
	templates map[ContentKind]messageTemplate
}

var templateFuncs = map[string]interface{}{
	"join":  strings.Join,
	"stars": stars,
}

var messageSources = map[ContentKind]struct{ subject, html, text string }{
	ContentThankYou: {
		subject: `{{.CompanyName}} 방문 후기를 남겨주셔서 감사합니다`,
		html:    `<p>{{.CompanyName}}에 소중한 의견을 남겨주셔서 감사합니다.</p><p>남겨주신 평가: {{stars .Rating}}</p>`,
		text:    `[{{.CompanyName}}] 소중한 의견 감사합니다. 평가: {{stars .Rating}}`,
	},
	ContentCoupon: {
		subject: `[{{.CompanyName}}] 리뷰 감사 쿠폰이 도착했습니다`,
		html:    `<p>{{.CompanyName}} 리뷰 감사 쿠폰입니다.</p><p>쿠폰 코드: <strong>{{.CouponCode}}</strong></p>{{if .ExpiresOn}}<p>유효기간: {{.ExpiresOn}}까지</p>{{end}}`,
		text:    `[{{.CompanyName}}] 리뷰 감사 쿠폰 코드: {{.CouponCode}}{{if .ExpiresOn}} ({{.ExpiresOn}}까지){{end}}`,
	},
	ContentGoogleRedirect: {
		subject: `{{.CompanyName}} 구글 리뷰도 부탁드려요`,
		html:    `<p>{{.CompanyName}}을(를) 높게 평가해주셔서 감사합니다.</p><p><a href="{{.ReviewURL}}">구글 리뷰 남기기</a></p>`,
		text:    `[{{.CompanyName}}] 구글 리뷰 남기기: {{.ReviewURL}}`,
	},
	ContentFeedback: {
		subject: `[{{.CompanyName}}] 새 고객 피드백 ({{.Rating}}점)`,
		html:    `<p>평점: {{stars .Rating}} ({{.Rating}}점)</p>{{if .Issues}}<p>불편 사항: {{join .Issues ", "}}</p>{{end}}{{if .Comment}}<p>코멘트: {{.Comment}}</p>{{end}}`,
		text:    `[{{.CompanyName}}] 새 피드백 {{.Rating}}점{{if .Issues}} / {{join .Issues ", "}}{{end}}`,
	},
	ContentLotteryWin: {
		subject: `[{{.CompanyName}}] 리뷰 이벤트에 당첨되셨습니다`,
		html:    `<p>축하합니다! {{.CompanyName}} 리뷰 이벤트에 당첨되셨습니다.</p>{{if .Prize}}<p>경품: {{.Prize}}</p>{{end}}`,
		text:    `[{{.CompanyName}}] 리뷰 이벤트 당첨을 축하합니다!{{if .Prize}} 경품: {{.Prize}}{{end}}`,
	},
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// NewContentGenerator parses the built-in message templates.
func NewContentGenerator() (ContentGenerator, error) {
	g := &templateContentGenerator{templates: make(map[ContentKind]messageTemplate, len(messageSources))}
	for kind, src := range messageSources {
		subject, err := texttemplate.New(string(kind) + "_subject").Funcs(templateFuncs).Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, err)
		}
		html, err := htmltemplate.New(string(kind) + "_html").Funcs(templateFuncs).Parse(src.html)
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", kind, err)
		}
		text, err := texttemplate.New(string(kind) + "_text").Funcs(templateFuncs).Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", kind, err)
		}
		g.templates[kind] = messageTemplate{subject: subject, html: html, text: text}
	}
	return g, nil
}

func (g *templateContentGenerator) Generate(kind ContentKind, data ContentContext) (*Content, error) {
	tmpl, ok := g.templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	var subject, html, text bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, err
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, err
	}

	return &Content{
		Subject: subject.String(),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
