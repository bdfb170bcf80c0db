// Package mailer 通过 SendGrid 发送商品询盘邮件
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"student-market/internal/config"
)

var enquiriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "student_market",
		Name:      "enquiry_emails_total",
		Help:      "Total enquiry emails by outcome",
	},
	[]string{"outcome"},
)

// Sender 邮件发送接口，方便测试替换
type Sender interface {
	SendEnquiry(ctx context.Context, sellerEmail, productTitle, buyerEmail, message string) error
}

// Client SendGrid 客户端封装
// APIKey 为空时降级为只记日志（本地开发无需真实投递）
type Client struct {
	sg   *sendgrid.Client
	from *mail.Email
}

// NewClient 创建邮件客户端
func NewClient(cfg config.MailConfig) *Client {
	c := &Client{from: mail.NewEmail(cfg.FromName, cfg.FromAddress)}
	if cfg.APIKey != "" {
		c.sg = sendgrid.NewSendClient(cfg.APIKey)
	}
	return c
}

// SendEnquiry 给卖家发送询盘邮件
// 主题为商品标题大写，正文由 enquiryHTML 渲染
func (c *Client) SendEnquiry(ctx context.Context, sellerEmail, productTitle, buyerEmail, message string) error {
	subject := strings.ToUpper(productTitle)
	body, err := renderEnquiry(productTitle, buyerEmail, message)
	if err != nil {
		return fmt.Errorf("render enquiry: %w", err)
	}

	if c.sg == nil {
		log.Printf("[mailer] SENDGRID_API_KEY not set, skipping delivery to %s (subject %q)", sellerEmail, subject)
		enquiriesTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	msg := mail.NewSingleEmail(c.from, subject, mail.NewEmail("", sellerEmail), message, body)
	resp, err := c.sg.SendWithContext(ctx, msg)
	if err != nil {
		enquiriesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		enquiriesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}

	log.Printf("[mailer] Enquiry sent to %s for %q", sellerEmail, productTitle)
	enquiriesTotal.WithLabelValues("sent").Inc()
	return nil
}

// enquiryTmpl 询盘邮件正文模板
var enquiryTmpl = template.Must(template.New("enquiry").Parse(`
    <div style="background-color: #f7d4e8; padding: 10px;">
      <p style="color: #ff39b4; font-weight: bold;">Good news!</p>
      <p>Hello,</p>
      <p>
        You have received an enquiry for {{.Title}} from <a href="mailto:{{.BuyerEmail}}">{{.BuyerEmail}}</a> with
        the following message:
      </p>
      <p style="background-color: #111; color: #fff; padding: 10px; max-width: 400px;">{{.Message}}</p>
      <p>Please contact the buyer if the product is still available.</p>
      <p>Thank you,</p>
      <p>Student Fast Find</p>
    </div>
`))

type enquiryData struct {
	Title      string
	BuyerEmail string
	Message    string
}

// renderEnquiry 渲染询盘邮件正文
func renderEnquiry(title, buyerEmail, message string) (string, error) {
	var b strings.Builder
	err := enquiryTmpl.Execute(&b, enquiryData{Title: title, BuyerEmail: buyerEmail, Message: message})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
