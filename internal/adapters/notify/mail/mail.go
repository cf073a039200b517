package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/phenrril/protoquote/internal/domain"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	NotifyTo string
}

func (c Config) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.User != "" && c.Pass != ""
}

type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notifier mails the shop every new quote request with the model attached
// so someone can open it in a slicer and confirm the price.
type Notifier struct {
	cfg    Config
	sender Sender
}

func New(cfg Config) *Notifier {
	n := &Notifier{cfg: cfg}
	if cfg.Enabled() {
		n.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	}
	return n
}

// WithSender swaps the SMTP dialer, mostly for tests.
func (n *Notifier) WithSender(s Sender) *Notifier {
	n.sender = s
	return n
}

func (n *Notifier) NotifyQuoteRequest(ctx context.Context, q *domain.QuoteRequest, file domain.Attachment) error {
	if n.sender == nil {
		log.Warn().Str("quote_id", q.ID.String()).Msg("SMTP not configured, skipping quote mail")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := n.Message(q, file)
	if err != nil {
		return err
	}
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send quote mail: %w", err)
	}
	return nil
}

// Message builds the mail without sending it.
func (n *Notifier) Message(q *domain.QuoteRequest, file domain.Attachment) (*gomail.Message, error) {
	body, err := renderBody(q)
	if err != nil {
		return nil, err
	}
	from := n.cfg.From
	if from == "" {
		from = n.cfg.User
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, "ProtoDesign System")
	m.SetHeader("To", n.cfg.NotifyTo)
	if q.Email != "" {
		m.SetHeader("Reply-To", q.Email)
	}
	m.SetHeader("Subject", fmt.Sprintf("NEW QUOTE: %s - ₹%d", q.FileName, q.Price))
	m.SetBody("text/html", body)
	if len(file.Data) > 0 {
		data := file.Data
		m.Attach(file.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m, nil
}

func renderBody(q *domain.QuoteRequest) (string, error) {
	var body bytes.Buffer
	if err := quoteTmpl.Execute(&body, q); err != nil {
		return "", fmt.Errorf("render quote mail: %w", err)
	}
	return body.String(), nil
}

var quoteTmpl = template.Must(template.New("quote").Parse(`<div style="font-family: Arial, sans-serif; border: 1px solid #ccc; padding: 20px; border-radius: 10px;">
<h2 style="color: #007bff;">New 3D Printing Request</h2>
<div style="background: #f9f9f9; padding: 15px; margin-bottom: 20px;">
<h3>Customer Details</h3>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
</div>
<div style="background: #e9f5ff; padding: 15px; margin-bottom: 20px;">
<h3>Print Configuration</h3>
<ul>
<li><strong>Material:</strong> {{.Specifications.Material}}</li>
<li><strong>Quality:</strong> {{.Specifications.Quality}}</li>
<li><strong>Infill:</strong> {{.Specifications.Infill}}</li>
<li><strong>Scale:</strong> {{.Specifications.Scale}}</li>
</ul>
</div>
<div style="background: #fff8e1; padding: 15px; margin-bottom: 20px;">
<h3>Model Stats &amp; Estimate</h3>
<ul>
<li><strong>Volume:</strong> {{printf "%.2f" .VolumeCm3}} cm³</li>
<li><strong>Dimensions:</strong> {{printf "%.2f" .DimXCm}} x {{printf "%.2f" .DimYCm}} x {{printf "%.2f" .DimZCm}} cm</li>
<li><strong>Print size:</strong> {{printf "%.2f" .PrintXCm}} x {{printf "%.2f" .PrintYCm}} x {{printf "%.2f" .PrintZCm}} cm</li>
<li><strong>Est. Time:</strong> {{.TimeLabel}}</li>
<li><strong>Est. Price:</strong> ₹{{.Price}}</li>
</ul>
</div>
<p><strong>Customer Notes:</strong><br/>{{if .Notes}}{{.Notes}}{{else}}None{{end}}</p>
<hr/>
<p style="font-size: 12px; color: #666;">Estimated values only. The 3D model file is attached; open it in your slicer to verify the price.</p>
</div>`))
