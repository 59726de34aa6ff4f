package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders order notifications from templates.
type Renderer struct {
	templates map[MessageType]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":       titleCase,
		"humanize":    humanize,
		"money":       formatMoney,
		"formatTime":  formatTime,
		"statusEmoji": statusEmoji,
		"escapeHTML":  html.EscapeString,
		"orderRef":    orderRef,
	}

	r := &Renderer{
		templates: make(map[MessageType]*template.Template),
	}

	for _, msg := range []MessageType{MessageTypeOrderCreated, MessageTypeOrderUpdated} {
		filename := fmt.Sprintf("templates/telegram_%s.tmpl", msg)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(msg)).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", msg, err)
		}

		r.templates[msg] = tmpl
	}

	return r, nil
}

// Render renders an order payload. Returns subject and body.
func (r *Renderer) Render(payload OrderPayload) (subject, body string, err error) {
	msg := payload.MessageType()
	tmpl, ok := r.templates[msg]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", msg)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", msg, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

func renderSubject(payload OrderPayload) string {
	if payload.IsUpdate {
		return fmt.Sprintf("[Order updated] %s: %s", orderRef(payload), payload.Status)
	}
	return fmt.Sprintf("[New order] %s", orderRef(payload))
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func humanize(s string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

func orderRef(p OrderPayload) string {
	if p.OrderNumber != "" {
		return "#" + html.EscapeString(p.OrderNumber)
	}
	return "#" + html.EscapeString(p.OrderID)
}

func formatMoney(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, html.EscapeString(strings.ToUpper(currency)))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case "pending":
		return "⏳"
	case "processing":
		return "⚙️"
	case "on-hold":
		return "⏸"
	case "completed":
		return "✅"
	case "cancelled":
		return "❌"
	case "refunded":
		return "↩️"
	case "failed":
		return "⚠️"
	default:
		return "📋"
	}
}
