package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	iofs "io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/reelbingo/promo/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates       tmplCache
	templatesMu     sync.RWMutex
	frontendBaseURL string
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		ReplyTo *mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	return ContextData{
		FrontendBaseURL: frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate() (*tmplCacheEntry, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	entry, ok := templates[m.TemplateName]
	return entry, ok
}

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	entry, ok := m.getTemplate()
	if !ok {
		return fmt.Errorf("email template %q not found", m.TemplateName)
	}

	data := m.getContextData()
	if entry.text != nil && m.BodyStr == "" {
		var buff bytes.Buffer
		if err := entry.text.ExecuteTemplate(&buff, "base", data); err != nil {
			return err
		}
		m.TextContent = strings.TrimSpace(buff.String())
	}
	if entry.html != nil {
		var buff bytes.Buffer
		if err := entry.html.ExecuteTemplate(&buff, "base", data); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses the embedded email templates. Each template is rendered inside
// the matching `_base` layout. It must be called once at start up before any email is sent.
func ParseEmailTemplates(conf *Config, logger Logger) {
	parsed := make(tmplCache)

	fps, err := iofs.Glob(appfs.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := parsed[name]
		if !ok {
			entry = new(tmplCacheEntry)
			parsed[name] = entry
		}

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.txt"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.gohtml"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
				continue
			}
			if conf.Debug || conf.TestMode {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		}
	}

	templatesMu.Lock()
	templates = parsed
	frontendBaseURL = conf.FrontendBaseURL
	templatesMu.Unlock()
}
