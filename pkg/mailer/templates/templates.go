package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name           string `json:"Name"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	// Company info
	CompanyName string `json:"CompanyName"`
	AppName     string `json:"AppName"`

	// URLs
	LogoURL    string `json:"LogoURL"`
	SupportURL string `json:"SupportURL"`
	ActionURL  string `json:"ActionURL"`

	// The other side of the friend request
	FriendUsername string `json:"FriendUsername"`
	FriendFullName string `json:"FriendFullName"`

	Time   string    `json:"Time"`
	TimeAt time.Time `json:"TimeAt"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

// ---- FuncMaps ----

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"default":    defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// ---- Template names ----

const (
	FriendRequestSent     = "friend_request_sent"
	FriendRequestAccepted = "friend_request_accepted"
)

// set is one parsed template family: <name>.subject/.text/.html.tmpl.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var sets = mustParse(FriendRequestSent, FriendRequestAccepted)

func mustParse(names ...string) map[string]set {
	out := make(map[string]set, len(names))
	for _, name := range names {
		out[name] = set{
			subject: texttpl.Must(texttpl.New(name + ".subject.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".subject.tmpl")),
			text:    texttpl.Must(texttpl.New(name + ".text.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".text.tmpl")),
			html:    htmpl.Must(htmpl.New(name + ".html.tmpl").Funcs(htmlFuncMap).ParseFS(FS, name+".html.tmpl")),
		}
	}
	return out
}

// Known reports whether name has a template family.
func Known(name string) bool {
	_, ok := sets[name]
	return ok
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(name, part string, tpl executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %s.%s: %w", name, part, err)
	}
	return buf.String(), nil
}

// Render renders subject, text and html for name. The subject is trimmed.
func Render(name string, data any) (subject string, text string, html string, err error) {
	s, ok := sets[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = execute(name, "subject", s.subject, data); err != nil {
		return "", "", "", err
	}
	if text, err = execute(name, "text", s.text, data); err != nil {
		return "", "", "", err
	}
	if html, err = execute(name, "html", s.html, data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), text, html, nil
}

// RenderHTML renders only the html body of name.
func RenderHTML(name string, data any) (string, error) {
	s, ok := sets[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return execute(name, "html", s.html, data)
}
