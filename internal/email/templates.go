package email

import (
	"bytes"
	"html/template"
	texttpl "text/template"
)

// Templates del mail de código de verificación. Embebidos para que el binario
// no dependa de un directorio de templates; suficientes para un mail de
// 6 dígitos con TTL.
type Templates struct {
	CodeHTML *template.Template
	CodeTXT  *texttpl.Template
}

type CodeVars struct {
	DisplayName string
	Code        string
	TTL         string
	Service     string
}

const codeHTMLSrc = `<!doctype html>
<html>
  <body style="font-family: sans-serif; color: #222;">
    <p>Hola {{.DisplayName}},</p>
    <p>Tu código de verificación para <b>{{.Service}}</b> es:</p>
    <p style="font-size: 2em; letter-spacing: 0.3em;"><b>{{.Code}}</b></p>
    <p>Vence en {{.TTL}}. Si no intentaste ingresar, ignorá este mail.</p>
  </body>
</html>`

const codeTXTSrc = `Hola {{.DisplayName}},

Tu código de verificación para {{.Service}} es: {{.Code}}

Vence en {{.TTL}}. Si no intentaste ingresar, ignorá este mail.
`

// LoadTemplates parsea los templates embebidos.
func LoadTemplates() (*Templates, error) {
	h, err := template.New("code_html").Parse(codeHTMLSrc)
	if err != nil {
		return nil, err
	}
	t, err := texttpl.New("code_txt").Parse(codeTXTSrc)
	if err != nil {
		return nil, err
	}
	return &Templates{CodeHTML: h, CodeTXT: t}, nil
}

// RenderCode renderiza ambos cuerpos (html, txt) para el mail de código.
func (t *Templates) RenderCode(v CodeVars) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := t.CodeHTML.Execute(&hb, v); err != nil {
		return "", "", err
	}
	if err := t.CodeTXT.Execute(&tb, v); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
