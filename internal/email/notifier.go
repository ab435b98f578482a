package email

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/passbridge/internal/directory"
)

// CodeNotifier adapta Sender + Templates al contrato de entrega del step-up.
type CodeNotifier struct {
	Sender  Sender
	Tmpl    *Templates
	Service string // nombre visible en el mail (ej: "passbridge")
}

func (n *CodeNotifier) Deliver(ctx context.Context, p directory.Principal, code string, ttl time.Duration) error {
	if p.Email == "" {
		return fmt.Errorf("email: principal %s sin destino", p.ID)
	}
	name := p.DisplayName
	if name == "" {
		name = p.ID
	}
	htmlBody, textBody, err := n.Tmpl.RenderCode(CodeVars{
		DisplayName: name,
		Code:        code,
		TTL:         ttl.String(),
		Service:     n.Service,
	})
	if err != nil {
		return fmt.Errorf("email: render: %w", err)
	}
	subject := fmt.Sprintf("%s: tu código de verificación", n.Service)
	return n.Sender.Send(p.Email, subject, htmlBody, textBody)
}
