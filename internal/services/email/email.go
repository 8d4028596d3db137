// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers one-time codes by SMTP. Delivery is best-effort:
// callers log failures and carry on, so a returned "code sent" message is
// optimistic rather than a delivery guarantee.
package email

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/mindmirror/internal/config"
	"codeberg.org/oliverandrich/mindmirror/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends transactional mail via SMTP using go-mail.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &Service{cfg: cfg}, nil
}

// SendOTP mails a registration/activation code.
func (s *Service) SendOTP(ctx context.Context, toEmail, code string, ttl time.Duration, resend bool) error {
	subjectKey := "otp_mail_subject"
	if resend {
		subjectKey = "otp_resend_mail_subject"
	}
	subject := i18n.T(ctx, subjectKey)
	body := i18n.TData(ctx, "otp_mail_body", map[string]any{
		"Code": code,
		"TTL":  int(ttl.Seconds()),
	})
	return s.send(toEmail, subject, body)
}

// SendPasswordResetOTP mails a password-reset code.
func (s *Service) SendPasswordResetOTP(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	subject := i18n.T(ctx, "reset_mail_subject")
	body := i18n.TData(ctx, "reset_mail_body", map[string]any{
		"Code": code,
		"TTL":  int(ttl.Seconds()),
	})
	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
