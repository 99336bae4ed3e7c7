package bootstrap

import (
	"log/slog"

	"hostelhunt/internal/app/notifications"
	"hostelhunt/internal/app/policies"
	"hostelhunt/internal/infra/config"
	"hostelhunt/internal/infra/email"
	"hostelhunt/internal/infra/payments/mpesa"
	"hostelhunt/internal/infra/storage/s3"
)

// Mailer returns the SendGrid transport, or a logging stand-in without an API key.
func Mailer(cfg config.Config, logger *slog.Logger) policies.Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set; emails are logged only")
		return email.LogMailer{Logger: logger}
	}
	sg, err := email.NewSendGrid(email.SendGridConfig{
		APIKey:   cfg.SendGridAPIKey,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}, logger)
	if err != nil {
		logger.Warn("sendgrid disabled", "error", err)
		return email.LogMailer{Logger: logger}
	}
	return sg
}

func Notifier(cfg config.Config, logger *slog.Logger) *notifications.Notifier {
	return &notifications.Notifier{
		Mailer:  Mailer(cfg, logger),
		Logger:  logger,
		BaseURL: cfg.PublicBaseURL,
		Timeout: cfg.EmailTimeout,
	}
}

// Gateway returns nil when M-Pesa credentials are missing; payment commands
// then fail with policies.ErrGatewayNotConfigured.
func Gateway(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	if !cfg.Mpesa.Enabled() {
		logger.Warn("mpesa credentials not set; payments disabled")
		return nil
	}
	client, err := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL(),
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		PassKey:        cfg.Mpesa.PassKey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	}, logger)
	if err != nil {
		logger.Warn("mpesa disabled", "error", err)
		return nil
	}
	logger.Info("mpesa gateway ready", "env", cfg.Mpesa.Env)
	return client
}

// Uploader returns nil when object storage cannot be configured; image uploads
// are then rejected. Outside dev the bucket joins the readiness checks.
func (i *Infra) Uploader(cfg config.Config, logger *slog.Logger) policies.Uploader {
	client, err := s3.NewClient(s3.Options{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
		Prefix:         "hostels",
	}, logger)
	if err != nil {
		logger.Warn("image uploads disabled", "error", err)
		return nil
	}
	if !cfg.IsDev() {
		i.AddCheck("s3", client.Probe)
	}
	return client
}
