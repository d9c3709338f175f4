package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	pkglogger "github.com/hayzen-ai/hayzen-api/pkg/logger"
)

// EmailService defines the interface for delivering one-time codes
type EmailService interface {
	SendOTPEmail(ctx context.Context, email string, purpose models.OTPPurpose, code string) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// otpSubject maps each flow to its email subject line.
func otpSubject(purpose models.OTPPurpose) string {
	switch purpose {
	case models.OTPPurposeSignup:
		return "Confirm your account"
	case models.OTPPurposeLogin:
		return "Your login verification code"
	case models.OTPPurposeForgot:
		return "Reset your password"
	case models.OTPPurposeEnable2FA:
		return "Confirm enabling two-factor authentication"
	case models.OTPPurposeDisable2FA:
		return "Confirm disabling two-factor authentication"
	default:
		return "Your verification code"
	}
}

// SendOTPEmail delivers a one-time code to the user
func (s *AWSSESEmailService) SendOTPEmail(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 32px; letter-spacing: 6px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <p>Use this code to continue:</p>
        <div class="code">%s</div>
        <p>The code expires in 2 minutes. If you did not request it, you can ignore this email.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, code)

	textBody := fmt.Sprintf(`Use this code to continue: %s

The code expires in 2 minutes. If you did not request it, you can ignore this email.

This is an automated message. Please do not reply to this email.
`, code)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(otpSubject(purpose)),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send otp email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("otp email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("purpose", string(purpose)),
		slog.String("message_id", *result.MessageId))

	return nil
}
