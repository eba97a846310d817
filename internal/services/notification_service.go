package services

import (
	"context"
	"fmt"

	"ridepool/internal/models"
	"ridepool/internal/utils"
	"ridepool/pkg/logger"
	"ridepool/pkg/mailer"
	"ridepool/pkg/sms"
)

// SMSService and EmailService are the notification seams the services
// depend on; tests swap in mocks, production wires the pkg providers.
type SMSService interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type EmailService interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type smsService struct {
	provider sms.SMSProvider
	logger   *logger.Logger
}

func NewSMSService(provider sms.SMSProvider, logger *logger.Logger) SMSService {
	return &smsService{provider: provider, logger: logger}
}

func (s *smsService) SendSMS(ctx context.Context, phone, message string) error {
	resp, err := s.provider.SendSMS(ctx, &sms.SMSRequest{
		To:      phone,
		Message: message,
		Type:    "otp",
	})
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}

	s.logger.WithField("message_id", resp.MessageID).Debug("SMS dispatched")
	return nil
}

type emailService struct {
	mailer mailer.Mailer
	logger *logger.Logger
}

func NewEmailService(m mailer.Mailer, logger *logger.Logger) EmailService {
	return &emailService{mailer: m, logger: logger}
}

func (s *emailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := s.mailer.SendEmail(to, subject, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithField("to", utils.MaskEmail(to)).Debug("email dispatched")
	return nil
}

// Message templates. Plain text only.

func otpSubject(purpose models.OTPPurpose) string {
	switch purpose {
	case models.OTPPurposePasswordReset:
		return fmt.Sprintf("%s password reset code", utils.AppName)
	default:
		return fmt.Sprintf("%s verification code", utils.AppName)
	}
}

func otpBody(code string, purpose models.OTPPurpose) string {
	switch purpose {
	case models.OTPPurposePasswordReset:
		return fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.",
			code, int(models.OTPValidity.Minutes()))
	default:
		return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
			code, int(models.OTPValidity.Minutes()))
	}
}

func welcomeBody(firstName string) string {
	if firstName == "" {
		return fmt.Sprintf("Your %s account is now active.", utils.AppName)
	}
	return fmt.Sprintf("Hi %s, your %s account is now active.", firstName, utils.AppName)
}
