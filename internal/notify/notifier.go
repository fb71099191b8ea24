package notify

import (
	"fmt"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/util"
)

// Notifier delivers account emails to companies. Implementations must
// tolerate being called on request paths: failures are logged by the
// caller and never block the underlying state change.
type Notifier interface {
	SendOTP(email, code string, ttlMinutes int) error
	SendApproval(email, companyName string) error
	SendRejection(email, companyName, reason string) error
}

type emailNotifier struct {
	smtp   *client.SMTPClient
	logger *zap.Logger
}

func NewEmailNotifier(smtp *client.SMTPClient, logger *zap.Logger) Notifier {
	return &emailNotifier{
		smtp:   smtp,
		logger: logger,
	}
}

func (n *emailNotifier) SendOTP(email, code string, ttlMinutes int) error {
	subject := "Your verification code"
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 480px;">
			<h2>Email verification</h2>
			<p>Use the code below to verify your company account:</p>
			<p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
			<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>
		</div>`, code, ttlMinutes)

	if err := n.smtp.SendHTML(email, subject, body); err != nil {
		util.Error("Failed to send OTP email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	return nil
}

func (n *emailNotifier) SendApproval(email, companyName string) error {
	subject := "Your company account has been approved"
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 480px;">
			<h2>Welcome aboard, %s</h2>
			<p>Your company profile has been reviewed and approved. You can now post jobs and manage applications.</p>
		</div>`, companyName)

	if err := n.smtp.SendHTML(email, subject, body); err != nil {
		util.Error("Failed to send approval email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("failed to send approval email: %w", err)
	}

	return nil
}

func (n *emailNotifier) SendRejection(email, companyName, reason string) error {
	subject := "Update on your company account review"
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 480px;">
			<h2>Review update for %s</h2>
			<p>Your company profile was not approved for the following reason:</p>
			<blockquote style="border-left: 3px solid #ccc; padding-left: 12px;">%s</blockquote>
			<p>Please contact support if you believe this is a mistake.</p>
		</div>`, companyName, reason)

	if err := n.smtp.SendHTML(email, subject, body); err != nil {
		util.Error("Failed to send rejection email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("failed to send rejection email: %w", err)
	}

	return nil
}
