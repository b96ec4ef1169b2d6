package domain

// BankLinkCompletedEvent is published when a user finishes exchanging their
// Plaid public token. The application service consumes it to reconcile the
// user's incomplete applications.
type BankLinkCompletedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	ItemID string `json:"item_id"`
}

// WelcomeEmailEvent asks the notification consumer to send the bank-link
// welcome e-mail.
type WelcomeEmailEvent struct {
	Recipient string `json:"recipient"`
	ItemID    string `json:"item_id"`
}

// PasswordRecoveryEmailEvent carries a recovery link for the user.
type PasswordRecoveryEmailEvent struct {
	Recipient   string `json:"recipient"`
	Name        string `json:"name"`
	RecoveryURL string `json:"recovery_url"`
}

// PasswordChangedEmailEvent notifies the user their password was updated.
type PasswordChangedEmailEvent struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
}

// VerificationCodeEmailEvent carries a 6-digit e-mail verification code.
type VerificationCodeEmailEvent struct {
	Recipient string `json:"recipient"`
	Code      string `json:"code"`
}
