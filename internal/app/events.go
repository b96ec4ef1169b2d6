package app

// Exchange and routing-key names shared by producers, the outbox dispatcher
// and the consumers. Changing these requires a coordinated broker migration.
const (
	// UserEventsExchange carries domain events between services.
	UserEventsExchange = "user_events"
	// NotificationExchange carries e-mail requests to the notification
	// consumer.
	NotificationExchange = "notification_events"

	RoutingKeyBankLinked           = "user.bank_linked"
	RoutingKeyWelcomeEmail         = "email.welcome"
	RoutingKeyRecoveryEmail        = "email.password_recovery"
	RoutingKeyPasswordChangedEmail = "email.password_changed"
	RoutingKeyVerificationEmail    = "email.verification_code"
)
