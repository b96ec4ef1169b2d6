package domain

import "time"

// Role defines the access level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Address holds the applicant's mailing address.
type Address struct {
	StreetAddress     *string `json:"streetAddress,omitempty"`
	UnitNumber        *string `json:"unitNumber,omitempty"`
	City              *string `json:"city,omitempty"`
	PostalCode        *string `json:"postalCode,omitempty"`
	Province          *string `json:"province,omitempty"`
	AdditionalAddress *string `json:"additionalAddress,omitempty"`
}

// User represents an account in our system. Plaid credentials are set once
// bank-account linkage completes and gate the incomplete->pending transition.
type User struct {
	ID               string     `json:"id"`
	Role             Role       `json:"role"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	HashedPassword   string     `json:"-"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	ApplicantGender  *string    `json:"applicantGender,omitempty"`
	Address          Address    `json:"address"`
	PlaidItemID      *string    `json:"-"`
	PlaidAccessToken *string    `json:"-"`
	RecoveryToken    *string    `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BankLinked reports whether the user completed financial-data linkage.
// Both credentials must be present; either one alone is not enough.
func (u *User) BankLinked() bool {
	return u.PlaidItemID != nil && *u.PlaidItemID != "" &&
		u.PlaidAccessToken != nil && *u.PlaidAccessToken != ""
}

// UserProfile are the fields a user may update on their own account.
type UserProfile struct {
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	ApplicantGender *string    `json:"applicantGender,omitempty"`
	Address         Address    `json:"address"`
}
