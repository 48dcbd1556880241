// Package identity holds the seams to the external identity provider and the
// role resolution used to gate every privileged operation.
package identity

import "context"

// Provider is the external identity-provider surface this service depends
// on. Token issuance and verification stay with the provider; the directory
// only creates accounts (with a generated temporary credential) and deletes
// them when a local transaction fails after account creation.
type Provider interface {
	// CreateAccount provisions an account and returns its UID.
	// Returns sentinel.ErrAlreadyUsed when the email is taken.
	CreateAccount(ctx context.Context, email, tempCredential string) (string, error)
	// DeleteAccount removes an account. Used as best-effort compensation.
	DeleteAccount(ctx context.Context, uid string) error
}
