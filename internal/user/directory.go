package user

import "context"

// Directory is the narrow client interface to the external user directory.
//
// Every call is a network round-trip authenticated by a bearer token:
// either the caller's own token, or a service token when the system acts
// on its own behalf before a user is authenticated. Calls are not retried
// here; a failure fails the enclosing operation.
type Directory interface {
	// ValidateCredentials asks the directory whether the credentials match
	// an account. A false result is a definitive rejection, not an error.
	ValidateCredentials(ctx context.Context, creds Credentials, token string) (bool, error)

	// ResolveUserID maps a username to the directory's user id.
	ResolveUserID(ctx context.Context, username, token string) (string, error)

	// FetchRecord loads the full record for a user id.
	FetchRecord(ctx context.Context, id, token string) (Record, error)

	// UpdateRecord persists the full record back to the directory.
	UpdateRecord(ctx context.Context, rec Record, token string) error
}
