package backend

import "context"

// Credentials are the per-caller values injected into every backend request.
type Credentials struct {
	BearerToken string
	SessionID   string
	Language    string
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

func CredentialsFromContext(ctx context.Context) Credentials {
	if ctx == nil {
		return Credentials{}
	}
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}
