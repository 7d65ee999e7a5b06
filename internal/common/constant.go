package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// Token kinds carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Event subjects published on account lifecycle changes.
const (
	SubjectAccountCreated = "accounts.created"
	SubjectAccountDeleted = "accounts.deleted"
)
