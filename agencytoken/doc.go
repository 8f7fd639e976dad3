/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package agencytoken provides the bearer-token validation pipeline:
// extracting the token from the Authorization header, introspecting it
// at the remote authority, caching the resulting principal, and applying
// the policy checks (expiry, client allow-list, active flag, auth type).
package agencytoken
