/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken

import (
	"fmt"
	"regexp"
)

// bearerTokenRegexp matches "Bearer <token>" where the token consists of
// word characters. The tokens issued by the authority are opaque strings,
// so no other credential shape is supported.
var bearerTokenRegexp = regexp.MustCompile(`Bearer\s(\w+)`)

// ExtractBearerToken parses an Authorization header value into the bearer
// token it carries. The caller is responsible for checking that the header
// is present at all; an empty or malformed value fails with
// ErrUnsupportedCredentials.
func ExtractBearerToken(authHeader string) (string, error) {
	matches := bearerTokenRegexp.FindStringSubmatch(authHeader)
	if len(matches) != 2 {
		return "", fmt.Errorf("%w: expected bearer credentials", ErrUnsupportedCredentials)
	}
	return matches[1], nil
}
