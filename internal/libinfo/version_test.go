/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLibVersion(t *testing.T) {
	// Test binaries don't carry the module in their build info, so the fallback version is expected.
	require.Equal(t, "v0.0.0", GetLibVersion())
}
