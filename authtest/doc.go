/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package authtest provides an in-process mock of the introspection
// authority for testing purposes.
package authtest
