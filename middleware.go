/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencyauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"

	"github.com/acronis/go-agencyauth/internal/idputil"
	"github.com/acronis/go-agencyauth/principal"
)

// HeaderAuthorization contains the name of HTTP header with data that is used for authentication.
const HeaderAuthorization = "Authorization"

// Authentication error codes.
// We are using "var" here because some services may want to use different error codes.
var (
	ErrCodeAuthenticationRequired = "authenticationRequired"
	ErrCodeAuthenticationFailed   = "authenticationFailed"
)

// Authentication error messages.
// Every rejection collapses to the same message on purpose: an
// unauthenticated caller must not learn which check failed.
var (
	ErrMessageAuthenticationRequired = "Authentication is required."
	ErrMessageAuthenticationFailed   = "Authentication is failed."
)

type ctxKey int

const ctxKeyPrincipal ctxKey = iota

// TokenValidator is an interface for validating the bearer token carried by
// an Authorization header value.
type TokenValidator interface {
	ValidateHeader(ctx context.Context, authHeader string) (*principal.Principal, error)
}

type authNHandler struct {
	next           http.Handler
	errorDomain    string
	validator      TokenValidator
	loggerProvider func(ctx context.Context) log.FieldLogger
}

type authNMiddlewareOpts struct {
	loggerProvider func(ctx context.Context) log.FieldLogger
}

// AuthNMiddlewareOption is an option for AuthNMiddleware.
type AuthNMiddlewareOption func(options *authNMiddlewareOpts)

// WithAuthNMiddlewareLoggerProvider is an option to set a logger provider for AuthNMiddleware.
func WithAuthNMiddlewareLoggerProvider(loggerProvider func(ctx context.Context) log.FieldLogger) AuthNMiddlewareOption {
	return func(options *authNMiddlewareOpts) {
		options.loggerProvider = loggerProvider
	}
}

// AuthNMiddleware is a middleware that authenticates incoming requests by the
// bearer token from the "Authorization" HTTP header.
// errorDomain is used for error responses. It is usually the name of the service that uses the middleware,
// and its goal is distinguishing errors from different services.
// A request without the header is rejected with 401 and the "authenticationRequired" code;
// any validation failure is rejected with 401 and the single undistinguished
// "authenticationFailed" code. On success the principal is put into the request context.
func AuthNMiddleware(errorDomain string, validator TokenValidator, opts ...AuthNMiddlewareOption) func(next http.Handler) http.Handler {
	options := authNMiddlewareOpts{loggerProvider: middleware.GetLoggerFromContext}
	for _, opt := range opts {
		opt(&options)
	}
	return func(next http.Handler) http.Handler {
		return &authNHandler{
			next:           next,
			errorDomain:    errorDomain,
			validator:      validator,
			loggerProvider: options.loggerProvider,
		}
	}
}

func (h *authNHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := idputil.GetLoggerFromProvider(r.Context(), h.loggerProvider)

	authHeader := strings.TrimSpace(r.Header.Get(HeaderAuthorization))
	if authHeader == "" {
		apiErr := restapi.NewError(h.errorDomain, ErrCodeAuthenticationRequired, ErrMessageAuthenticationRequired)
		restapi.RespondError(rw, http.StatusUnauthorized, apiErr, logger)
		return
	}

	p, err := h.validator.ValidateHeader(r.Context(), authHeader)
	if err != nil {
		logger.Error("authentication failed", log.Error(err))
		apiErr := restapi.NewError(h.errorDomain, ErrCodeAuthenticationFailed, ErrMessageAuthenticationFailed)
		restapi.RespondError(rw, http.StatusUnauthorized, apiErr, logger)
		return
	}

	h.next.ServeHTTP(rw, r.WithContext(NewContextWithPrincipal(r.Context(), p)))
}

// NewContextWithPrincipal creates a new context with the authenticated principal.
func NewContextWithPrincipal(ctx context.Context, p *principal.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// GetPrincipalFromContext extracts the authenticated principal from the context.
func GetPrincipalFromContext(ctx context.Context) *principal.Principal {
	value := ctx.Value(ctxKeyPrincipal)
	if value == nil {
		return nil
	}
	return value.(*principal.Principal)
}
