// Package microsoft provides OAuth2 and HTTP client support for Microsoft Graph.
//
// This package provides:
//   - OAuth2 handler for the Microsoft identity platform (authorization URL,
//     authorization-code exchange, refresh-token exchange)
//   - GraphClient, a bearer-authenticated JSON caller for Graph
//   - Rate limiting for Microsoft Graph API requests
//   - Error handling for Microsoft Graph API responses
//
// # OAuth2 Flow
//
// Endpoints are tenant-scoped; the default tenant is "common":
//   - Auth URL: https://login.microsoftonline.com/{tenant}/oauth2/v2.0/authorize
//   - Token URL: https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token
//
// The "offline_access" scope is required for refresh tokens. Microsoft may
// rotate the refresh token on every refresh or omit it, in which case the
// previous one stays valid.
//
// # List responses
//
// Graph wraps collections as {"value": [...], "@odata.nextLink": ...}.
// GraphClient unwraps "value" for GET requests; other verbs return the raw body.
//
// # Rate Limits
//
// Microsoft Graph allows approximately 10,000 requests per 10 minutes per app.
// A 429 response sets a backoff from the Retry-After header. Requests are
// never retried automatically.
package microsoft
