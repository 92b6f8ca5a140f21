// Package httpapi exposes the permalink service over HTTP: authenticated
// management endpoints under /api, and the public resolver routes that
// serve canonical content or permanent redirects for retired identifiers.
package httpapi
