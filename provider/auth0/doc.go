// Package auth0 backs the bridge with the Auth0 Authentication API.
//
// Password, phone (passwordless SMS), and refresh-token flows map onto
// Auth0 endpoints; ID tokens are validated against the tenant JWKS before
// a session is established. Operations Auth0 only offers through hosted
// pages or the Management API report AUTH0_NOT_SUPPORTED.
package auth0
