// Package api implements the HTTP surface of loom-server.
//
// All request and response bodies are JSON. Errors use a uniform envelope:
//
//	{"error": "<code>", "message": "<human readable>"}
//
// with codes validation_error (400), authentication_error (401),
// unauthorized_error (403), not_found (404), conflict (409), and
// store_error (500). Authentication failures are deliberately opaque: the
// response never reveals which check rejected the token.
//
// Routes:
//
//	POST   /api/login                          issue a token
//	GET    /api/health                         liveness probe
//	GET    /api/posts                          list top-level posts (paginated)
//	POST   /api/messages                       create a post or comment
//	PUT    /api/messages/{id}                  edit own message
//	DELETE /api/messages/{id}                  delete own message and its replies
//	PUT    /api/messages/{id}/like             like (idempotent)
//	PUT    /api/messages/{id}/unlike           unlike (idempotent)
//	POST   /api/users                          create user (admin)
//	GET    /api/users/{id}                     fetch user (admin)
//	PATCH  /api/users/{id}                     update profile fields (admin)
//	DELETE /api/users/{id}                     delete user (admin)
//	PUT    /api/users/{id}/roles/{role}        grant role (admin)
//	DELETE /api/users/{id}/roles/{role}        revoke role (admin)
package api
