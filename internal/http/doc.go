// Package httpapp serves the blog JSON API.
//
//	GET  /health          liveness probe
//	GET  /                banner
//	POST /register        create an author from {email, password}
//	POST /token           exchange form fields username/password for a bearer token
//	POST /generate-post   generate and store a post from {prompt}; bearer token required
//	GET  /posts           every post, newest first
//	GET  /posts/{id}      one post
//	GET  /ready           readiness probe, pings the database
//
// Errors are returned as {"detail": "..."}.
package httpapp
