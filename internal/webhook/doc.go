// Package webhook serves the identity-provider and payment-provider webhook
// endpoints.
//
// # Request Flow
//
//  1. HTTP POST arrives at the provider's path
//  2. 500 if no secret was resolved for the provider at startup
//  3. Signature headers extracted (400 if missing)
//  4. Body size checked (413 if too large)
//  5. Signature verified over the raw body, constant-time (400 on mismatch)
//  6. Body parsed into a typed event (400 "invalid payload")
//  7. Event dispatched to its handler inside one store transaction (500 on failure)
//  8. 200 with {"success": true} (Clerk) or {"received": true} (Stripe)
//
// Error responses are plain text and never say why a signature failed.
// Request logging excludes bodies and full signatures.
//
// # Configuration
//
//	http:
//	  listen: "127.0.0.1:8080"
//	secrets:
//	  clerk_webhook_secret: ${CLERK_WEBHOOK_SECRET}
//	  stripe_webhook_secret: ${STRIPE_WEBHOOK_SECRET}
//	webhooks:
//	  clerk:
//	    path: /clerk-users-webhook
//	    secret_ref: clerk_webhook_secret
//	    tolerance: 5m
//	  stripe:
//	    path: /stripe-webhook
//	    secret_ref: stripe_webhook_secret
//	    max_body_size: 1MB
//
// GET /healthz reports store liveness.
package webhook
