// Package tokenx reads identity claims out of TutorLink access tokens.
//
// The Reader decodes the payload of a compact token and normalizes the
// backend's inconsistently cased claim keys into an Identity. It never
// verifies signatures and never fails loudly: malformed tokens yield nil
// claims, a nil identity or an empty role. Use it for display and optimistic
// UI decisions.
//
// Where an identity drives authorization, use a Verifier, which checks the
// signature and registered claims before building the same Identity.
package tokenx
