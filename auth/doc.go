// Package auth holds the account and session logic of the service.
//
// Passwords are never stored, only a salted slow hash (bcrypt by default,
// argon2id when configured). The hash string carries its own salt and cost so
// old hashes keep verifying after the configured scheme changes.
//
// A successful login mints an opaque bearer token: 32 random bytes, base64url
// encoded, persisted in the credential store. Tokens do not expire; they are
// only removed when their owner deletes the account, which requires the
// password again (holding a token is not enough).
//
// The session correlator is deliberately weak: GET /branches hands out a
// random uuid through the x_id_session cookie and the sim-cards endpoint only
// checks that whatever comes back parses as a uuid. Strict mode remembers the
// issued ids per user, but it is opt-in so scripts written against the weak
// behaviour keep working.
package auth
