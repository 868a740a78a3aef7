// Package cli provides the interactive dailybread command-line client.
//
// It wires configuration, the encrypted local cache, the authority client and
// the session synchronizer, then runs a REPL over them. The prompt always
// reflects the current snapshot: who is signed in and which screen the app
// would route to (sign-in, onboarding or home).
//
// Commands:
//   - login / register / logout
//   - onboard: answer the onboarding questionnaire
//   - refresh: re-check the onboarding record against the authority
//   - status / whoami
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
