// Package commands defines the sml CLI.
//
// Commands
//
//   - init         Create a local identity and state file
//   - fingerprint  Print the identity fingerprint
//   - bundle       Emit a pre-key bundle for publication
//   - demo         Run an in-memory pairwise and group exchange
//
// # Implementation
//
// Client state lives in a single passphrase-encrypted file under the home
// directory. Commands that mutate state (bundle claims a one-time pre-key)
// re-export the client after running.
package commands
