// Package atproto is a small XRPC client for the parts of the AT Protocol
// Aeolius needs: session management against a PDS, profile lookup, listing
// post records and deleting them in batches.
//
// Every call takes the token it authenticates with explicitly. The client
// holds no session state, so one Client per PDS can be shared by many
// accounts.
package atproto
