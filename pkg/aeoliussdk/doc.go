// Package aeoliussdk is the client SDK for Aeolius.
//
// Aeolius deletes posts older than a configured age from an AT Protocol
// account. The SDK covers the three parties a front-end talks to:
//
//   - the identity provider (the user's PDS), through IdentityClient, to
//     exchange a handle and app password for a Session and to fetch the
//     user's avatar;
//   - the configuration API (the manager), through ConfigurationClient, to
//     read, replace and remove the user's Configuration;
//   - the deletion worker, through Client.TriggerSweep, to run a sweep on
//     demand.
//
// # Quick start
//
//	identity := aeoliussdk.NewIdentityClient("https://bsky.social")
//	sess, err := identity.Login(ctx, "alice.bsky.social", appPassword)
//	if err != nil {
//	    return err
//	}
//
//	api := aeoliussdk.NewClient("https://manager.aeolius.p8.lu")
//	cfg, err := api.Configuration(sess.Service(), sess.AccessToken(), sess.RefreshToken())
//	if err != nil {
//	    return err
//	}
//
//	current, err := cfg.Get(ctx) // creates {enabled:false, postTTL:6} when absent
//
// # Tokens
//
// The manager authenticates every call against the PDS. Reads and deletes
// carry the short-lived access token; Update carries the refresh token so
// the worker can act on the account later.
//
// # Errors
//
// Failed calls return *APIError. Use IsUnauthorized to decide whether the
// session is still usable and IsNotFound for absent configurations.
package aeoliussdk
