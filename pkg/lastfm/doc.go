// Package lastfm is a small client for the Last.fm API 2.0.
//
// It covers the two areas a scrobbler needs: the desktop authentication
// flow (auth.getToken, auth.getSession) and track submission
// (track.updateNowPlaying, track.scrobble). Every request is signed with
// the API secret and sent as a form-encoded POST; responses are XML.
//
// The session key is passed to each authenticated call rather than stored
// on the client, so a single Client can serve any number of sessions.
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	token, err := client.Auth().GetToken(ctx)
//	// ... user visits client.Auth().GetAuthURL(token.Token) ...
//	session, err := client.Auth().GetSession(ctx, token.Token)
//
//	resp, err := client.Scrobble().Scrobble(ctx, session.Key, lastfm.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	}, time.Now().Add(-2*time.Minute))
//
// Transient failures (network errors, HTTP 5xx, error codes 11 and 16) are
// retried with exponential backoff before an error is returned. Errors
// reported by the API are returned as *Error.
package lastfm
