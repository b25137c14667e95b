// Package nethttp implements the client backends on top of [net/http].
//
// [Backend] is the blocking variant used with client.New, and
// [AsyncBackend] the suspend-based one used with client.NewAsync. Both
// share one [http.Client], built with the same transport chain options:
//
//	b, err := nethttp.New(
//		nethttp.WithTimeout(30*time.Second),
//		nethttp.WithThrottle(10, 5),
//	)
package nethttp
