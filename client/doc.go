// Package client describes HTTP operations declaratively and executes them
// against an interchangeable transport.
//
// A request names its endpoint, method, headers, query params, body and
// the [Parser] that turns the response into a typed value. The [Client]
// merges its session [Config] into the request, hands the resolved
// [RequestParts] to a [Backend], and streams the response through the
// parser. Every failure is reported as an [*Error] whose [ErrorKind]
// tells where it happened.
//
// # Building a Client
//
// The net/http backend lives in the nethttp package:
//
//	backend, err := nethttp.New(nethttp.WithTimeout(30 * time.Second))
//	c, err := client.New(backend,
//		client.WithBaseURL("https://api.example.com"),
//		client.WithAuthToken(token),
//		client.WithRetry(client.DefaultRetryPolicy()),
//	)
//
// # Making Requests
//
//	req, err := client.NewRequest(client.MethodGet,
//		client.PathEndpoint("repos", owner, repo),
//		client.DecodeJSON[Repo],
//	)
//	repo, err := client.Do(ctx, c, req)
//
// A status of 400 or above is an error of kind [KindStatus]. The captured
// body is not part of the error message but is available through
// [Error.ErrorResponseBody].
//
// # Pagination
//
// [Paginate] follows rel="next" links and yields items lazily:
//
//	preq, err := client.NewPageRequest[Issue](client.PathEndpoint("issues"))
//	for issue, err := range client.Paginate(c, preq).All(ctx) {
//		...
//	}
//
// # Async
//
// [AsyncClient] runs calls under a [Group] and returns a [Future] for each:
//
//	ac, err := client.NewAsync(backend.Async(), client.WithConcurrency(4))
//	f := client.Go(ctx, ac, req)
//	repo, err := f.Wait()
package client
