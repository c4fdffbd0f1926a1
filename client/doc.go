// Package client is the platform-independent core of the asynchronous
// HTTP client. It builds request descriptions, hands them to a [Backend]
// for execution, and exposes responses that fill in while the caller keeps
// working.
//
// # Building a Client
//
// A [Client] needs a [Backend]. The net/http implementation lives in
// [github.com/adamwoolhether/naett/backend/nethttp]:
//
//	c, err := client.Build(
//		client.WithBackend(nethttp.New()),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// A [Request] is built once from single-use [RequestOption] values and may
// be executed any number of times:
//
//	req, err := c.Request("https://example.com/upload",
//		client.Method("POST"),
//		client.Header("Content-Type", "text/plain"),
//		client.Body([]byte("hello")),
//		client.Timeout(2*time.Second),
//	)
//	res, err := c.Make(req)
//	defer res.Close()
//
// # Reading Responses
//
// [Client.Make] returns at once. Poll [Response.Complete], select on
// [Response.Done], or block with [Response.Wait]:
//
//	if err := res.Wait(ctx); err != nil { ... }
//	fmt.Println(res.Status(), string(res.Body()))
//
// Negative status codes report processing failures; see [StatusText] and
// [ProcessingError].
//
// # Custom Bodies
//
// [BodyReader] streams the outgoing body from a [ReadFunc], and
// [BodyWriter] routes the incoming body to a [WriteFunc] instead of the
// response's internal [Buffer].
package client
