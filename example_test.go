package naett_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/naett"
	"github.com/adamwoolhether/naett/client"
	"github.com/adamwoolhether/naett/internal/testrig"
)

func ExampleNewClient() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(testrig.NewHandler(logger, nil))
	defer ts.Close()

	c, err := naett.NewClient(client.WithLogger(logger))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close(context.Background())

	req, err := c.Request(ts.URL+"/post",
		client.Method("POST"),
		client.Header("Accept", testrig.AcceptHeader),
		client.Body([]byte(testrig.PostBody)),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer req.Free()

	res, err := c.Make(req)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer res.Close()

	for !res.Complete() {
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Println(res.Status(), string(res.Body()))
	// Output: 200 OK
}
