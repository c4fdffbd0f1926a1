package throttle_test

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adamwoolhether/naett/throttle"
)

func ExampleNew() {
	l, err := throttle.New(
		10, // transfers per second
		5,  // burst capacity
		slog.Default(),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if err := l.Wait(context.Background(), "http://example.com"); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("token acquired")
	// Output: token acquired
}
