package throttle_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/adamwoolhether/reqpipe/client/throttle"
)

func ExampleNewRoundTripper() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	rt, err := throttle.NewRoundTripper(
		throttle.Config{RPS: 100, Burst: 1},
		func() *slog.Logger { return slog.New(slog.DiscardHandler) },
		nil,
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	hc := &http.Client{Transport: rt}
	for range 3 {
		resp, err := hc.Get(ts.URL)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		resp.Body.Close()
		fmt.Println(resp.Status)
	}

	// Output:
	// 204 No Content
	// 204 No Content
	// 204 No Content
}
