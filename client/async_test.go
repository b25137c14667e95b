package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/clienttest"
	"github.com/google/go-cmp/cmp"
)

func newAsyncClient(t *testing.T, b *clienttest.AsyncBackend, opts ...client.Option) *client.AsyncClient {
	t.Helper()

	c, err := client.NewAsync(b, append([]client.Option{client.WithBaseURL(testBase)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create async client: %v", err)
	}

	return c
}

func TestAsync_Go(t *testing.T) {
	b := clienttest.New(func(parts client.RequestParts, _ []byte) clienttest.Reply {
		return clienttest.JSON(fmt.Sprintf(`{"name":%q}`, parts.URL.Path))
	})
	c := newAsyncClient(t, b.Async())

	const n = 10
	futures := make([]*client.Future[widget], n)
	for i := range n {
		req := mustRequest(t, client.MethodGet, client.PathEndpoint("w", fmt.Sprint(i)), client.DecodeJSON[widget])
		futures[i] = client.Go(t.Context(), c, req)
	}

	for i, f := range futures {
		got, err := f.Wait()
		if err != nil {
			t.Fatalf("future %d: expected no error, got: %v", i, err)
		}
		if exp := fmt.Sprintf("/w/%d", i); got.Name != exp {
			t.Errorf("future %d: expected %q, got %q", i, exp, got.Name)
		}
	}

	if err := c.Wait(); err != nil {
		t.Errorf("expected no group errors, got: %v", err)
	}
	if len(b.Calls()) != n {
		t.Errorf("expected %d sends, got %d", n, len(b.Calls()))
	}
}

func TestAsync_Concurrency(t *testing.T) {
	var (
		running atomic.Int32
		peak    atomic.Int32
	)

	b := clienttest.New(func(client.RequestParts, []byte) clienttest.Reply {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)

		return clienttest.Reply{}
	})
	c := newAsyncClient(t, b.Async(), client.WithConcurrency(2))

	req := mustRequest(t, client.MethodGet, client.PathEndpoint(), client.Discard)
	for range 6 {
		client.Go(t.Context(), c, req)
	}

	if err := c.Wait(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("expected at most 2 concurrent sends, got %d", p)
	}
}

func TestAsync_ErrorsMatchBlocking(t *testing.T) {
	reply := clienttest.Reply{Status: http.StatusNotFound, Body: "missing"}

	bc := newClient(t, clienttest.Sequence(reply))
	ac := newAsyncClient(t, clienttest.Sequence(reply).Async())

	req := mustRequest(t, client.MethodGet, client.PathEndpoint("x"), client.Discard)

	_, berr := client.Do(t.Context(), bc, req)
	_, aerr := client.Go(t.Context(), ac, req).Wait()

	if berr == nil || aerr == nil {
		t.Fatalf("expected both to fail, got %v and %v", berr, aerr)
	}
	if berr.Error() != aerr.Error() {
		t.Errorf("expected identical errors, got %q and %q", berr, aerr)
	}
	if !errors.Is(ac.Wait(), client.ErrStatus) {
		t.Error("expected the group to record the failure")
	}
}

func TestAsync_Cancel(t *testing.T) {
	b := clienttest.Sequence(clienttest.Reply{Delay: time.Minute})
	c := newAsyncClient(t, b.Async())

	f := client.Go(t.Context(), c, mustRequest(t, client.MethodGet, client.PathEndpoint(), client.Discard))

	time.Sleep(10 * time.Millisecond)
	f.Cancel()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("expected cancellation to resolve the future")
	}

	if err := f.Err(); !errors.Is(err, client.ErrSend) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancelled send, got: %v", err)
	}
}

func TestAsync_Shutdown(t *testing.T) {
	b := clienttest.Sequence(clienttest.Reply{})
	c := newAsyncClient(t, b.Async())
	c.Shutdown()

	_, err := client.Go(t.Context(), c, mustRequest(t, client.MethodGet, client.PathEndpoint(), client.Discard)).Wait()
	if !errors.Is(err, client.ErrShutdown) {
		t.Errorf("expected ErrShutdown, got: %v", err)
	}
	if n := len(b.Calls()); n != 0 {
		t.Errorf("expected no sends after shutdown, got %d", n)
	}
}

func TestAsync_Stream(t *testing.T) {
	b := clienttest.Sequence(clienttest.Reply{Body: "streamed body"})
	c := newAsyncClient(t, b.Async())

	resp, err := c.Stream(t.Context(), mustRequest(t, client.MethodGet, client.PathEndpoint("s"), client.Discard)).Wait()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer resp.Body.Close()

	// The body stays readable after the future has resolved.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(data) != "streamed body" {
		t.Errorf("expected %q, got %q", "streamed body", data)
	}
}

func TestAsync_Paginate(t *testing.T) {
	b := threePages()
	c := newAsyncClient(t, b.Async())

	req, err := client.NewPageRequest[issue](client.PathEndpoint("issues"))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var got []int
	for item, err := range client.PaginateAsync(c, req).All(t.Context()) {
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		got = append(got, item.Number)
	}

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if n := len(b.Calls()); n != 3 {
		t.Errorf("expected 3 requests, got %d", n)
	}
}

func TestAsync_ConcurrentPrepare(t *testing.T) {
	c := newAsyncClient(t, clienttest.Sequence().Async(), client.WithHeader("X-A", "1"))
	req := mustRequest(t, client.MethodGet, client.PathEndpoint("p"), client.Discard)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			parts := c.Prepare(req)
			parts.Header.Set("X-A", "mutated")
		})
	}
	wg.Wait()

	if got := c.Prepare(req).Header.Get("X-A"); got != "1" {
		t.Errorf("expected session header to be untouched, got %q", got)
	}
}
