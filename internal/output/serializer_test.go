package output

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"
)

func TestSerializerOrdersByJobID(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, false)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	// Feed job 2's completion before job 1's to exercise reordering.
	events <- StartEvent(2)
	events <- StdoutEvent(2, []byte("b\n"))
	events <- CompletedEvent(2)

	events <- StartEvent(1)
	events <- StdoutEvent(1, []byte("a\n"))
	events <- CompletedEvent(1)

	events <- StartEvent(3)
	events <- StdoutEvent(3, []byte("c\n"))
	events <- CompletedEvent(3)

	close(events)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != "a\nb\nc\n" {
		t.Fatalf("stdout = %q, want %q", stdout.String(), "a\nb\nc\n")
	}
}

func TestSerializerStdoutThenStderrPerJob(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, false)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	events <- StartEvent(1)
	events <- StdoutEvent(1, []byte("out\n"))
	events <- StderrEvent(1, []byte("err\n"))
	events <- CompletedEvent(1)
	close(events)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.String() != "out\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if stderr.String() != "err\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestSerializerQuietDiscardsStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, true)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	events <- StartEvent(1)
	events <- StdoutEvent(1, []byte("out\n"))
	events <- StderrEvent(1, []byte("err\n"))
	events <- CompletedEvent(1)
	close(events)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should be discarded in quiet mode, got %q", stdout.String())
	}
	if stderr.String() != "err\n" {
		t.Fatalf("stderr should still flush in quiet mode, got %q", stderr.String())
	}
}

func TestSerializerErrorEventBecomesStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, false)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	events <- FailedEvent(1, "spawn failed: no such file\n")
	close(events)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should be empty for an Error job, got %q", stdout.String())
	}
	if stderr.String() != "spawn failed: no such file\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestSerializerIncompleteEntryIsFatal(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, false)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	events <- StartEvent(2)
	events <- StartEvent(1)
	events <- CompletedEvent(1)
	close(events) // job 2 never completes

	if err := <-done; err == nil {
		t.Fatal("expected internal invariant violation error")
	}
}

func TestSerializerRandomArrivalOrderStillFlushesInOrder(t *testing.T) {
	var stdout, stderr bytes.Buffer
	s := New(&stdout, &stderr, false)

	const n = 50
	events := make(chan Event, n*3)
	done := make(chan error, 1)
	go func() { done <- s.Run(events) }()

	order := rand.Perm(n)
	var wg sync.WaitGroup
	for _, idx := range order {
		id := idx + 1
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			events <- StartEvent(id)
			events <- StdoutEvent(id, []byte{byte('a' + (id % 26))})
			events <- StdoutEvent(id, []byte("\n"))
			events <- CompletedEvent(id)
		}(id)
	}
	wg.Wait()
	close(events)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(stdout.Bytes(), "\n"), []byte("\n"))
	if len(lines) != n {
		t.Fatalf("got %d lines, want %d", len(lines), n)
	}
	for i, line := range lines {
		want := byte('a' + ((i + 1) % 26))
		if len(line) != 1 || line[0] != want {
			t.Fatalf("line %d = %q, want %q", i+1, line, want)
		}
	}
}
