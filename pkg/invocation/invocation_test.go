package invocation

import (
	"context"
	"errors"
	"testing"
)

type fakeDisposable struct {
	name    string
	calls   *[]string
}

func (f *fakeDisposable) DeleteResources() {
	*f.calls = append(*f.calls, f.name)
}

func TestNew_GeneratesRequestIDAndRootJournal(t *testing.T) {
	c := New("announcer", WithUserID("u1"))
	if c.RequestID == "" {
		t.Fatal("expected a generated request id")
	}
	if c.JournalRoot == nil {
		t.Fatal("expected a root journal")
	}
	if c.UserID != "u1" {
		t.Fatalf("got UserID=%q", c.UserID)
	}
}

func TestGo_PanicsBeforeStart(t *testing.T) {
	c := New("announcer")
	defer func() {
		if recover() == nil {
			t.Fatal("expected Go before Start to panic")
		}
	}()
	c.Go(func() error { return nil })
}

func TestStartGoWait_PropagatesError(t *testing.T) {
	c := New("announcer")
	c.Start(context.Background())

	boom := errors.New("boom")
	c.Go(func() error { return boom })
	c.Go(func() error { return nil })

	if err := c.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestStop_ReleasesTrackedResourcesInReverseOrder(t *testing.T) {
	c := New("announcer")
	c.Start(context.Background())

	var calls []string
	c.Track(&fakeDisposable{name: "child", calls: &calls})
	c.Track(&fakeDisposable{name: "root", calls: &calls})

	c.Stop()

	if len(calls) != 2 || calls[0] != "root" || calls[1] != "child" {
		t.Fatalf("expected reverse release order, got %v", calls)
	}

	// Stop must be idempotent.
	c.Stop()
	if len(calls) != 2 {
		t.Fatalf("expected Stop to be a no-op the second time, got %v", calls)
	}
}
