package lifx

import (
	"sync"
	"testing"
)

func TestScannerListenerFiresOnlyOnce(t *testing.T) {
	l := &scannerListener{seen: make(chan struct{})}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Register(nil)
		}()
	}
	wg.Wait()

	select {
	case <-l.seen:
		// Expected: closed exactly once, sync.Once guarantees no panic from
		// the concurrent Register calls above.
	default:
		t.Fatal("seen channel was never closed")
	}
}

func TestLocalIPv4Addrs(t *testing.T) {
	// Smoke test only: the actual set of interfaces depends on the host
	// running the test, so just confirm the call succeeds and never returns
	// a loopback or non-IPv4 address.
	addrs, err := localIPv4Addrs()
	if err != nil {
		t.Fatalf("localIPv4Addrs: %v", err)
	}
	for _, ip := range addrs {
		if ip.IsLoopback() {
			t.Errorf("localIPv4Addrs returned a loopback address: %v", ip)
		}
		if ip.To4() == nil {
			t.Errorf("localIPv4Addrs returned a non-IPv4 address: %v", ip)
		}
	}
}
