package panel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func testCamera() (*remoteCamera, *int32, *int32) {
	var starts, stops int32
	cam := newRemoteCamera(
		func() error { atomic.AddInt32(&starts, 1); return nil },
		func() error { atomic.AddInt32(&stops, 1); return nil },
	)
	return cam, &starts, &stops
}

// submitWhenAcquiring waits for the next acquisition cycle to open before
// delivering the frame, mirroring a browser that only sends frames after the
// start request.
func submitWhenAcquiring(cam *remoteCamera, data []byte) {
	go func() {
		for {
			cam.mu.Lock()
			open := cam.ready != nil && !cam.signaled
			cam.mu.Unlock()
			if open {
				cam.SubmitFrame(data)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestAcquireCompletesOnFirstFrame(t *testing.T) {
	cam, starts, _ := testCamera()

	submitWhenAcquiring(cam, []byte("jpeg"))

	stream, err := cam.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err: %v", err)
	}
	defer stream.Close()

	if atomic.LoadInt32(starts) != 1 {
		t.Fatalf("expected one start request, got %d", atomic.LoadInt32(starts))
	}

	frame, err := stream.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture err: %v", err)
	}
	if string(frame) != "jpeg" {
		t.Fatalf("unexpected frame: %q", frame)
	}
}

func TestAcquireReportsDenial(t *testing.T) {
	cam, _, _ := testCamera()

	go func() {
		time.Sleep(5 * time.Millisecond)
		cam.Deny("Permission denied")
	}()

	if _, err := cam.Acquire(context.Background()); err == nil || err.Error() != "Permission denied" {
		t.Fatalf("expected denial error, got %v", err)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	cam, _, stops := testCamera()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	if _, err := cam.Acquire(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
	if atomic.LoadInt32(stops) != 1 {
		t.Fatalf("camera not asked to stop after cancel, stops=%d", atomic.LoadInt32(stops))
	}
}

func TestCaptureReturnsLatestFrame(t *testing.T) {
	cam, _, _ := testCamera()

	submitWhenAcquiring(cam, []byte("first"))
	stream, err := cam.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err: %v", err)
	}
	defer stream.Close()

	cam.SubmitFrame([]byte("second"))
	frame, err := stream.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture err: %v", err)
	}
	if string(frame) != "second" {
		t.Fatalf("expected latest frame, got %q", frame)
	}
}

func TestCloseStopsVideoOnce(t *testing.T) {
	cam, _, stops := testCamera()

	submitWhenAcquiring(cam, []byte("jpeg"))
	stream, err := cam.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close err: %v", err)
	}
	if atomic.LoadInt32(stops) != 1 {
		t.Fatalf("expected one stop request, got %d", atomic.LoadInt32(stops))
	}

	if _, err := stream.Capture(context.Background()); err == nil {
		t.Fatal("capture after close must fail")
	}
}

func TestReacquireWaitsForFreshFrame(t *testing.T) {
	cam, _, _ := testCamera()

	submitWhenAcquiring(cam, []byte("jpeg"))
	stream, err := cam.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire err: %v", err)
	}
	stream.Close()

	// The second cycle must block until the browser delivers a new frame.
	acquired := make(chan error, 1)
	go func() {
		s, err := cam.Acquire(context.Background())
		if err == nil {
			s.Close()
		}
		acquired <- err
	}()

	select {
	case <-acquired:
		t.Fatal("reacquire completed without a fresh frame")
	case <-time.After(20 * time.Millisecond):
	}

	cam.SubmitFrame([]byte("fresh"))
	if err := <-acquired; err != nil {
		t.Fatalf("reacquire err: %v", err)
	}
}
