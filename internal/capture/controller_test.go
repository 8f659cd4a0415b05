package capture

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/PreetKumarPanchani/voice-client/internal/audio"
	"github.com/PreetKumarPanchani/voice-client/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	mu   sync.Mutex
	open bool
	cmds []protocol.Command
}

func (s *fakeSender) Send(cmd protocol.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false
	}
	s.cmds = append(s.cmds, cmd)
	return true
}

func (s *fakeSender) Commands() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Command, len(s.cmds))
	copy(out, s.cmds)
	return out
}

// testController uses a 1000 Hz rate and 100 ms windows so a window is
// exactly 200 bytes.
func testController(ctx Context, sender Sender) *Controller {
	return NewController(ctx, sender, Config{
		SampleRate: 1000,
		Window:     100 * time.Millisecond,
	}, testLogger())
}

func TestStart_AcquiresDevice(t *testing.T) {
	ctx := NewFakeContext()
	c := testController(ctx, &fakeSender{open: true})

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !c.Recording() || !c.Listening() {
		t.Error("expected recording and listening after start")
	}
	if ctx.DeviceCount() != 1 {
		t.Fatalf("expected 1 device, got %d", ctx.DeviceCount())
	}

	// Second start must not acquire again.
	if err := c.Start(); err != nil {
		t.Fatalf("repeat start failed: %v", err)
	}
	if ctx.DeviceCount() != 1 {
		t.Errorf("repeat start acquired a second device")
	}
}

func TestStart_AcquisitionFailureLeavesNoState(t *testing.T) {
	ctx := NewFakeContext()
	ctx.FailAcquire = true
	c := testController(ctx, &fakeSender{open: true})

	if err := c.Start(); err == nil {
		t.Fatal("expected acquisition error")
	}
	if c.Recording() || c.Listening() {
		t.Error("failed start must leave recording and listening false")
	}
}

func TestWindow_EmitsEncodedClip(t *testing.T) {
	ctx := NewFakeContext()
	sender := &fakeSender{open: true}
	c := testController(ctx, sender)

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ctx.Device(0).Feed(make([]byte, 200))

	cmds := sender.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	data, ok := cmds[0].(protocol.AudioData)
	if !ok {
		t.Fatalf("expected AudioData, got %T", cmds[0])
	}
	clip, err := audio.DecodeBase64(data.Audio)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if len(clip) != 44+200 {
		t.Errorf("expected WAV header plus 200 PCM bytes, got %d", len(clip))
	}
	if string(clip[:4]) != "RIFF" {
		t.Error("clip is not a WAV container")
	}
}

func TestWindow_PartialCarriesOver(t *testing.T) {
	ctx := NewFakeContext()
	sender := &fakeSender{open: true}
	c := testController(ctx, sender)

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	ctx.Device(0).Feed(make([]byte, 150))
	if len(sender.Commands()) != 0 {
		t.Fatal("partial window must not emit")
	}

	// 150 + 100 crosses one boundary; 50 bytes carry into the next window.
	ctx.Device(0).Feed(make([]byte, 100))
	if len(sender.Commands()) != 1 {
		t.Fatalf("expected 1 command, got %d", len(sender.Commands()))
	}

	ctx.Device(0).Feed(make([]byte, 150))
	if len(sender.Commands()) != 2 {
		t.Fatalf("carried bytes lost: expected 2 commands, got %d", len(sender.Commands()))
	}
}

func TestStop_ReleasesAtWindowBoundary(t *testing.T) {
	ctx := NewFakeContext()
	sender := &fakeSender{open: true}
	c := testController(ctx, sender)

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.Stop()

	if !c.Recording() {
		t.Fatal("stop must not release the device before the boundary")
	}

	dev := ctx.Device(0)
	dev.Feed(make([]byte, 200))

	if len(sender.Commands()) != 1 {
		t.Fatalf("final window must still be sent, got %d commands", len(sender.Commands()))
	}

	deadline := time.Now().Add(time.Second)
	for !dev.Stopped() || !dev.Closed() {
		if time.Now().After(deadline) {
			t.Fatal("device was not released after the final window")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.Recording() {
		t.Error("recording must clear once the device is released")
	}
}

func TestToggle_FlipsState(t *testing.T) {
	ctx := NewFakeContext()
	c := testController(ctx, &fakeSender{open: true})

	on, err := c.Toggle()
	if err != nil || !on {
		t.Fatalf("expected toggle on, got %v %v", on, err)
	}
	on, err = c.Toggle()
	if err != nil || on {
		t.Fatalf("expected toggle off, got %v %v", on, err)
	}
	if c.Listening() {
		t.Error("toggle off must clear listening")
	}
}

func TestClose_DiscardsPartialWindow(t *testing.T) {
	ctx := NewFakeContext()
	sender := &fakeSender{open: true}
	c := testController(ctx, sender)

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ctx.Device(0).Feed(make([]byte, 100))
	c.Close()

	if len(sender.Commands()) != 0 {
		t.Error("close must discard the partial window")
	}
	if !ctx.Device(0).Stopped() || !ctx.Device(0).Closed() {
		t.Error("close must release the device")
	}
	if c.Recording() || c.Listening() {
		t.Error("close must clear all state")
	}
}

func TestWindow_DroppedWhenTransportClosed(t *testing.T) {
	ctx := NewFakeContext()
	sender := &fakeSender{open: false}
	c := testController(ctx, sender)

	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	ctx.Device(0).Feed(make([]byte, 200))

	if len(sender.Commands()) != 0 {
		t.Error("chunks must be dropped, not queued, while disconnected")
	}
	if !c.Recording() {
		t.Error("a dropped chunk must not stop capture")
	}
}
