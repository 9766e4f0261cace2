package serial

import (
	"errors"
	"testing"

	"go.bug.st/serial/enumerator"
)

type fakeDevice struct {
	reads   [][]byte
	written []byte
	drained int
	calls   []string
	closed  int
	readErr error
}

func (f *fakeDevice) Read(b []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.reads) == 0 {
		return 0, nil
	}
	n := copy(b, f.reads[0])
	f.reads = f.reads[1:]
	return n, nil
}

func (f *fakeDevice) Write(b []byte) (int, error) {
	f.written = append(f.written, b...)
	return len(b), nil
}

func (f *fakeDevice) Close() error             { f.closed++; return nil }
func (f *fakeDevice) Drain() error             { f.drained++; return nil }
func (f *fakeDevice) ResetInputBuffer() error  { f.calls = append(f.calls, "in"); return nil }
func (f *fakeDevice) ResetOutputBuffer() error { f.calls = append(f.calls, "out"); return nil }

func (f *fakeDevice) SetDTR(v bool) error {
	f.calls = append(f.calls, map[bool]string{true: "dtr+", false: "dtr-"}[v])
	return nil
}

func (f *fakeDevice) SetRTS(v bool) error {
	f.calls = append(f.calls, map[bool]string{true: "rts+", false: "rts-"}[v])
	return nil
}

func TestPortReadTimeout(t *testing.T) {
	p := newPort(&fakeDevice{reads: [][]byte{[]byte("boot\n")}}, "/dev/ttyUSB0")
	buf := make([]byte, 16)

	n, err := p.Read(buf)
	if err != nil || string(buf[:n]) != "boot\n" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	if _, err := p.Read(buf); !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("Read after data: err = %v, want ErrReadTimeout", err)
	}
}

func TestPortReadErrorWrapped(t *testing.T) {
	cause := errors.New("device disconnected")
	p := newPort(&fakeDevice{readErr: cause}, "/dev/ttyUSB0")
	_, err := p.Read(make([]byte, 4))
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped %v", err, cause)
	}
}

func TestPortWriteDrains(t *testing.T) {
	dev := &fakeDevice{}
	p := newPort(dev, "/dev/ttyUSB0")
	if _, err := p.Write([]byte("GET TEST\n")); err != nil {
		t.Fatal(err)
	}
	if string(dev.written) != "GET TEST\n" || dev.drained != 1 {
		t.Fatalf("written %q, drained %d", dev.written, dev.drained)
	}
}

func TestPortClearAndReset(t *testing.T) {
	dev := &fakeDevice{}
	p := newPort(dev, "/dev/ttyUSB0")
	if err := p.ClearBuffers(); err != nil {
		t.Fatal(err)
	}
	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	want := []string{"in", "out", "dtr-", "rts+", "rts-"}
	if len(dev.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", dev.calls, want)
	}
	for i := range want {
		if dev.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", dev.calls, want)
		}
	}
}

func TestPortCloseOnce(t *testing.T) {
	dev := &fakeDevice{}
	p := newPort(dev, "/dev/ttyUSB0")
	p.Close()
	p.Close()
	if dev.closed != 1 {
		t.Fatalf("closed %d times", dev.closed)
	}
}

func TestPortInfoMatches(t *testing.T) {
	tests := []struct {
		info PortInfo
		want bool
	}{
		{PortInfo{IsUSB: true, VID: "1a86", PID: "7523"}, true},
		{PortInfo{IsUSB: true, VID: "1A86", PID: "7523"}, true},
		{PortInfo{IsUSB: true, VID: "0x1a86", PID: "0x7523"}, true},
		{PortInfo{IsUSB: true, VID: "10c4", PID: "ea60"}, false},
		{PortInfo{IsUSB: false, VID: "1a86", PID: "7523"}, false},
		{PortInfo{IsUSB: true, VID: "", PID: ""}, false},
	}
	for _, tt := range tests {
		if got := tt.info.Matches(0x1a86, 0x7523); got != tt.want {
			t.Errorf("%+v.Matches = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestPresence(t *testing.T) {
	orig := detailedPorts
	defer func() { detailedPorts = orig }()

	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523"},
		}, nil
	}
	if !(Presence{}).IsPresent(0x1a86, 0x7523) {
		t.Error("expected device to be present")
	}
	if (Presence{}).IsPresent(0x10c4, 0xea60) {
		t.Error("unexpected device reported present")
	}

	detailedPorts = func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("udev unavailable")
	}
	if (Presence{}).IsPresent(0x1a86, 0x7523) {
		t.Error("enumeration error should count as absent")
	}
}
