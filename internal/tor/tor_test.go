package tor

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

// fakeControlPort accepts one connection and replies to each command line.
// authOK controls whether AUTHENTICATE is accepted.
func fakeControlPort(t *testing.T, authOK bool) (addr string, received *[]string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	var lines []string
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			lines = append(lines, line)
			switch {
			case strings.HasPrefix(line, "AUTHENTICATE"):
				if authOK {
					conn.Write([]byte("250 OK\r\n"))
				} else {
					conn.Write([]byte("515 Authentication failed\r\n"))
					return
				}
			case line == "QUIT":
				conn.Write([]byte("250 closing connection\r\n"))
				return
			default:
				conn.Write([]byte("250 OK\r\n"))
			}
		}
	}()

	return ln.Addr().String(), &lines
}

func TestController_NewCircuit(t *testing.T) {
	addr, received := fakeControlPort(t, true)

	ctrl := NewController(addr, "secret", WithSettleDelay(10*time.Millisecond))
	if err := ctrl.NewCircuit(context.Background()); err != nil {
		t.Fatalf("NewCircuit failed: %v", err)
	}

	got := *received
	if len(got) < 2 {
		t.Fatalf("Expected at least 2 control commands, got %v", got)
	}
	if !strings.HasPrefix(got[0], "AUTHENTICATE") {
		t.Errorf("First command = %q, want AUTHENTICATE", got[0])
	}
	if got[1] != "SIGNAL NEWNYM" {
		t.Errorf("Second command = %q, want SIGNAL NEWNYM", got[1])
	}
}

func TestController_NewCircuit_AuthFailure(t *testing.T) {
	addr, _ := fakeControlPort(t, false)

	ctrl := NewController(addr, "wrong", WithSettleDelay(time.Millisecond))
	if err := ctrl.NewCircuit(context.Background()); err == nil {
		t.Error("NewCircuit succeeded with rejected authentication, want error")
	}
}

func TestController_NewCircuit_Unreachable(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctrl := NewController(addr, "", WithSettleDelay(time.Millisecond))
	if err := ctrl.NewCircuit(context.Background()); err == nil {
		t.Error("NewCircuit succeeded against closed port, want error")
	}
}

func TestController_NewCircuit_ContextCancelledDuringSettle(t *testing.T) {
	addr, _ := fakeControlPort(t, true)

	ctrl := NewController(addr, "", WithSettleDelay(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ctrl.NewCircuit(ctx)
	if err == nil {
		t.Error("NewCircuit completed despite cancelled settle wait, want error")
	}
}

func TestDialer_InvalidAddress(t *testing.T) {
	if _, err := Dialer("not-an-address"); err == nil {
		t.Error("Dialer accepted invalid address, want error")
	}
}

func TestNewHTTPClient(t *testing.T) {
	client, err := NewHTTPClient(DefaultSocksAddr, 30*time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	if client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.Timeout)
	}
}
