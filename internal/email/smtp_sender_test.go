package email

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startSilentSMTP acepta conexiones y nunca envía el saludo.
func startSilentSMTP(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

// startFakeSMTP atiende una única sesión y publica el cuerpo recibido en DATA.
func startFakeSMTP(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		var data string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				_ = tp.PrintfLine("250 localhost")
			case strings.HasPrefix(line, "MAIL FROM"), strings.HasPrefix(line, "RCPT TO"):
				_ = tp.PrintfLine("250 OK")
			case line == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				data = string(body)
				_ = tp.PrintfLine("250 queued")
			case line == "QUIT":
				_ = tp.PrintfLine("221 bye")
				received <- data
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, received
}

func TestSMTPSenderDelivers(t *testing.T) {
	port, received := startFakeSMTP(t)
	s, err := NewSMTPSender("127.0.0.1", port, "", "", "no-reply@app", "App", false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, "a@x.com", "Verify your account", "<p>hi</p>"))

	select {
	case data := <-received:
		require.Contains(t, data, "To: a@x.com")
		require.Contains(t, data, "Subject: Verify your account")
		require.Contains(t, data, "<p>hi</p>")
	case <-time.After(2 * time.Second):
		t.Fatal("expected server to receive the message")
	}
}

func TestSMTPSenderHonoursDeadline(t *testing.T) {
	port := startSilentSMTP(t)
	s, err := NewSMTPSender("127.0.0.1", port, "", "", "no-reply@app", "", false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Send(ctx, "a@x.com", "Hello", "<p>hi</p>")
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPSenderHonoursCancel(t *testing.T) {
	port := startSilentSMTP(t)
	s, err := NewSMTPSender("127.0.0.1", port, "", "", "no-reply@app", "", true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	err = s.Send(ctx, "a@x.com", "Hello", "<p>hi</p>")
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second)
}
