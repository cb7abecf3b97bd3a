package mail

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/logship/internal/domain"
)

func testMessage() domain.Message {
	return domain.Message{
		ID:      "2f1c7d1e-batch",
		From:    "alerts@example.com",
		To:      []string{"ops@example.com", "oncall@example.com"},
		Subject: "app log report",
		Body:    "WARNING:\n19 Oct 2026 10:04:05 example.com/app\ndisk at 91%\n\n",
		SentAt:  time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC),
	}
}

func TestBuildMessage(t *testing.T) {
	m, err := BuildMessage(testMessage())
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"Subject: app log report",
		"X-Logship-Batch: 2f1c7d1e-batch",
		"<alerts@example.com>",
		"<ops@example.com>",
		"<oncall@example.com>",
		"disk at 91%",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestBuildMessage_InvalidAddresses(t *testing.T) {
	msg := testMessage()
	msg.From = "not an address"
	if _, err := BuildMessage(msg); err == nil {
		t.Error("BuildMessage() accepted invalid from")
	}

	msg = testMessage()
	msg.To = []string{"ops@example.com", "@@"}
	if _, err := BuildMessage(msg); err == nil {
		t.Error("BuildMessage() accepted invalid recipient")
	}
}

func TestSender_SendFailsWithoutRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := New(Config{Host: "127.0.0.1", Port: port, Timeout: time.Second}, nil)
	err = s.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("Send() succeeded with no relay listening")
	}
	if want := fmt.Sprintf("127.0.0.1:%d", port); !strings.Contains(err.Error(), want) {
		t.Errorf("Send() error = %q, want it to name %s", err, want)
	}
}

func TestSender_DialedPort(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"default with tls", Config{Host: "relay.example.com", UseTLS: true}, submissionPort},
		{"default without tls", Config{Host: "relay.example.com"}, plainPort},
		{"explicit", Config{Host: "relay.example.com", Port: 2525}, 2525},
		{"implicit tls", Config{Host: "relay.example.com", Port: sslPort, UseTLS: true}, sslPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, port, err := New(tt.cfg, nil).client()
			if err != nil {
				t.Fatalf("client() error = %v", err)
			}
			if port != tt.want {
				t.Errorf("client() port = %d, want %d", port, tt.want)
			}
		})
	}
}

func TestSender_RequiresHost(t *testing.T) {
	s := New(Config{Port: 25}, nil)
	if err := s.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("Send() succeeded without a host")
	}
}
