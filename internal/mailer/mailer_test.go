package mailer

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PicksImplementation(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(&config.Config{}))
	assert.IsType(t, &SMTPMailer{}, New(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587}))
}

func TestSMTPMailer_Build(t *testing.T) {
	m := NewSMTPMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, MailFrom: "no-reply@gigboard.test"})
	msg := m.Build(Message{To: "ada@example.com", Subject: "Hello", HTML: "<p>hi</p>"})

	assert.Equal(t, []string{"no-reply@gigboard.test"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ada@example.com"}, msg.GetHeader("To"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<p>hi</p>")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "x@example.com"}), context.Canceled)
}

func TestSMTPMailer_StalledRelayHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn) // never sends the SMTP greeting
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

	port := ln.Addr().(*net.TCPAddr).Port
	m := NewSMTPMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: port, MailFrom: "no-reply@gigboard.test"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.Send(ctx, Message{To: "x@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLinks_Templates(t *testing.T) {
	links := Links{FrontendURL: "https://gigboard.test/"}
	expert := &models.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
	client := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	service := &models.Service{ID: 12, Title: "Compiler <consulting>"}

	msg, err := links.VerifyEmail(client, "tok123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.HTML, "https://gigboard.test/verify-email/tok123")

	msg, err = links.PasswordReset(client, "reset456")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "/reset-password/reset456")
	assert.Equal(t, TemplatePasswordReset, msg.Template)

	msg, err = links.NewApplication(expert, client, service, "Happy to help")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", msg.To)
	assert.Contains(t, msg.HTML, "Ada Lovelace")
	assert.Contains(t, msg.HTML, "Compiler &lt;consulting&gt;")
	assert.Contains(t, msg.HTML, "/services/12/applications")

	msg, err = links.ApplicationResponse(client, service, models.ApplicationAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, "Your application was accepted", msg.Subject)
	assert.NotContains(t, msg.HTML, "<blockquote>")
}

func TestLogMailer_RecordsMessages(t *testing.T) {
	l := &LogMailer{}
	require.NoError(t, l.Send(context.Background(), Message{To: "a@b.c", Template: TemplateVerifyEmail}))
	require.Len(t, l.Sent(), 1)
	assert.Equal(t, "a@b.c", l.Sent()[0].To)
}
