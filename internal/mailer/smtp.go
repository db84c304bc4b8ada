package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

const (
	// DefaultPoolSize bounds concurrent relay connections; callers queue
	// behind the pool when all connections are busy.
	DefaultPoolSize = 5
	// DefaultMaxMessagesPerConnection is how many deliveries a connection
	// handles before it is retired and lazily replaced.
	DefaultMaxMessagesPerConnection = 100

	defaultDialTimeout = 30 * time.Second
)

// SMTPConfig configures the pooled SMTP transport.
type SMTPConfig struct {
	Host                     string
	Port                     int
	Username                 string
	Password                 string
	PoolSize                 int
	MaxMessagesPerConnection int
	DialTimeout              time.Duration
	InsecureSkipVerify       bool
}

// SMTPMailer delivers messages over a bounded pool of persistent SMTP
// connections. A connection is exclusively borrowed by one in-flight
// delivery at a time; it is retired after MaxMessagesPerConnection
// deliveries or on a transport-level failure.
type SMTPMailer struct {
	cfg   SMTPConfig
	slots chan struct{} // capacity tokens; one per allowed connection

	mu     sync.Mutex
	idle   []*smtpConn
	open   int
	closed bool
}

type smtpConn struct {
	client *smtp.Client
	sent   int
}

// NewSMTPMailer creates the pooled transport. No connection is opened
// until the first delivery.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.MaxMessagesPerConnection <= 0 {
		cfg.MaxMessagesPerConnection = DefaultMaxMessagesPerConnection
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	slots := make(chan struct{}, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		slots <- struct{}{}
	}

	logger.Info("smtp pool initialized",
		"host", cfg.Host,
		"port", cfg.Port,
		"poolSize", cfg.PoolSize,
		"maxMessagesPerConnection", cfg.MaxMessagesPerConnection)

	return &SMTPMailer{cfg: cfg, slots: slots}
}

// Deliver sends one message through a pooled connection and returns a
// receipt with the gateway-assigned message ID and the relay's final
// response line. Failures are reported as *TransportError and are never
// retried here.
func (m *SMTPMailer) Deliver(ctx context.Context, msg *Message) (*Receipt, error) {
	if len(msg.To) == 0 {
		return nil, &TransportError{Op: "deliver", Reason: "message has no recipients"}
	}

	conn, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), m.cfg.Host)
	resp, err := conn.submit(msg.From, msg.To, buildMIME(msg, messageID))
	if err != nil {
		var proto *textproto.Error
		if errors.As(err, &proto) && conn.client.Reset() == nil {
			// Relay refused the message but the session survives; keep the
			// connection after RSET.
			m.release(conn)
		} else {
			m.discard(conn)
		}
		logger.Warn("relay rejected delivery", "to", strings.Join(msg.To, ","), "error", err.Error())
		return nil, &TransportError{Op: "deliver", Reason: err.Error()}
	}

	conn.sent++
	m.release(conn)
	logger.Debug("message delivered", "messageID", messageID, "response", resp)
	return &Receipt{MessageID: messageID, Response: resp}, nil
}

// HealthCheck borrows a connection and runs NOOP. It dials a fresh
// connection when the pool is empty, so it exercises the full handshake
// without sending a message.
func (m *SMTPMailer) HealthCheck(ctx context.Context) error {
	conn, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	if err := conn.client.Noop(); err != nil {
		m.discard(conn)
		return &TransportError{Op: "healthcheck", Reason: err.Error()}
	}
	m.release(conn)
	return nil
}

// OpenConnections reports currently open relay connections.
func (m *SMTPMailer) OpenConnections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// MaxConnections reports the configured pool bound.
func (m *SMTPMailer) MaxConnections() int {
	return m.cfg.PoolSize
}

// Close quits all idle connections and stops the pool from handing out
// new ones. In-flight deliveries complete and their connections are
// closed on release.
func (m *SMTPMailer) Close() {
	m.mu.Lock()
	m.closed = true
	idle := m.idle
	m.idle = nil
	m.open -= len(idle)
	m.mu.Unlock()

	for _, c := range idle {
		c.close()
	}
	logger.Info("smtp pool closed")
}

// acquire returns an exclusive connection, dialing a new one when the
// pool is below capacity. It blocks while all connections are busy until
// one is released or ctx is done.
func (m *SMTPMailer) acquire(ctx context.Context) (*smtpConn, error) {
	select {
	case <-m.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.slots <- struct{}{}
		return nil, &TransportError{Op: "connect", Reason: "mailer is shut down"}
	}
	if n := len(m.idle); n > 0 {
		conn := m.idle[n-1]
		m.idle = m.idle[:n-1]
		m.mu.Unlock()
		return conn, nil
	}
	m.open++
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.mu.Lock()
		m.open--
		m.mu.Unlock()
		m.slots <- struct{}{}
		return nil, err
	}
	return conn, nil
}

// release returns a healthy connection to the pool, retiring it once it
// has delivered its per-connection quota.
func (m *SMTPMailer) release(conn *smtpConn) {
	if conn.sent >= m.cfg.MaxMessagesPerConnection {
		logger.Debug("retiring relay connection", "delivered", conn.sent)
		m.discard(conn)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.open--
		m.mu.Unlock()
		conn.close()
		m.slots <- struct{}{}
		return
	}
	m.idle = append(m.idle, conn)
	m.mu.Unlock()
	m.slots <- struct{}{}
}

// discard drops a connection without pooling it. The freed capacity lets
// a later acquire dial a replacement.
func (m *SMTPMailer) discard(conn *smtpConn) {
	conn.close()
	m.mu.Lock()
	m.open--
	m.mu.Unlock()
	m.slots <- struct{}{}
}

func (m *SMTPMailer) dial() (*smtpConn, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	nc, err := net.DialTimeout("tcp", addr, m.cfg.DialTimeout)
	if err != nil {
		return nil, &TransportError{Op: "connect", Reason: err.Error()}
	}
	client, err := smtp.NewClient(nc, m.cfg.Host)
	if err != nil {
		nc.Close()
		return nil, &TransportError{Op: "connect", Reason: err.Error()}
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: m.cfg.Host, InsecureSkipVerify: m.cfg.InsecureSkipVerify}
		if err := client.StartTLS(tlsCfg); err != nil {
			client.Close()
			return nil, &TransportError{Op: "connect", Reason: err.Error()}
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, &TransportError{Op: "auth", Reason: err.Error()}
		}
	}
	return &smtpConn{client: client}, nil
}

// submit runs one MAIL/RCPT/DATA cycle. The DATA dialogue goes through
// the client's textproto conn directly because net/smtp discards the
// relay's final response line, which the delivery receipt needs.
func (c *smtpConn) submit(from string, to []string, raw []byte) (string, error) {
	if err := c.client.Mail(from); err != nil {
		return "", err
	}
	for _, rcpt := range to {
		if err := c.client.Rcpt(rcpt); err != nil {
			return "", err
		}
	}

	id, err := c.client.Text.Cmd("DATA")
	if err != nil {
		return "", err
	}
	c.client.Text.StartResponse(id)
	_, _, err = c.client.Text.ReadResponse(354)
	c.client.Text.EndResponse(id)
	if err != nil {
		return "", err
	}

	dw := c.client.Text.DotWriter()
	if _, err := dw.Write(raw); err != nil {
		_ = dw.Close()
		return "", err
	}
	if err := dw.Close(); err != nil {
		return "", err
	}

	code, line, err := c.client.Text.ReadResponse(250)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return fmt.Sprintf("%d %s", code, line), nil
}

func (c *smtpConn) close() {
	if err := c.client.Quit(); err != nil {
		_ = c.client.Close()
	}
}
