// Package ldap authenticates users with a simple bind against a directory.
package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Binder proves a username/password pair by binding as
// "<userAttr>=<username>,<baseDN>".
type Binder struct {
	url      string
	baseDN   string
	userAttr string
	timeout  time.Duration
}

func NewBinder(url, baseDN, userAttr string, timeout time.Duration) *Binder {
	if userAttr == "" {
		userAttr = "uid"
	}
	return &Binder{url: url, baseDN: baseDN, userAttr: userAttr, timeout: timeout}
}

// BindDN returns the distinguished name bound for username.
func (b *Binder) BindDN(username string) string {
	return fmt.Sprintf("%s=%s,%s", b.userAttr, ldap.EscapeDN(username), b.baseDN)
}

// Bind dials the directory and binds as username. Dial and bind are bounded
// by the configured timeout or the context deadline, whichever is sooner.
// An empty password is rejected locally: the directory would treat it as an
// anonymous bind and report success.
func (b *Binder) Bind(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.New("username and password are required")
	}
	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		until := time.Until(deadline)
		if until <= 0 {
			return context.DeadlineExceeded
		}
		if timeout <= 0 || until < timeout {
			timeout = until
		}
	}

	conn, err := ldap.DialURL(b.url, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return fmt.Errorf("dial directory: %w", err)
	}
	defer conn.Close()
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}

	if err := conn.Bind(b.BindDN(username), password); err != nil {
		return fmt.Errorf("bind %s: %w", b.BindDN(username), err)
	}
	return nil
}
