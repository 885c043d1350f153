package ldap

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory answers simple binds: the DN/password pairs in accounts
// succeed, everything else gets invalidCredentials.
func fakeDirectory(t *testing.T, accounts map[string]string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveBinds(conn, accounts)
		}
	}()
	return "ldap://" + ln.Addr().String()
}

func serveBinds(conn net.Conn, accounts map[string]string) {
	defer conn.Close()
	for {
		packet, err := ber.ReadPacket(conn)
		if err != nil || len(packet.Children) < 2 {
			return
		}
		msgID := packet.Children[0].Value
		op := packet.Children[1]
		if op.Tag != ldap.ApplicationBindRequest || len(op.Children) < 3 {
			return
		}
		dn, _ := op.Children[1].Value.(string)
		password := op.Children[2].Data.String()

		code := int64(ldap.LDAPResultInvalidCredentials)
		if want, ok := accounts[dn]; ok && want == password {
			code = ldap.LDAPResultSuccess
		}

		envelope := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAP Response")
		envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, msgID, "MessageID"))
		resp := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ldap.ApplicationBindResponse, nil, "Bind Response")
		resp.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, code, "resultCode"))
		resp.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
		resp.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "diagnosticMessage"))
		envelope.AppendChild(resp)
		if _, err := conn.Write(envelope.Bytes()); err != nil {
			return
		}
	}
}

func TestBindDN_EscapesUsername(t *testing.T) {
	b := NewBinder("ldap://localhost", "ou=people,dc=example,dc=org", "", time.Second)
	assert.Equal(t, `uid=alice,ou=people,dc=example,dc=org`, b.BindDN("alice"))
	assert.Equal(t, `uid=a\,b\=c,ou=people,dc=example,dc=org`, b.BindDN("a,b=c"))
}

func TestBind_Success(t *testing.T) {
	url := fakeDirectory(t, map[string]string{"uid=alice,dc=example,dc=org": "s3cret"})
	b := NewBinder(url, "dc=example,dc=org", "uid", 2*time.Second)

	assert.NoError(t, b.Bind(context.Background(), "alice", "s3cret"))
}

func TestBind_WrongPassword(t *testing.T) {
	url := fakeDirectory(t, map[string]string{"uid=alice,dc=example,dc=org": "s3cret"})
	b := NewBinder(url, "dc=example,dc=org", "uid", 2*time.Second)

	err := b.Bind(context.Background(), "alice", "wrong")
	require.Error(t, err)
	var lerr *ldap.Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, uint16(ldap.LDAPResultInvalidCredentials), lerr.ResultCode)
}

func TestBind_EmptyPasswordNeverSent(t *testing.T) {
	b := NewBinder("ldap://127.0.0.1:1", "dc=example,dc=org", "uid", time.Second)
	assert.Error(t, b.Bind(context.Background(), "alice", ""))
}

func TestBind_TimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-done
		_ = conn.Close()
	}()

	b := NewBinder("ldap://"+ln.Addr().String(), "dc=example,dc=org", "uid", 200*time.Millisecond)
	start := time.Now()
	assert.Error(t, b.Bind(context.Background(), "alice", "pw"))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBind_ExpiredContext(t *testing.T) {
	b := NewBinder("ldap://127.0.0.1:1", "dc=example,dc=org", "uid", time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	assert.ErrorIs(t, b.Bind(ctx, "alice", "pw"), context.DeadlineExceeded)
}
