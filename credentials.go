package vncengine

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/rjsadow/vncengine/internal/security"
)

// CredentialKind selects which authentication material Credentials
// carries. The engine picks the security type from what the server
// offers; Credentials only need to supply material for the types that
// might actually be chosen.
type CredentialKind = security.CredentialKind

const (
	CredNone     = security.CredNone
	CredPassword = security.CredPassword
	CredX509     = security.CredX509
)

// Credentials bundles whatever the security negotiator may need: a VNC or
// VeNCrypt-Plain password, and/or an X.509 root store and optional client
// certificate for VeNCrypt's certificate-verified sub-types.
type Credentials struct {
	Kind CredentialKind

	Password []byte
	Username string

	RootCAs    *x509.CertPool
	ClientCert *tls.Certificate
	ServerName string
}

func (c Credentials) toInternal() security.Credentials {
	return security.Credentials{
		Kind:       c.Kind,
		Password:   c.Password,
		Username:   c.Username,
		RootCAs:    c.RootCAs,
		ClientCert: c.ClientCert,
		ServerName: c.ServerName,
	}
}
