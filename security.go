package wirehttp

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// TrustMode selects how the transport adapter evaluates a server's TLS
// certificate chain (spec §6 "TLS trust policies").
type TrustMode int

const (
	// TrustSystemDefault defers to Go's standard certificate verification.
	TrustSystemDefault TrustMode = iota
	// TrustAutoAcceptSelfSigned accepts any certificate without validation.
	TrustAutoAcceptSelfSigned
	// TrustCredentialsCallback defers the accept/reject decision to a
	// caller-supplied callback inspecting the offered chain.
	TrustCredentialsCallback
	// TrustCertificatePinning accepts only certificates whose raw DER bytes
	// match one of a fixed set.
	TrustCertificatePinning
	// TrustPublicKeyPinning accepts only certificates whose
	// SubjectPublicKeyInfo matches one of a fixed set of pinned digests.
	TrustPublicKeyPinning
)

// CredentialsCallback inspects an offered certificate chain and decides
// whether to trust it.
type CredentialsCallback func(chain []*x509.Certificate) bool

// SecurityPolicy is the TLS trust configuration applied to a client or an
// individual request override (spec §6). ValidatedDomainName, when true
// (the default), binds a pin or callback decision to the connection's
// server name; when false the policy applies regardless of which host
// presented the certificate.
type SecurityPolicy struct {
	Mode                TrustMode
	Callback            CredentialsCallback
	PinnedCertDER       [][]byte
	PinnedPublicKeySHA  [][32]byte
	ValidatedDomainName bool
}

// DefaultSecurityPolicy returns the system-default trust policy.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{Mode: TrustSystemDefault, ValidatedDomainName: true}
}

// pinPublicKeySHA256 computes the SHA-256 digest of a certificate's
// marshaled SubjectPublicKeyInfo, the quantity compared under
// TrustPublicKeyPinning.
func pinPublicKeySHA256(cert *x509.Certificate) ([32]byte, error) {
	spki, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return [32]byte{}, fmt.Errorf("marshal public key: %w", err)
	}
	return sha256.Sum256(spki), nil
}

// verifyChain decides whether chain (the certificates the server offered,
// leaf first) satisfies policy, independent of hostname binding.
func (p SecurityPolicy) verifyChain(chain []*x509.Certificate) error {
	switch p.Mode {
	case TrustAutoAcceptSelfSigned:
		return nil

	case TrustCredentialsCallback:
		if p.Callback != nil && p.Callback(chain) {
			return nil
		}
		return fmt.Errorf("wirehttp: credentials callback rejected server certificate")

	case TrustCertificatePinning:
		for _, cert := range chain {
			for _, pinned := range p.PinnedCertDER {
				if bytesEqual(cert.Raw, pinned) {
					return nil
				}
			}
		}
		return fmt.Errorf("wirehttp: server certificate matched no pinned certificate")

	case TrustPublicKeyPinning:
		for _, cert := range chain {
			digest, err := pinPublicKeySHA256(cert)
			if err != nil {
				continue
			}
			for _, pinned := range p.PinnedPublicKeySHA {
				if digest == pinned {
					return nil
				}
			}
		}
		return fmt.Errorf("wirehttp: server public key matched no pinned key")

	default:
		return nil
	}
}

// verifyConnection builds the tls.Config.VerifyConnection hook implementing
// policy. Unlike VerifyPeerCertificate, VerifyConnection is handed the
// negotiated ConnectionState, giving ValidatedDomainName something to bind
// against: the server name the handshake was made under. It is only
// consulted when Mode is not TrustSystemDefault.
func (p SecurityPolicy) verifyConnection() func(cs tls.ConnectionState) error {
	if p.Mode == TrustSystemDefault {
		return nil
	}
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return fmt.Errorf("wirehttp: server presented no certificate")
		}
		if err := p.verifyChain(cs.PeerCertificates); err != nil {
			return err
		}
		if p.ValidatedDomainName && cs.ServerName != "" {
			if err := cs.PeerCertificates[0].VerifyHostname(cs.ServerName); err != nil {
				return fmt.Errorf("wirehttp: certificate not valid for %s: %w", cs.ServerName, err)
			}
		}
		return nil
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// tlsConfig builds the *tls.Config to use for a connection under policy.
// Mode TrustSystemDefault returns nil, letting the transport use its own
// default configuration.
func (p SecurityPolicy) tlsConfig() *tls.Config {
	if p.Mode == TrustSystemDefault {
		return nil
	}
	cfg := &tls.Config{
		InsecureSkipVerify: true, // custom VerifyConnection replaces default verification
	}
	cfg.VerifyConnection = p.verifyConnection()
	return cfg
}
