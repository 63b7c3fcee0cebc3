package wirehttp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func generateSelfSignedCert(t *testing.T, commonName string, dnsNames ...string) *x509.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		DNSNames:     dnsNames,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

// connState builds a minimal tls.ConnectionState as crypto/tls would hand to
// VerifyConnection, for exercising SecurityPolicy's hook directly.
func connState(serverName string, certs ...*x509.Certificate) tls.ConnectionState {
	return tls.ConnectionState{ServerName: serverName, PeerCertificates: certs}
}

func TestSecurityPolicyTLSConfigSystemDefaultIsNil(t *testing.T) {
	p := DefaultSecurityPolicy()
	require.Nil(t, p.tlsConfig())
}

func TestSecurityPolicyAutoAcceptSelfSigned(t *testing.T) {
	cert := generateSelfSignedCert(t, "self-signed.example.com")
	p := SecurityPolicy{Mode: TrustAutoAcceptSelfSigned}
	cfg := p.tlsConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.VerifyConnection(connState("", cert)))
}

func TestSecurityPolicyCredentialsCallback(t *testing.T) {
	cert := generateSelfSignedCert(t, "callback.example.com")

	accepted := SecurityPolicy{
		Mode:     TrustCredentialsCallback,
		Callback: func(chain []*x509.Certificate) bool { return len(chain) == 1 && chain[0].Subject.CommonName == "callback.example.com" },
	}
	require.NoError(t, accepted.tlsConfig().VerifyConnection(connState("", cert)))

	rejected := SecurityPolicy{
		Mode:     TrustCredentialsCallback,
		Callback: func(chain []*x509.Certificate) bool { return false },
	}
	require.Error(t, rejected.tlsConfig().VerifyConnection(connState("", cert)))
}

func TestSecurityPolicyCertificatePinning(t *testing.T) {
	pinned := generateSelfSignedCert(t, "pinned.example.com")
	other := generateSelfSignedCert(t, "other.example.com")

	p := SecurityPolicy{Mode: TrustCertificatePinning, PinnedCertDER: [][]byte{pinned.Raw}}

	require.NoError(t, p.tlsConfig().VerifyConnection(connState("", pinned)))
	require.Error(t, p.tlsConfig().VerifyConnection(connState("", other)))
}

func TestSecurityPolicyPublicKeyPinning(t *testing.T) {
	cert := generateSelfSignedCert(t, "pubkey.example.com")
	digest, err := pinPublicKeySHA256(cert)
	require.NoError(t, err)
	require.Len(t, digest, sha256.Size)

	p := SecurityPolicy{Mode: TrustPublicKeyPinning, PinnedPublicKeySHA: [][32]byte{digest}}
	require.NoError(t, p.tlsConfig().VerifyConnection(connState("", cert)))

	other := generateSelfSignedCert(t, "other.example.com")
	require.Error(t, p.tlsConfig().VerifyConnection(connState("", other)))
}

func TestSecurityPolicyValidatedDomainNameRejectsMismatchedServerName(t *testing.T) {
	cert := generateSelfSignedCert(t, "pinned.example.com", "pinned.example.com")

	p := SecurityPolicy{
		Mode:                TrustCertificatePinning,
		PinnedCertDER:       [][]byte{cert.Raw},
		ValidatedDomainName: true,
	}
	cfg := p.tlsConfig()

	require.NoError(t, cfg.VerifyConnection(connState("pinned.example.com", cert)))
	require.Error(t, cfg.VerifyConnection(connState("evil.example.com", cert)))
}

func TestSecurityPolicyValidatedDomainNameFalseSkipsHostnameCheck(t *testing.T) {
	cert := generateSelfSignedCert(t, "pinned.example.com", "pinned.example.com")

	p := SecurityPolicy{
		Mode:                TrustCertificatePinning,
		PinnedCertDER:       [][]byte{cert.Raw},
		ValidatedDomainName: false,
	}
	cfg := p.tlsConfig()

	require.NoError(t, cfg.VerifyConnection(connState("evil.example.com", cert)))
}
