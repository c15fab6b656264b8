package proxy

import (
	"crypto/x509"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCA(t *testing.T, opts ...CAManagerOption) *CAManager {
	t.Helper()
	dir := t.TempDir()
	ca := NewCAManager(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"), opts...)
	require.NoError(t, ca.EnsureCA())
	return ca
}

func TestCAManagerGenerateAndLoad(t *testing.T) {
	ca := newTestCA(t)
	assert.True(t, ca.Exists())

	info, err := ca.CertInfo()
	require.NoError(t, err)
	assert.Equal(t, DefaultCAOrganization, info.Organization)
	assert.Len(t, info.Fingerprint, 32*3-1)
	assert.True(t, info.NotAfter.After(time.Now().AddDate(9, 0, 0)))

	// A second manager on the same files loads instead of generating.
	again := NewCAManager(ca.CertPath(), ca.KeyPath())
	require.NoError(t, again.EnsureCA())
	info2, err := again.CertInfo()
	require.NoError(t, err)
	assert.Equal(t, info.Fingerprint, info2.Fingerprint)

	pemBytes, err := again.CACertPEM()
	require.NoError(t, err)
	assert.Contains(t, string(pemBytes), "BEGIN CERTIFICATE")
}

func TestCAManagerNotLoaded(t *testing.T) {
	dir := t.TempDir()
	ca := NewCAManager(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	assert.False(t, ca.Exists())

	_, err := ca.GenerateHostCert("example.com")
	assert.ErrorIs(t, err, ErrCANotLoaded)
	_, err = ca.CACertPEM()
	assert.ErrorIs(t, err, ErrCANotLoaded)
	assert.Error(t, ca.Load())
}

func TestCAManagerGenerateHostCert(t *testing.T) {
	ca := newTestCA(t, WithCertCacheSize(3))

	hosts := []string{"example.com", "test.com", "api.example.com", "web.example.com"}
	for _, host := range hosts {
		pair, err := ca.GenerateHostCert(host)
		require.NoError(t, err, host)
		assert.Equal(t, host, pair.Cert.Subject.CommonName)
		assert.Equal(t, []string{host}, pair.Cert.DNSNames)
	}

	// Capacity is 3, so the oldest host was evicted.
	assert.Equal(t, 3, ca.CachedHosts())

	pair1, err := ca.GenerateHostCert("web.example.com")
	require.NoError(t, err)
	pair2, err := ca.GenerateHostCert("WEB.example.com")
	require.NoError(t, err)
	assert.Same(t, pair1, pair2)
}

func TestCAManagerHostCertVerifies(t *testing.T) {
	ca := newTestCA(t)

	pemBytes, err := ca.CACertPEM()
	require.NoError(t, err)
	roots := x509.NewCertPool()
	require.True(t, roots.AppendCertsFromPEM(pemBytes))

	pair, err := ca.GenerateHostCert("api.example.com")
	require.NoError(t, err)
	_, err = pair.Cert.Verify(x509.VerifyOptions{DNSName: "api.example.com", Roots: roots})
	assert.NoError(t, err)

	ipPair, err := ca.GenerateHostCert("127.0.0.1")
	require.NoError(t, err)
	require.Len(t, ipPair.Cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", ipPair.Cert.IPAddresses[0].String())

	tlsCert := pair.TLSCertificate()
	assert.Same(t, pair.Cert, tlsCert.Leaf)
}

func TestCAManagerCacheTTL(t *testing.T) {
	ca := newTestCA(t, WithCertCacheTTL(20*time.Millisecond))

	first, err := ca.GenerateHostCert("example.com")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	second, err := ca.GenerateHostCert("example.com")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
