package proxy

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultCAOrganization is the organization name for generated certificates.
	DefaultCAOrganization = "Pretender Local CA"
	// DefaultCAValidityDays is the default validity period for CA certificates.
	DefaultCAValidityDays = 3650 // 10 years
	// DefaultHostValidityDays is the validity period for per-host certificates.
	DefaultHostValidityDays = 365
	// DefaultKeyBits is the default RSA key size.
	DefaultKeyBits = 2048
	// DefaultCertCacheSize is the default maximum number of certificates to cache.
	DefaultCertCacheSize = 1000
	// DefaultCertCacheTTL is how long an unused host certificate stays cached.
	DefaultCertCacheTTL = 24 * time.Hour
)

// ErrCANotLoaded is returned when signing is attempted before Load or Generate.
var ErrCANotLoaded = errors.New("CA certificate not loaded")

// CAManager handles CA certificate generation and per-host certificate signing.
type CAManager struct {
	mu sync.RWMutex

	caCert    *x509.Certificate
	caKey     *rsa.PrivateKey
	certPath  string
	keyPath   string
	cacheSize int
	cacheTTL  time.Duration
	certCache *ttlcache.Cache[string, *CertPair]
}

// CertPair holds a certificate and its private key.
type CertPair struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// TLSCertificate converts the pair for use in a tls.Config.
func (p *CertPair) TLSCertificate() *tls.Certificate {
	return &tls.Certificate{
		Certificate: [][]byte{p.Cert.Raw},
		PrivateKey:  p.Key,
		Leaf:        p.Cert,
	}
}

// CAManagerOption is a functional option for configuring CAManager.
type CAManagerOption func(*CAManager)

// WithCertCacheSize sets the maximum number of certificates to cache.
func WithCertCacheSize(size int) CAManagerOption {
	return func(m *CAManager) {
		if size > 0 {
			m.cacheSize = size
		}
	}
}

// WithCertCacheTTL sets how long a host certificate is kept without use.
func WithCertCacheTTL(ttl time.Duration) CAManagerOption {
	return func(m *CAManager) {
		if ttl > 0 {
			m.cacheTTL = ttl
		}
	}
}

// NewCAManager creates a new CA manager with the given paths.
func NewCAManager(certPath, keyPath string, opts ...CAManagerOption) *CAManager {
	m := &CAManager{
		certPath:  certPath,
		keyPath:   keyPath,
		cacheSize: DefaultCertCacheSize,
		cacheTTL:  DefaultCertCacheTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.certCache = ttlcache.New[string, *CertPair](
		ttlcache.WithCapacity[string, *CertPair](uint64(m.cacheSize)),
		ttlcache.WithTTL[string, *CertPair](m.cacheTTL),
	)
	return m
}

// CertPath returns the path to the CA certificate file.
func (m *CAManager) CertPath() string {
	return m.certPath
}

// KeyPath returns the path to the CA private key file.
func (m *CAManager) KeyPath() string {
	return m.keyPath
}

// Exists checks if the CA certificate and key exist on disk.
func (m *CAManager) Exists() bool {
	_, certErr := os.Stat(m.certPath)
	_, keyErr := os.Stat(m.keyPath)
	return certErr == nil && keyErr == nil
}

// Generate creates a new self-signed CA certificate and private key and
// writes both to disk.
func (m *CAManager) Generate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := rsa.GenerateKey(rand.Reader, DefaultKeyBits)
	if err != nil {
		return err
	}
	serialNumber, err := newSerial()
	if err != nil {
		return err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{DefaultCAOrganization},
			CommonName:   DefaultCAOrganization,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(0, 0, DefaultCAValidityDays),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return err
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.certPath), 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.keyPath), 0o700); err != nil {
		return err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(m.certPath, certPEM, 0o644); err != nil { //nolint:gosec // public certificate
		return err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(m.keyPath, keyPEM, 0o600); err != nil {
		return err
	}

	m.caCert = cert
	m.caKey = key
	m.certCache.DeleteAll()
	return nil
}

// Load reads the CA certificate and key from disk.
func (m *CAManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	certPEM, err := os.ReadFile(m.certPath)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return fmt.Errorf("%s: no PEM certificate", m.certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return err
	}

	keyPEM, err := os.ReadFile(m.keyPath)
	if err != nil {
		return err
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return fmt.Errorf("%s: no PEM key", m.keyPath)
	}
	key, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return fmt.Errorf("%s: %w", m.keyPath, err)
	}

	m.caCert = cert
	m.caKey = key
	m.certCache.DeleteAll()
	return nil
}

func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported key type %T", parsed)
	}
	return key, nil
}

// EnsureCA loads existing CA or generates a new one.
func (m *CAManager) EnsureCA() error {
	if m.Exists() {
		return m.Load()
	}
	return m.Generate()
}

// GenerateHostCert returns a certificate for host signed by the CA, reusing
// a cached one when available. IP literals get an IP SAN.
func (m *CAManager) GenerateHostCert(host string) (*CertPair, error) {
	host = strings.ToLower(host)
	if item := m.certCache.Get(host); item != nil {
		return item.Value(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.certCache.Get(host); item != nil {
		return item.Value(), nil
	}
	if m.caCert == nil || m.caKey == nil {
		return nil, ErrCANotLoaded
	}

	key, err := rsa.GenerateKey(rand.Reader, DefaultKeyBits)
	if err != nil {
		return nil, err
	}
	serialNumber, err := newSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: host,
		},
		NotBefore:   now.Add(-time.Hour),
		NotAfter:    now.AddDate(0, 0, DefaultHostValidityDays),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, m.caCert, &key.PublicKey, m.caKey)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, err
	}

	pair := &CertPair{Cert: cert, Key: key}
	m.certCache.Set(host, pair, ttlcache.DefaultTTL)
	return pair, nil
}

// CachedHosts returns the number of host certificates currently cached.
func (m *CAManager) CachedHosts() int {
	return m.certCache.Len()
}

// CACertPEM returns the CA certificate in PEM format.
func (m *CAManager) CACertPEM() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.caCert == nil {
		return nil, ErrCANotLoaded
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: m.caCert.Raw,
	}), nil
}

// CertInfo holds certificate information.
type CertInfo struct {
	Fingerprint  string
	NotAfter     time.Time
	Organization string
}

// CertInfo returns information about the CA certificate. The fingerprint
// is the colon separated SHA-256 of the DER bytes.
func (m *CAManager) CertInfo() (*CertInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.caCert == nil {
		return nil, ErrCANotLoaded
	}

	org := ""
	if len(m.caCert.Subject.Organization) > 0 {
		org = m.caCert.Subject.Organization[0]
	}

	sum := sha256.Sum256(m.caCert.Raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = hex.EncodeToString([]byte{b})
	}

	return &CertInfo{
		Fingerprint:  strings.ToUpper(strings.Join(parts, ":")),
		NotAfter:     m.caCert.NotAfter,
		Organization: org,
	}, nil
}

func newSerial() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
}
