package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caddyserver/certmagic"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
)

func TestEnsureTLSCertCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "certs", "pterodash.crt")
	keyPath := filepath.Join(dir, "keys", "pterodash.key")

	if err := ensureTLSCert(certPath, keyPath, zap.NewNop()); err != nil {
		t.Fatalf("ensureTLSCert: %v", err)
	}

	if _, err := os.Stat(certPath); err != nil {
		t.Fatalf("expected cert file, got %v", err)
	}
	if _, err := os.Stat(keyPath); err != nil {
		t.Fatalf("expected key file, got %v", err)
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("expected usable key pair: %v", err)
	}

	before, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	if err := ensureTLSCert(certPath, keyPath, zap.NewNop()); err != nil {
		t.Fatalf("ensureTLSCert again: %v", err)
	}
	after, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("expected existing certificate to be kept")
	}
}

func TestCertmagicTLSConfigRequiresDomains(t *testing.T) {
	restoreCertmagicDefaults(t)
	cfg, err := certmagicTLSConfig(config.ACMEConfig{Enabled: true})
	if err == nil {
		t.Fatalf("expected error for missing domains")
	}
	if cfg != nil {
		t.Fatalf("expected nil tls config")
	}
}

func TestCertmagicTLSConfigCARootError(t *testing.T) {
	restoreCertmagicDefaults(t)
	cfg, err := certmagicTLSConfig(config.ACMEConfig{
		Enabled: true,
		Domains: []string{"example.com"},
		CARoot:  filepath.Join(t.TempDir(), "missing.pem"),
	})
	if err == nil {
		t.Fatalf("expected error for missing CA root")
	}
	if cfg != nil {
		t.Fatalf("expected nil tls config")
	}
}

func TestCertmagicTLSConfigAppliesSettings(t *testing.T) {
	restoreCertmagicDefaults(t)
	certDir := t.TempDir()
	certPath := filepath.Join(certDir, "root.pem")
	keyPath := filepath.Join(certDir, "root.key")
	caCert, caKey := writeTestCA(t, certPath, keyPath)

	storagePath := filepath.Join(t.TempDir(), "certmagic")

	origTLS := certmagicTLS
	certmagicTLS = func(domains []string) (*tls.Config, error) {
		if len(domains) != 2 || domains[0] != "example.com" || domains[1] != "panel.example.com" {
			t.Fatalf("unexpected domains: %v", domains)
		}
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	}
	t.Cleanup(func() {
		certmagicTLS = origTLS
	})

	cfg, err := certmagicTLSConfig(config.ACMEConfig{
		Enabled:        true,
		Domains:        []string{"example.com", "panel.example.com"},
		Email:          "ops@example.com",
		CA:             "https://acme.local/directory",
		CARoot:         certPath,
		Storage:        storagePath,
		AltHTTPPort:    8081,
		AltTLSALPNPort: 8444,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected tls config")
	}

	if certmagic.DefaultACME.Email != "ops@example.com" || certmagic.DefaultACME.CA != "https://acme.local/directory" {
		t.Fatalf("unexpected acme issuer: %q %q", certmagic.DefaultACME.Email, certmagic.DefaultACME.CA)
	}
	if certmagic.DefaultACME.AltHTTPPort != 8081 || certmagic.DefaultACME.AltTLSALPNPort != 8444 {
		t.Fatalf("unexpected ports: %d %d", certmagic.DefaultACME.AltHTTPPort, certmagic.DefaultACME.AltTLSALPNPort)
	}

	storage, ok := certmagic.Default.Storage.(*certmagic.FileStorage)
	if !ok {
		t.Fatalf("expected file storage, got %T", certmagic.Default.Storage)
	}
	if storage.Path != storagePath {
		t.Fatalf("expected storage path %q, got %q", storagePath, storage.Path)
	}

	roots := certmagic.DefaultACME.TrustedRoots
	if roots == nil {
		t.Fatalf("expected trusted roots")
	}

	leaf := generateLeafCert(t, caCert, caKey, "example.com")
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:       roots,
		DNSName:     "example.com",
		CurrentTime: time.Now(),
	}); err != nil {
		t.Fatalf("expected CA root to be added to trusted pool: %v", err)
	}
}

func writeTestCA(t *testing.T, certPath, keyPath string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate CA key: %v", err)
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		t.Fatalf("generate CA serial: %v", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: "test-ca",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create CA cert: %v", err)
	}

	certOut := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	if err := os.WriteFile(certPath, certOut, 0o600); err != nil {
		t.Fatalf("write CA cert: %v", err)
	}

	keyOut := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	if err := os.WriteFile(keyPath, keyOut, 0o600); err != nil {
		t.Fatalf("write CA key: %v", err)
	}

	cert, err := x509.ParseCertificate(derBytes)
	if err != nil {
		t.Fatalf("parse CA cert: %v", err)
	}
	return cert, priv
}

func generateLeafCert(t *testing.T, ca *x509.Certificate, caKey *rsa.PrivateKey, dnsName string) *x509.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		t.Fatalf("generate leaf serial: %v", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: dnsName,
		},
		NotBefore:   now.Add(-time.Hour),
		NotAfter:    now.Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    []string{dnsName},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, ca, &priv.PublicKey, caKey)
	if err != nil {
		t.Fatalf("create leaf cert: %v", err)
	}
	cert, err := x509.ParseCertificate(derBytes)
	if err != nil {
		t.Fatalf("parse leaf cert: %v", err)
	}
	return cert
}

func restoreCertmagicDefaults(t *testing.T) {
	t.Helper()
	prevEmail := certmagic.DefaultACME.Email
	prevCA := certmagic.DefaultACME.CA
	prevAltHTTP := certmagic.DefaultACME.AltHTTPPort
	prevAltTLS := certmagic.DefaultACME.AltTLSALPNPort
	prevRoots := certmagic.DefaultACME.TrustedRoots
	prevAgreed := certmagic.DefaultACME.Agreed
	prevStorage := certmagic.Default.Storage

	t.Cleanup(func() {
		certmagic.DefaultACME.Email = prevEmail
		certmagic.DefaultACME.CA = prevCA
		certmagic.DefaultACME.AltHTTPPort = prevAltHTTP
		certmagic.DefaultACME.AltTLSALPNPort = prevAltTLS
		certmagic.DefaultACME.TrustedRoots = prevRoots
		certmagic.DefaultACME.Agreed = prevAgreed
		certmagic.Default.Storage = prevStorage
	})
}
