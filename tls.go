package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/caddyserver/certmagic"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
)

const (
	defaultCertPath = "./certs/pterodash.crt"
	defaultKeyPath  = "./certs/pterodash.key"
)

var certmagicTLS = certmagic.TLS

// ensureTLSCert creates a self-signed cert/key pair if either file is missing.
func ensureTLSCert(certPath, keyPath string, log *zap.Logger) error {
	if _, err := os.Stat(certPath); err == nil {
		if _, err := os.Stat(keyPath); err == nil {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(certPath), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return err
	}

	log.Info("generating self-signed certificate", zap.String("path", certPath))
	return generateSelfSigned(certPath, keyPath)
}

func generateSelfSigned(certPath, keyPath string) error {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return err
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName: "pterodash",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"pterodash", "localhost"},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return err
	}

	certOut := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	if err := os.WriteFile(certPath, certOut, 0o644); err != nil {
		return err
	}

	keyOut := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	return os.WriteFile(keyPath, keyOut, 0o600)
}

// certmagicTLSConfig applies cfg to certmagic's package defaults and returns
// a TLS config that obtains and renews certificates for cfg.Domains.
func certmagicTLSConfig(cfg config.ACMEConfig) (*tls.Config, error) {
	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("certmagic requires at least one domain")
	}

	certmagic.DefaultACME.Agreed = true
	if cfg.Email != "" {
		certmagic.DefaultACME.Email = cfg.Email
	}
	if cfg.CA != "" {
		certmagic.DefaultACME.CA = cfg.CA
	}
	if cfg.AltHTTPPort != 0 {
		certmagic.DefaultACME.AltHTTPPort = cfg.AltHTTPPort
	}
	if cfg.AltTLSALPNPort != 0 {
		certmagic.DefaultACME.AltTLSALPNPort = cfg.AltTLSALPNPort
	}
	if cfg.CARoot != "" {
		pemData, err := os.ReadFile(cfg.CARoot)
		if err != nil {
			return nil, fmt.Errorf("read CA root: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CARoot)
		}
		certmagic.DefaultACME.TrustedRoots = pool
	}
	if cfg.Storage != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: cfg.Storage}
	}

	return certmagicTLS(cfg.Domains)
}
