package carrier

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func writeTempPEM(t *testing.T, dir, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTLSMaterialSuccess(t *testing.T) {
	cert := generateSelfSignedCert(t, "node-a")
	dir := t.TempDir()
	chainPath := writeTempPEM(t, dir, "chain.pem", cert.certPEM)
	keyPath := writeTempPEM(t, dir, "key.pem", cert.keyPEM)

	serverConfig, clientConfig, err := LoadTLSMaterial(chainPath, keyPath)
	if err != nil {
		t.Fatalf("LoadTLSMaterial: %v", err)
	}
	if serverConfig.ClientAuth != tls.NoClientCert {
		t.Fatalf("server ClientAuth = %v, want NoClientCert", serverConfig.ClientAuth)
	}
	if len(serverConfig.Certificates) != 1 || len(clientConfig.Certificates) != 1 {
		t.Fatal("expected both configs to carry exactly one certificate")
	}
	if clientConfig.RootCAs != nil {
		t.Fatal("expected client RootCAs to be nil (system pool fallback)")
	}
}

func TestLoadTLSMaterialMissingChainFile(t *testing.T) {
	dir := t.TempDir()
	cert := generateSelfSignedCert(t, "node-a")
	keyPath := writeTempPEM(t, dir, "key.pem", cert.keyPEM)

	_, _, err := LoadTLSMaterial(filepath.Join(dir, "missing.pem"), keyPath)
	tlsErr, ok := err.(*TLSError)
	if !ok {
		t.Fatalf("got error %T (%v), want *TLSError", err, err)
	}
	if tlsErr.Stage != TLSStageCertChainIO {
		t.Fatalf("got stage %v, want TLSStageCertChainIO", tlsErr.Stage)
	}
}

func TestLoadTLSMaterialMissingKeyFile(t *testing.T) {
	dir := t.TempDir()
	cert := generateSelfSignedCert(t, "node-a")
	chainPath := writeTempPEM(t, dir, "chain.pem", cert.certPEM)

	_, _, err := LoadTLSMaterial(chainPath, filepath.Join(dir, "missing.pem"))
	tlsErr, ok := err.(*TLSError)
	if !ok {
		t.Fatalf("got error %T (%v), want *TLSError", err, err)
	}
	if tlsErr.Stage != TLSStageCertKeyIO {
		t.Fatalf("got stage %v, want TLSStageCertKeyIO", tlsErr.Stage)
	}
}

func TestLoadTLSMaterialMismatchedKey(t *testing.T) {
	dir := t.TempDir()
	certA := generateSelfSignedCert(t, "node-a")
	certB := generateSelfSignedCert(t, "node-b")
	chainPath := writeTempPEM(t, dir, "chain.pem", certA.certPEM)
	keyPath := writeTempPEM(t, dir, "key.pem", certB.keyPEM)

	_, _, err := LoadTLSMaterial(chainPath, keyPath)
	tlsErr, ok := err.(*TLSError)
	if !ok {
		t.Fatalf("got error %T (%v), want *TLSError", err, err)
	}
	if tlsErr.Stage != TLSStageCertKeyParse {
		t.Fatalf("got stage %v, want TLSStageCertKeyParse", tlsErr.Stage)
	}
}

func TestLoadTLSMaterialMalformedKey(t *testing.T) {
	dir := t.TempDir()
	cert := generateSelfSignedCert(t, "node-a")
	chainPath := writeTempPEM(t, dir, "chain.pem", cert.certPEM)
	keyPath := writeTempPEM(t, dir, "key.pem", []byte("not a valid pem key"))

	_, _, err := LoadTLSMaterial(chainPath, keyPath)
	tlsErr, ok := err.(*TLSError)
	if !ok {
		t.Fatalf("got error %T (%v), want *TLSError", err, err)
	}
	if tlsErr.Stage != TLSStageCertKeyParse {
		t.Fatalf("got stage %v, want TLSStageCertKeyParse", tlsErr.Stage)
	}
}
