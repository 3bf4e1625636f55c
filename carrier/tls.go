package carrier

import (
	"crypto/tls"
	"os"
)

// LoadTLSMaterial builds the server-side and client-side TLS configuration
// pair described in spec.md §4.B from a PEM certificate chain and a PEM
// private key, both used as-is on both sides of the connection.
//
// Grounded on original_source/src/tls.rs: the server config presents the
// chain/key and does not request a client certificate
// (tls.NoClientCert, matching rustls's with_no_client_auth); the client
// config presents the same chain/key and trusts the standard public root
// set (a nil RootCAs, matching rustls's webpki_roots bundle, falls back to
// the host's system root pool in crypto/tls). Peer identity is therefore
// asserted only by the SNI server name the client sends — the inbound
// session (carrier/inbound.go) is what turns that into an authorization
// decision against the configured directory.
func LoadTLSMaterial(certChainPath, certPrivKeyPath string) (serverConfig, clientConfig *tls.Config, err error) {
	chainPEM, err := os.ReadFile(certChainPath)
	if err != nil {
		return nil, nil, &TLSError{Stage: TLSStageCertChainIO, Err: err}
	}
	keyPEM, err := os.ReadFile(certPrivKeyPath)
	if err != nil {
		return nil, nil, &TLSError{Stage: TLSStageCertKeyIO, Err: err}
	}
	cert, err := tls.X509KeyPair(chainPEM, keyPEM)
	if err != nil {
		return nil, nil, &TLSError{Stage: TLSStageCertKeyParse, Err: err}
	}

	serverConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	clientConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		// RootCAs left nil: crypto/tls falls back to the host's system
		// root pool, the Go equivalent of rustls's webpki_roots bundle.
	}

	return serverConfig, clientConfig, nil
}
