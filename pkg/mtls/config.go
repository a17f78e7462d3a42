// SPDX-License-Identifier: Apache-2.0

// Package mtls builds tls.Config values for repositories that require a
// client certificate to authenticate against their upstream feed.
package mtls

import (
	"crypto/tls"
	"crypto/x509"
	"io"
)

func loadCerts(caCert, cert, key io.Reader) (*x509.CertPool, []tls.Certificate, error) {
	caCertBytes, err := io.ReadAll(caCert)
	if err != nil {
		return nil, nil, err
	}
	certBytes, err := io.ReadAll(cert)
	if err != nil {
		return nil, nil, err
	}
	keyBytes, err := io.ReadAll(key)
	if err != nil {
		return nil, nil, err
	}

	certs, err := tls.X509KeyPair(certBytes, keyBytes)
	if err != nil {
		return nil, nil, err
	}

	caCertPool := x509.NewCertPool()
	caCertPool.AppendCertsFromPEM(caCertBytes)

	return caCertPool, []tls.Certificate{certs}, nil
}

// ClientConfig returns a client TLS configuration presenting cert/key for
// mTLS, trusting caCert to validate the upstream's server certificate. If
// caCert is nil, the system root pool is used instead.
func ClientConfig(caCert, cert, key io.Reader) (*tls.Config, error) {
	if caCert == nil {
		certBytes, err := io.ReadAll(cert)
		if err != nil {
			return nil, err
		}
		keyBytes, err := io.ReadAll(key)
		if err != nil {
			return nil, err
		}
		certs, err := tls.X509KeyPair(certBytes, keyBytes)
		if err != nil {
			return nil, err
		}
		return &tls.Config{Certificates: []tls.Certificate{certs}, MinVersion: tls.VersionTLS12}, nil
	}

	caCertPool, certs, err := loadCerts(caCert, cert, key)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: certs,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
