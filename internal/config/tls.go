package config

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidCA = errors.New("failed to parse CA certificate")

// caFromEnv читает CA из XAPI_TLS_CA (PEM в base64). Переменная необязательна.
func caFromEnv() ([]byte, error) {
	caB64 := os.Getenv(EnvTLSCA)
	if caB64 == "" {
		return nil, nil
	}

	caPEM, err := base64.StdEncoding.DecodeString(caB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EnvTLSCA, err)
	}

	return caPEM, nil
}

// tlsConfig возвращает nil, если собственный CA не задан: тогда используются
// системные корни.
func (f *File) tlsConfig() (*tls.Config, error) {
	caPEM := f.caPEM

	if caPEM == nil && f.TLS.CAFile != "" {
		data, err := os.ReadFile(f.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}

		caPEM = data
	}

	if caPEM == nil {
		return nil, nil
	}

	rootCAs := x509.NewCertPool()
	if !rootCAs.AppendCertsFromPEM(caPEM) {
		return nil, ErrInvalidCA
	}

	return &tls.Config{
		RootCAs:    rootCAs,
		MinVersion: tls.VersionTLS12,
	}, nil
}
