// Package security holds the TLS settings a spacekit client can pass to its
// transport.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/path/to/ca.pem",
//	    MinVersion: "1.3",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
