package server

import (
	"crypto/tls"
	"sync"
	"time"
)

const tlsCertReloadInterval = time.Minute * 10

// tlsCertCache reloads the certificate from disk at most every
// tlsCertReloadInterval so that renewed certificates are picked up without a
// restart.
type tlsCertCache struct {
	mu         sync.Mutex
	cert       *tls.Certificate
	reloadedAt time.Time
	certFile   string
	keyFile    string
}

func (c *tlsCertCache) loadCert(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if c.cert == nil || now.Before(c.reloadedAt) || !now.Before(c.reloadedAt.Add(tlsCertReloadInterval)) {
		cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
		if err != nil {
			return nil, err
		}
		c.cert = &cert
		c.reloadedAt = now
	}
	return c.cert, nil
}

func newTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	c := &tlsCertCache{
		certFile: certFile,
		keyFile:  keyFile,
	}
	if _, err := c.loadCert(nil); err != nil {
		return nil, err
	}
	return &tls.Config{
		GetCertificate: c.loadCert,
		MinVersion:     tls.VersionTLS13,
	}, nil
}
