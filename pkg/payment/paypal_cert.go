package payment

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	PayPalTransmissionIDHeader   = "PAYPAL-TRANSMISSION-ID"
	PayPalTransmissionTimeHeader = "PAYPAL-TRANSMISSION-TIME"
	PayPalCertURLHeader          = "PAYPAL-CERT-URL"
	PayPalTransmissionSigHeader  = "PAYPAL-TRANSMISSION-SIG"
	PayPalAuthAlgoHeader         = "PAYPAL-AUTH-ALGO"

	DefaultPayPalCertCommonName = "messageverificationcerts.paypal.com"
)

var paypalAlgorithms = map[string]x509.SignatureAlgorithm{
	"SHA256withRSA": x509.SHA256WithRSA,
	"SHA384withRSA": x509.SHA384WithRSA,
	"SHA512withRSA": x509.SHA512WithRSA,
}

// CertFetcher downloads the PEM chain behind a PAYPAL-CERT-URL.
type CertFetcher interface {
	Fetch(ctx context.Context, certURL string) ([]byte, error)
}

type HTTPCertFetcher struct {
	Client *http.Client
}

func (f HTTPCertFetcher) Fetch(ctx context.Context, certURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cert fetch: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<10))
}

type PayPalCertOptions struct {
	WebhookID  string
	CommonName string
	// Roots defaults to the system pool.
	Roots    *x509.CertPool
	Fetcher  CertFetcher
	CacheTTL time.Duration
}

// PayPalCertVerifier checks PayPal webhook transmissions against the signing certificate chain.
type PayPalCertVerifier struct {
	webhookID  string
	commonName string
	roots      *x509.CertPool
	fetcher    CertFetcher
	ttl        time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cachedChain
}

type cachedChain struct {
	leaf    *x509.Certificate
	fetched time.Time
}

func NewPayPalCertVerifier(opts PayPalCertOptions) *PayPalCertVerifier {
	cn := opts.CommonName
	if cn == "" {
		cn = DefaultPayPalCertCommonName
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = HTTPCertFetcher{}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PayPalCertVerifier{
		webhookID:  opts.WebhookID,
		commonName: cn,
		roots:      opts.Roots,
		fetcher:    fetcher,
		ttl:        ttl,
		now:        time.Now,
		cache:      make(map[string]cachedChain),
	}
}

// Verify returns nil only when every check passes.
func (v *PayPalCertVerifier) Verify(ctx context.Context, body []byte, header http.Header) error {
	if v.webhookID == "" {
		return errors.New("paypal: webhook id not configured")
	}
	id := header.Get(PayPalTransmissionIDHeader)
	ts := header.Get(PayPalTransmissionTimeHeader)
	certURL := header.Get(PayPalCertURLHeader)
	sig := header.Get(PayPalTransmissionSigHeader)
	algo := header.Get(PayPalAuthAlgoHeader)
	if id == "" || ts == "" || certURL == "" || sig == "" || algo == "" {
		return errors.New("paypal: missing transmission headers")
	}
	sigAlgo, ok := paypalAlgorithms[algo]
	if !ok {
		return fmt.Errorf("paypal: unsupported auth algo %q", algo)
	}
	if err := checkCertURL(certURL); err != nil {
		return err
	}
	rawSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("paypal: signature encoding: %w", err)
	}
	leaf, err := v.leafFor(ctx, certURL)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%s|%s|%s|%d", id, ts, v.webhookID, crc32.ChecksumIEEE(body))
	if err := leaf.CheckSignature(sigAlgo, []byte(msg), rawSig); err != nil {
		return fmt.Errorf("paypal: signature mismatch: %w", err)
	}
	return nil
}

func checkCertURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("paypal: cert url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if u.Scheme != "https" || (host != "paypal.com" && !strings.HasSuffix(host, ".paypal.com")) {
		return fmt.Errorf("paypal: untrusted cert url %q", raw)
	}
	return nil
}

// leafFor returns the verified signing certificate, from cache when fresh.
// The fetch runs outside the lock.
func (v *PayPalCertVerifier) leafFor(ctx context.Context, certURL string) (*x509.Certificate, error) {
	now := v.now()
	v.mu.Lock()
	c, ok := v.cache[certURL]
	v.mu.Unlock()
	if ok && now.Sub(c.fetched) < v.ttl && now.Before(c.leaf.NotAfter) {
		return c.leaf, nil
	}

	data, err := v.fetcher.Fetch(ctx, certURL)
	if err != nil {
		return nil, fmt.Errorf("paypal: fetch cert: %w", err)
	}
	leaf, err := v.verifyChain(data, now)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.cache[certURL] = cachedChain{leaf: leaf, fetched: now}
	v.mu.Unlock()
	return leaf, nil
}

func (v *PayPalCertVerifier) verifyChain(data []byte, now time.Time) (*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("paypal: parse cert: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("paypal: no certificate in chain")
	}
	leaf := certs[0]
	inter := x509.NewCertPool()
	for _, c := range certs[1:] {
		inter.AddCert(c)
	}
	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: inter,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := leaf.Verify(opts); err != nil {
		return nil, fmt.Errorf("paypal: untrusted cert chain: %w", err)
	}
	if leaf.Subject.CommonName != v.commonName && leaf.VerifyHostname(v.commonName) != nil {
		return nil, fmt.Errorf("paypal: cert issued to %q", leaf.Subject.CommonName)
	}
	return leaf, nil
}
