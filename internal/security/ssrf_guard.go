package security

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService はアプリURLの安全性検証と到達確認のインターフェース。
type SSRFGuardService interface {
	// ValidateURL はURLを静的に検証する。
	// http/https以外のスキーム、空ホスト、プライベート/ループバック等のIP、localhostを拒否する。
	ValidateURL(rawURL string) error

	// Probe はURLへの到達可否をSSRF防止付きクライアントで確認する。
	Probe(ctx context.Context, rawURL string) (*ProbeResult, error)
}

// ProbeResult はURL到達確認の結果を表す。
type ProbeResult struct {
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"-"`
	LatencyMS  int64         `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
}

var allowedSchemes = []string{"http", "https"}

// blockedNetworks は静的検証でブロックするネットワーク範囲。
// DNS解決後のIPはsafeurlがDialerで検証する。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16", // クラウドメタデータIPを含む
		"0.0.0.0/8",
		"100.64.0.0/10", // CGNAT
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// SSRFGuard はSSRFGuardServiceの実装。
type SSRFGuard struct {
	client *http.Client
}

// NewSSRFGuard はSSRFGuardを生成する。probeTimeoutはProbe 1回あたりの上限時間。
func NewSSRFGuard(probeTimeout time.Duration) *SSRFGuard {
	if probeTimeout == 0 {
		probeTimeout = 5 * time.Second
	}
	return &SSRFGuard{client: NewSafeClient(probeTimeout)}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlがDNS解決後のIPを検証するため、DNS再バインディングも防げる。
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLを静的に検証する。DNS解決は行わない。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// Probe はHEADで到達確認し、HEADが許可されていない場合はGETで再試行する。
// 5xx以外の応答を到達可能とみなす。
func (g *SSRFGuard) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	if err := g.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	status, err := g.request(ctx, http.MethodHead, rawURL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = g.request(ctx, http.MethodGet, rawURL)
	}
	latency := time.Since(start)

	result := &ProbeResult{Latency: latency, LatencyMS: latency.Milliseconds()}
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.StatusCode = status
	result.Reachable = status < http.StatusInternalServerError
	return result, nil
}

func (g *SSRFGuard) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "questlog-reachability/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// isBlockedHostname はlocalhostおよび*.localhostを拒否する。
func isBlockedHostname(host string) bool {
	lower := strings.TrimSuffix(strings.ToLower(host), ".")
	return lower == "localhost" || strings.HasSuffix(lower, ".localhost")
}

// compile-time interface check
var _ SSRFGuardService = (*SSRFGuard)(nil)
