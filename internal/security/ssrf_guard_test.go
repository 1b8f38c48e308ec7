package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewSafeClient はタイムアウトとカスタムTransportが設定されることをテストする。
func TestNewSafeClient(t *testing.T) {
	client := NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout %v, got %v", 5*time.Second, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected custom Transport")
	}
}

// TestValidateURL_Allowed は公開URLが許可されることをテストする。
func TestValidateURL_Allowed(t *testing.T) {
	guard := NewSSRFGuard(0)

	for _, u := range []string{
		"https://example.com",
		"http://example.com/app",
		"https://my-app.vercel.app/path?q=1",
		"https://8.8.8.8/",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err != nil {
				t.Errorf("ValidateURL(%q) error = %v", u, err)
			}
		})
	}
}

// TestValidateURL_Rejected は危険なURLや不正なURLが拒否されることをテストする。
func TestValidateURL_Rejected(t *testing.T) {
	guard := NewSSRFGuard(0)

	for _, u := range []string{
		"",
		"not-a-url",
		"ftp://example.com/app",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"http://10.0.0.1/",
		"http://172.16.5.4/",
		"http://192.168.1.1/",
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://localhost/",
		"http://LOCALHOST./",
		"http://api.localhost/",
	} {
		t.Run(u, func(t *testing.T) {
			if err := guard.ValidateURL(u); err == nil {
				t.Errorf("ValidateURL(%q) should have returned error", u)
			}
		})
	}
}

// TestProbe_RejectsInvalidURL は静的検証に失敗したURLがエラーになることをテストする。
func TestProbe_RejectsInvalidURL(t *testing.T) {
	guard := NewSSRFGuard(time.Second)

	if _, err := guard.Probe(context.Background(), "http://127.0.0.1/"); err == nil {
		t.Fatal("expected validation error")
	}
}

// TestSafeClient_BlocksLoopback はhttptestサーバー（127.0.0.1）への接続をsafeurlがブロックすることをテストする。
func TestSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewSSRFGuard(2 * time.Second)
	_, err := guard.client.Get(ts.URL)
	if err == nil {
		t.Fatal("expected safe client to block loopback request")
	}
}

// TestSSRFGuardInterface はSSRFGuardがインターフェースを実装していることをテストする。
func TestSSRFGuardInterface(t *testing.T) {
	var _ SSRFGuardService = NewSSRFGuard(0)
}
