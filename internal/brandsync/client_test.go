package brandsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"mantaga/internal"
	"mantaga/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testProjection() Projection {
	return Projection{
		PONumber:      "LPO-1001",
		InvoiceNumber: "INV-77",
		InvoiceDate:   "2024-02-05",
		LineItems: []internal.BrandPerformanceRow{{
			PONumber: "LPO-1001", InvoiceNumber: "INV-77", Barcode: "6291234567890",
			Quantity: decimal.NewFromInt(5), AmountExclVat: decimal.RequireFromString("120.50"), AmountInclVat: decimal.RequireFromString("126.525"),
		}},
	}
}

func TestProjectRetriesWithIdempotencyKey(t *testing.T) {
	attempt := 0

	cfg := config.Config{BrandSyncURL: "https://brands.example.test/api/performance", BrandSyncToken: "test", BrandSyncRateLimitRPS: 1000, BrandSyncTimeoutMs: 1000}
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/performance" {
				t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Idempotency-Key"); got != "LPO-1001:INV-77" {
				t.Fatalf("idempotency key=%q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("authorization=%q", got)
			}
			attempt++
			if attempt == 1 {
				return jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
			}

			var body Projection
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body.LineItems) != 1 || body.LineItems[0].Barcode != "6291234567890" {
				t.Fatalf("body=%+v", body)
			}
			return jsonResponse(http.StatusOK, `{"success":true}`), nil
		}),
	}

	if err := client.Project(context.Background(), testProjection()); err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestProjectTreatsConflictAsDone(t *testing.T) {
	cfg := config.Config{BrandSyncURL: "https://brands.example.test/api/performance", BrandSyncRateLimitRPS: 1000, BrandSyncTimeoutMs: 1000}
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusConflict, `{"success":false,"message":"duplicate"}`), nil
		}),
	}
	if err := client.Project(context.Background(), testProjection()); err != nil {
		t.Fatal(err)
	}
}

func TestProjectFailsOnClientError(t *testing.T) {
	calls := 0
	cfg := config.Config{BrandSyncURL: "https://brands.example.test/api/performance", BrandSyncRateLimitRPS: 1000, BrandSyncTimeoutMs: 1000}
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return jsonResponse(http.StatusBadRequest, `{"success":false}`), nil
		}),
	}
	if err := client.Project(context.Background(), testProjection()); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}
