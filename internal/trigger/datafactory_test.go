package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newAzureServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/test-tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant type %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("client_secret") != "secret" {
			t.Errorf("expected client secret in form body")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/subscriptions/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testCreds(authority string) AzureCredentials {
	return AzureCredentials{
		TenantID:     "test-tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		AuthorityURL: authority,
	}
}

func TestDataFactoryClient_CreateRun(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	var gotBody map[string]any
	server := newAzureServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"runId":"test-run-id"}`))
	})

	client, err := NewDataFactoryClient(context.Background(), "test-subscription", testCreds(server.URL), server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	handle, err := client.CreateRun(context.Background(), PipelineRef{
		ResourceGroup: "test-resource-group",
		Factory:       "test-factory",
		Pipeline:      "test-pipeline",
		Parameters:    map[string]any{"date": "2024-01-01"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.RunID != "test-run-id" {
		t.Errorf("expected run id test-run-id, got %q", handle.RunID)
	}

	wantPath := "/subscriptions/test-subscription/resourceGroups/test-resource-group/providers/Microsoft.DataFactory/factories/test-factory/pipelines/test-pipeline/createRun"
	if gotPath != wantPath {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotQuery != "api-version=2018-06-01" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if gotBody["date"] != "2024-01-01" {
		t.Errorf("expected parameters in body, got %v", gotBody)
	}
}

func TestDataFactoryClient_APIError(t *testing.T) {
	server := newAzureServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":"ServiceBusy","message":"try again later"}}`))
	})

	client, err := NewDataFactoryClient(context.Background(), "sub", testCreds(server.URL), server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateRun(context.Background(), PipelineRef{ResourceGroup: "rg", Factory: "f", Pipeline: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != "ServiceBusy" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
	if !apiErr.Temporary() {
		t.Error("expected 503 to be temporary")
	}
	if !strings.Contains(err.Error(), "try again later") {
		t.Errorf("expected message in error, got %q", err.Error())
	}
}

func TestDataFactoryClient_MissingRunID(t *testing.T) {
	server := newAzureServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	client, _ := NewDataFactoryClient(context.Background(), "sub", testCreds(server.URL), server.URL)
	if _, err := client.CreateRun(context.Background(), PipelineRef{ResourceGroup: "rg", Factory: "f", Pipeline: "p"}); err == nil {
		t.Error("expected error for missing run id")
	}
}

func TestNewDataFactoryClient_Validation(t *testing.T) {
	if _, err := NewDataFactoryClient(context.Background(), "", testCreds(""), ""); err == nil {
		t.Error("expected error for missing subscription")
	}
	if _, err := NewDataFactoryClient(context.Background(), "sub", AzureCredentials{}, ""); err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestDataFactoryClient_RequiresRef(t *testing.T) {
	client := &DataFactoryClient{SubscriptionID: "sub", BaseURL: "http://unused"}
	if _, err := client.CreateRun(context.Background(), PipelineRef{}); err == nil {
		t.Error("expected error for empty pipeline ref")
	}
}
