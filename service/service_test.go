package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushteam/modelduel/core"
)

func TestTFServingClient_Predict(t *testing.T) {
	var got struct {
		Instances     [][]float64 `json:"instances"`
		SignatureName string      `json:"signature_name"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/rater/versions/3:predict" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"predictions": [[0.1, 0.9], [0.7, 0.3]]}`))
	}))
	defer srv.Close()

	c := NewTFServingClient(srv.URL, "rater",
		WithTFServingVersion("3"),
		WithTFServingAuth(&AuthConfig{Type: "bearer", Token: "tok"}))
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1, 2}, {3, 4}}})
	if err != nil {
		t.Fatal(err)
	}
	if got.SignatureName != "serving_default" || len(got.Instances) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if len(resp.Outputs) != 2 || resp.Outputs[0][1] != 0.9 || resp.Outputs[1][0] != 0.7 {
		t.Fatalf("outputs = %v", resp.Outputs)
	}
}

func TestTFServingClient_ScalarPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions": [3.5]}`))
	}))
	defer srv.Close()

	resp, err := NewTFServingClient(srv.URL, "m").Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1}}})
	if err != nil {
		t.Fatal(err)
	}
	if scores := resp.Scores(); len(scores) != 1 || scores[0] != 3.5 {
		t.Fatalf("scores = %v", scores)
	}
}

func TestTFServingClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `boom`},
		{"count mismatch", http.StatusOK, `{"predictions": [1, 2]}`},
		{"bad element", http.StatusOK, `{"predictions": [["x"]]}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewTFServingClient(srv.URL, "m").Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1}}})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := NewTFServingClient("http://unused", "m").Predict(context.Background(), &core.MLPredictRequest{}); err == nil {
		t.Fatal("expected error for empty instances")
	}
}

func TestKServeClient_V2(t *testing.T) {
	var req struct {
		Inputs []struct {
			Name  string    `json:"name"`
			Shape []int     `json:"shape"`
			Data  []float64 `json:"data"`
		} `json:"inputs"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/health/ready":
			w.WriteHeader(http.StatusOK)
		case "/v2/models/rater/infer":
			if r.Header.Get("X-API-Key") != "k" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			_, _ = w.Write([]byte(`{"outputs": [
				{"name": "other", "shape": [2, 1], "data": [9, 9]},
				{"name": "proba", "shape": [2, 3], "data": [0.2, 0.3, 0.5, 0.6, 0.3, 0.1]}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewKServeClient(srv.URL, "rater",
		WithKServeV2OutputName("proba"),
		WithKServeAuth(&AuthConfig{Type: "api_key", APIKey: "k"}))
	if err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1, 2}, {3, 4}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Inputs) != 1 || req.Inputs[0].Name != "input0" || req.Inputs[0].Shape[0] != 2 || req.Inputs[0].Shape[1] != 2 {
		t.Fatalf("request = %+v", req)
	}
	if len(resp.Outputs) != 2 || len(resp.Outputs[1]) != 3 || resp.Outputs[1][0] != 0.6 {
		t.Fatalf("outputs = %v", resp.Outputs)
	}
}

func TestKServeClient_V1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/rater:predict" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"predictions": [[0.25, 0.75]]}`))
	}))
	defer srv.Close()

	c := NewKServeClient(srv.URL, "rater", WithKServeProtocol(KServeV1))
	resp, err := c.Predict(context.Background(), &core.MLPredictRequest{Instances: [][]float64{{1}}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Outputs[0][1] != 0.75 {
		t.Fatalf("outputs = %v", resp.Outputs)
	}
	if err := c.Health(context.Background()); err == nil {
		t.Fatal("expected health failure for missing model route")
	}
}

func TestReshape(t *testing.T) {
	if _, err := reshape([]float64{1, 2, 3}, 2); err == nil {
		t.Fatal("expected error for uneven data")
	}
	out, err := reshape([]float64{1, 2, 3, 4}, 2)
	if err != nil || len(out) != 2 || out[1][1] != 4 {
		t.Fatalf("out = %v, err = %v", out, err)
	}
}

func TestNewMLService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ServiceConfig
		wantErr bool
	}{
		{"nil", nil, true},
		{"no endpoint", &ServiceConfig{Type: ServiceTypeTFServing, ModelName: "m"}, true},
		{"grpc endpoint", &ServiceConfig{Type: ServiceTypeTFServing, Endpoint: "localhost:8500", ModelName: "m"}, true},
		{"no model", &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "http://x"}, true},
		{"bad protocol", &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "http://x", ModelName: "m", Protocol: "v3"}, true},
		{"unknown type", &ServiceConfig{Type: "torch_serve", Endpoint: "http://x", ModelName: "m"}, true},
		{"tf serving", &ServiceConfig{Type: ServiceTypeTFServing, Endpoint: "http://x", ModelName: "m", Timeout: 2}, false},
		{"kserve v1", &ServiceConfig{Type: ServiceTypeKServe, Endpoint: "https://x", ModelName: "m", Protocol: KServeV1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewMLService(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && svc == nil {
				t.Fatal("nil service")
			}
		})
	}

	svc, _ := NewMLService(&ServiceConfig{Type: ServiceTypeKServe, Endpoint: "http://x", ModelName: "m", Protocol: KServeV1})
	if kc := svc.(*KServeClient); kc.Protocol != KServeV1 {
		t.Fatalf("protocol = %s", kc.Protocol)
	}
	if err := TestConnection(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}
