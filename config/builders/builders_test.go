package builders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/modelduel/adapter"
	"github.com/rushteam/modelduel/config"
	"github.com/rushteam/modelduel/core"
	"github.com/rushteam/modelduel/service"
)

const softmaxArtifact = `{"type": "softmax", "weights": [[1,0],[0,1],[0,0],[-1,0],[0,-1]]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func build(t *testing.T, cfg config.AdapterConfig) (core.PointPredictor, error) {
	t.Helper()
	b, ok := config.Builder(cfg.Type)
	if !ok {
		t.Fatalf("type %q not registered", cfg.Type)
	}
	return b(context.Background(), cfg)
}

func TestRegisteredTypes(t *testing.T) {
	for _, typ := range []string{"linear", "logistic", "softmax", "dnn", "embedding_bag", "tf_serving", "kserve"} {
		if _, ok := config.Builder(typ); !ok {
			t.Errorf("type %q not registered", typ)
		}
	}
}

func TestBuildLocal(t *testing.T) {
	path := writeFile(t, "a.json", softmaxArtifact)

	p, err := build(t, config.AdapterConfig{Name: "A", Type: "softmax", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if adapter.Capability(p) != adapter.CapabilityConfidence {
		t.Fatalf("capability = %s", adapter.Capability(p))
	}
	if s := p.Scale(); s.Min != 1 || s.Max != 5 {
		t.Fatalf("scale = %+v", s)
	}
	r, err := adapter.Predict(context.Background(), p, core.VectorInput(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if r.Label.Value != 1 || r.Confidence == nil {
		t.Fatalf("result = %+v", r)
	}

	tests := []struct {
		name string
		cfg  config.AdapterConfig
	}{
		{"type mismatch", config.AdapterConfig{Name: "A", Type: "dnn", Path: path}},
		{"missing path", config.AdapterConfig{Name: "A", Type: "softmax"}},
		{"missing file", config.AdapterConfig{Name: "A", Type: "softmax", Path: path + ".gone"}},
		{"rating max mismatch", config.AdapterConfig{Name: "A", Type: "softmax", Path: path,
			Labels: config.LabelConfig{Scheme: "rating", Min: 1, Max: 10}}},
		{"bad preprocess", config.AdapterConfig{Name: "A", Type: "softmax", Path: path, Preprocess: path + ".gone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := build(t, tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models/rater":
			_, _ = w.Write([]byte(`{"model_version_status": []}`))
		case "/v1/models/rater:predict":
			_, _ = w.Write([]byte(`{"predictions": [[0.05, 0.05, 0.1, 0.2, 0.6]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.AdapterConfig{
		Name:    "B",
		Type:    "tf_serving",
		Service: service.ServiceConfig{Endpoint: srv.URL, ModelName: "rater"},
		Params:  map[string]any{"classes": 5, "input_dim": 4},
	}
	p, err := build(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r, err := adapter.Predict(context.Background(), p, core.VectorInput(1, 2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if r.Label.Value != 5 || r.Confidence == nil || *r.Confidence != 0.6 {
		t.Fatalf("result = %+v", r)
	}

	cfg.Service.ModelName = "missing"
	if _, err := build(t, cfg); err == nil {
		t.Fatal("expected health check failure")
	}

	cfg.Params = map[string]any{"output": "logits"}
	cfg.Service.ModelName = "rater"
	if _, err := build(t, cfg); err == nil {
		t.Fatal("expected error for unknown output")
	}
}

func TestLabelScheme(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.LabelConfig
		want    string
		wantErr bool
	}{
		{"default", config.LabelConfig{}, "<nil>", false},
		{"rating", config.LabelConfig{Scheme: "rating", Min: 0, Max: 4}, "adapter.Rating", false},
		{"categories", config.LabelConfig{Scheme: "categories", Names: []string{"neg", "pos"}}, "adapter.Categories", false},
		{"categories without names", config.LabelConfig{Scheme: "categories"}, "", true},
		{"score", config.LabelConfig{Scheme: "score"}, "adapter.Score", false},
		{"expr", config.LabelConfig{Scheme: "expr", Expr: `score > 0.5 ? "pos" : "neg"`, Output: "category"}, "adapter.Expr", false},
		{"expr bad syntax", config.LabelConfig{Scheme: "expr", Expr: "score >"}, "", true},
		{"expr bad output", config.LabelConfig{Scheme: "expr", Expr: "score", Output: "vector"}, "", true},
		{"unknown", config.LabelConfig{Scheme: "stars"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := labelScheme(tt.lc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			got := "<nil>"
			if s != nil {
				got = typeName(s)
			}
			if got != tt.want {
				t.Fatalf("scheme = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(s adapter.LabelScheme) string {
	switch s.(type) {
	case adapter.Rating:
		return "adapter.Rating"
	case adapter.Categories:
		return "adapter.Categories"
	case adapter.Score:
		return "adapter.Score"
	case adapter.Expr:
		return "adapter.Expr"
	}
	return "unknown"
}
