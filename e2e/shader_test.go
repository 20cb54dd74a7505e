package e2e

import (
	"net/http"
	"strings"
	"testing"
)

func TestShaderExplorer_ListsBundle(t *testing.T) {
	ta := setupApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/shader-explorer", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	shaders, ok := result["shaders"].([]interface{})
	if !ok || len(shaders) == 0 {
		t.Fatalf("expected a non-empty 'shaders' list, got %v", result["shaders"])
	}

	first, ok := shaders[0].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected shader entry shape: %v", shaders[0])
	}
	for _, key := range []string{"name", "title", "category", "path"} {
		if first[key] == nil || first[key] == "" {
			t.Errorf("expected %q in shader entry", key)
		}
	}
}

func TestShaderPreview_ReturnsSource(t *testing.T) {
	ta := setupApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/shader-preview/plasma.glsl", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	source, _ := result["source"].(string)
	if source == "" {
		t.Fatal("expected shader source in preview")
	}
	if !strings.Contains(source, "mainImage") {
		t.Error("expected the source to contain the mainImage entry point")
	}
}

func TestShaderPreview_Unknown(t *testing.T) {
	ta := setupApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/shader-preview/none.glsl", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestShaderErrorPage_KnownShader(t *testing.T) {
	ta := setupApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/shader-error/plasma.glsl", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["shader_name"] != "plasma.glsl" {
		t.Errorf("expected shader_name 'plasma.glsl', got %v", result["shader_name"])
	}
	if result["shader_path"] != "shaders/plasma.glsl" {
		t.Errorf("expected shader_path for a cataloged shader, got %v", result["shader_path"])
	}
}

func TestShaderErrorPage_UserUploadedShader(t *testing.T) {
	ta := setupApp(t)

	// Names outside the catalog still get a page: the failing shader may
	// have been uploaded with the job.
	req, _ := http.NewRequest(http.MethodGet, "/shader-error/custom.glsl", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["shader_name"] != "custom.glsl" {
		t.Errorf("expected shader_name 'custom.glsl', got %v", result["shader_name"])
	}
}

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}
