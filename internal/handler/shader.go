package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vizwave/api/internal/model"
	"github.com/vizwave/api/internal/shader"
	"github.com/vizwave/api/pkg/response"
)

type ShaderHandler struct {
	catalog *shader.Catalog
}

func NewShaderHandler(catalog *shader.Catalog) *ShaderHandler {
	return &ShaderHandler{catalog: catalog}
}

// Explorer handles GET /shader-explorer
func (h *ShaderHandler) Explorer(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"shaders": h.catalog.List(),
	})
}

// Preview handles GET /shader-preview/:name
func (h *ShaderHandler) Preview(c *fiber.Ctx) error {
	name := c.Params("name")
	entry, ok := h.catalog.Get(name)
	if !ok {
		return response.NotFound(c, "Shader not found")
	}

	return response.OK(c, model.ShaderPreview{
		ShaderInfo: entry.Info,
		Source:     entry.Source,
	})
}

// ErrorPage handles GET /shader-error/:name, the redirect target for jobs
// that failed compiling a background shader. Unknown names still get a
// page: user-uploaded shaders are not in the catalog.
func (h *ShaderHandler) ErrorPage(c *fiber.Ctx) error {
	name := c.Params("name")

	page := fiber.Map{
		"shader_name": name,
		"message":     "The background shader failed to compile. Check the shader source and resubmit.",
	}
	if entry, ok := h.catalog.Get(name); ok {
		page["shader_path"] = entry.Info.Path
		page["title"] = entry.Info.Title
	}
	return response.OK(c, page)
}
