package vizclient

func ptr(f float64) *float64 { return &f }

// DefaultSpecs mirrors the render settings the server accepts, in the
// order the fields appear on the submission form.
func DefaultSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: "visualizer", FriendlyName: "Visualizer", Tab: "Style", Required: true},
		{Name: "color_scheme", FriendlyName: "Color scheme", Tab: "Style"},
		{Name: "width", FriendlyName: "Width", Tab: "Output", Numeric: true, Min: ptr(160), Max: ptr(3840), Step: "2"},
		{Name: "height", FriendlyName: "Height", Tab: "Output", Numeric: true, Min: ptr(120), Max: ptr(2160), Step: "2"},
		{Name: "fps", FriendlyName: "Frame rate", Tab: "Output", Numeric: true, Min: ptr(10), Max: ptr(60), Step: "1"},
		{Name: "bar_count", FriendlyName: "Bar count", Tab: "Style", Numeric: true, Min: ptr(8), Max: ptr(256), Step: "1"},
		{Name: "smoothing", FriendlyName: "Smoothing", Tab: "Style", Numeric: true, Min: ptr(0), Max: ptr(1), Step: "any"},
		{Name: "sensitivity", FriendlyName: "Sensitivity", Tab: "Style", Numeric: true, Min: ptr(0.1), Max: ptr(10), Step: "any"},
		{Name: "mirror_spectrum", FriendlyName: "Mirror spectrum", Tab: "Style"},
		{Name: "background_mode", FriendlyName: "Background", Tab: "Background"},
		{Name: "background_shader", FriendlyName: "Background shader", Tab: "Background"},
	}
}
