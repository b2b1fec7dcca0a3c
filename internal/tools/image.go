package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/kiln/internal/gallery"
	"github.com/mark3labs/mcp-go/mcp"
)

// ImageSaveTool handles the image_save MCP tool.
type ImageSaveTool struct {
	gallery *gallery.Gallery
}

// NewImageSaveTool creates an ImageSaveTool writing into g.
func NewImageSaveTool(g *gallery.Gallery) *ImageSaveTool {
	return &ImageSaveTool{gallery: g}
}

// Definition returns the MCP tool definition for image_save.
func (t *ImageSaveTool) Definition() mcp.Tool {
	return mcp.NewTool("image_save",
		mcp.WithDescription(
			"Save a photo of a fired test tile into the images directory so a rule can point at it "+
				"with local_image. An existing file with the same name is replaced.",
		),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Bare filename ending in "+strings.Join(gallery.Extensions, ", ")+" (e.g. 'pc59_over_pc32.jpg')"),
		),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("Image bytes, base64-encoded"),
		),
	)
}

// Handle processes the image_save tool call.
func (t *ImageSaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("filename", ""))
	encoded := req.GetString("data", "")
	if name == "" {
		return mcp.NewToolResultError("Enter a filename before saving."), nil
	}
	if encoded == "" {
		return mcp.NewToolResultError("'data' is required"), nil
	}

	// Accept data URLs ("data:image/png;base64,....") as well as bare base64.
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'data' is not valid base64: %v", err)), nil
	}

	path, err := t.gallery.Save(name, data)
	if err != nil {
		if errors.Is(err, gallery.ErrBadName) || errors.Is(err, gallery.ErrEmpty) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to save image: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Saved to %s (%d bytes). Use local_image=%q in rule_save to attach it.", path, len(data), name,
	)), nil
}
