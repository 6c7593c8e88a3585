package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/manifest"
	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
)

type pageInfo struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handlePageInfo returns the page sizes of a document.
func (s *Server) handlePageInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("pdf_path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: pdf_path"), nil
	}
	doc, err := pdfdoc.OpenFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open PDF: %v", err)), nil
	}

	pages := make([]pageInfo, 0, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		size, err := doc.PageSize(i)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to size page %d: %v", i, err)), nil
		}
		pages = append(pages, pageInfo{Index: i, Width: size.Width, Height: size.Height})
	}
	return jsonResult(pages)
}

// handleListFields returns field projections for every page, or one page.
func (s *Server) handleListFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("pdf_path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: pdf_path"), nil
	}
	doc, err := pdfdoc.OpenFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open PDF: %v", err)), nil
	}

	mapper := fields.Mapper{Source: doc, Pages: doc}
	first, last := 0, doc.PageCount()-1
	if _, ok := request.GetArguments()["page"]; ok {
		first = request.GetInt("page", 0)
		last = first
		if first < 0 || first >= doc.PageCount() {
			return mcp.NewToolResultError(fmt.Sprintf("page %d out of range: document has %d page(s)", first, doc.PageCount())), nil
		}
	}

	out := []fields.Projection{}
	for i := first; i <= last; i++ {
		projections, err := mapper.ForPage(ctx, i)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list fields: %v", err)), nil
		}
		out = append(out, projections...)
	}
	if len(out) == 0 {
		return mcp.NewToolResultText("No form fields found."), nil
	}
	return jsonResult(out)
}

// handleStampSignature embeds one image and writes the result.
func (s *Server) handleStampSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params [3]string
	for i, key := range []string{"pdf_path", "image_path", "output_path"} {
		v, err := request.RequireString(key)
		if err != nil {
			return mcp.NewToolResultError("missing required parameter: " + key), nil
		}
		params[i] = v
	}
	pdfPath, imagePath, outputPath := params[0], params[1], params[2]

	placement := manifest.Placement{
		Image: imagePath,
		Field: request.GetString("field", ""),
		Page:  request.GetInt("page", 0),
	}
	args := request.GetArguments()
	for key, dst := range map[string]**float64{
		"x": &placement.X, "y": &placement.Y, "width": &placement.Width, "height": &placement.Height,
	} {
		if _, ok := args[key]; ok {
			v := request.GetFloat(key, 0)
			*dst = &v
		}
	}
	m := &manifest.Manifest{Placements: []manifest.Placement{placement}}
	if err := m.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid placement: %v", err)), nil
	}

	doc, err := pdfdoc.OpenFile(pdfPath, pdfdoc.WithDensity(s.density))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open PDF: %v", err)), nil
	}
	report, err := m.Apply(ctx, doc, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stamping failed: %v", err)), nil
	}
	if !report.OK() {
		reasons := make([]string, 0, len(report.Skipped))
		for _, sk := range report.Skipped {
			reasons = append(reasons, sk.Reason())
		}
		return mcp.NewToolResultError("signature not embedded: " + strings.Join(reasons, "; ")), nil
	}
	if err := doc.WriteFile(outputPath); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Signature embedded. Wrote %s.", outputPath)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
