package mcp

import "github.com/mark3labs/mcp-go/mcp"

// pageInfoTool defines the page_info MCP tool.
var pageInfoTool = mcp.NewTool("page_info",
	mcp.WithDescription("List the pages of a PDF with their sizes in points."),
	mcp.WithString("pdf_path",
		mcp.Required(),
		mcp.Description("Path to the PDF document"),
	),
)

// listFieldsTool defines the list_fields MCP tool.
var listFieldsTool = mcp.NewTool("list_fields",
	mcp.WithDescription("List the form fields of a PDF with their positions as percentages of the page, top-left origin. Signature fields have type Sig."),
	mcp.WithString("pdf_path",
		mcp.Required(),
		mcp.Description("Path to the PDF document"),
	),
	mcp.WithNumber("page",
		mcp.Description("Only list fields on this zero-based page"),
	),
)

// stampSignatureTool defines the stamp_signature MCP tool.
var stampSignatureTool = mcp.NewTool("stamp_signature",
	mcp.WithDescription("Embed a signature image into a PDF, either over a named form field or at an explicit position given as percentages of the page (top-left origin). Writes the result to output_path."),
	mcp.WithString("pdf_path",
		mcp.Required(),
		mcp.Description("Path to the PDF document"),
	),
	mcp.WithString("image_path",
		mcp.Required(),
		mcp.Description("Path to the signature image (PNG, JPEG, GIF, WebP, BMP or TIFF)"),
	),
	mcp.WithString("output_path",
		mcp.Required(),
		mcp.Description("Where to write the signed PDF"),
	),
	mcp.WithString("field",
		mcp.Description("Name of the form field to cover. Mutually exclusive with x/y/width/height."),
	),
	mcp.WithNumber("page",
		mcp.Description("Zero-based page for an explicit position (default 0)"),
	),
	mcp.WithNumber("x", mcp.Description("Left edge, percent of page width")),
	mcp.WithNumber("y", mcp.Description("Top edge, percent of page height")),
	mcp.WithNumber("width", mcp.Description("Width, percent of page width")),
	mcp.WithNumber("height", mcp.Description("Height, percent of page height")),
)
