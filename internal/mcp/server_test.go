package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/pdfdoc"
)

func testdataPath(t *testing.T, name string) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file location")
	}
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", name)
}

// resultText returns the text of a single-content tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	// Verify tool names and required properties.
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
		required []string
	}{
		{"page_info", pageInfoTool, "page_info", []string{"pdf_path"}},
		{"list_fields", listFieldsTool, "list_fields", []string{"pdf_path"}},
		{"stamp_signature", stampSignatureTool, "stamp_signature", []string{"pdf_path", "image_path", "output_path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
			if strings.Join(tt.tool.InputSchema.Required, ",") != strings.Join(tt.required, ",") {
				t.Errorf("required = %v, want %v", tt.tool.InputSchema.Required, tt.required)
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(0)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.density != pdfdoc.DefaultDensity {
		t.Errorf("density = %v, want %v", srv.density, pdfdoc.DefaultDensity)
	}
}

func TestHandlePageInfo(t *testing.T) {
	srv := NewServer(0)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"pdf_path": testdataPath(t, "pdf/form.pdf")}
	result, err := srv.handlePageInfo(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	var pages []pageInfo
	if err := json.Unmarshal([]byte(resultText(t, result)), &pages); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(pages) != 2 || pages[1].Width != 842 || pages[1].Height != 595 {
		t.Errorf("pages = %+v", pages)
	}
}

func TestHandleListFields(t *testing.T) {
	srv := NewServer(0)
	ctx := context.Background()
	form := testdataPath(t, "pdf/form.pdf")

	t.Run("all pages", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"pdf_path": form}

		result, err := srv.handleListFields(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		var got []fields.Projection
		if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d fields, want 3", len(got))
		}
		if got[0].Name != "signer" || got[0].XPercent != 10 || got[0].YPercent != 7.5 {
			t.Errorf("first field = %+v", got[0])
		}
	})

	t.Run("one page", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"pdf_path": form, "page": 1}

		result, err := srv.handleListFields(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(resultText(t, result), `"date"`) || strings.Contains(resultText(t, result), `"signer"`) {
			t.Errorf("page 1 result = %s", resultText(t, result))
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"pdf_path": form, "page": 9}

		result, err := srv.handleListFields(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for page 9")
		}
	})

	t.Run("no fields", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"pdf_path": testdataPath(t, "pdf/plain.pdf")}

		result, err := srv.handleListFields(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("a document without fields should not be an error")
		}
	})

	t.Run("missing path", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleListFields(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing pdf_path")
		}
	})
}

func TestHandleStampSignature(t *testing.T) {
	srv := NewServer(0)
	ctx := context.Background()
	form := testdataPath(t, "pdf/form.pdf")
	sig := testdataPath(t, "signature.png")

	t.Run("field", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "signed.pdf")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"pdf_path":    form,
			"image_path":  sig,
			"output_path": out,
			"field":       "applicant",
		}

		result, err := srv.handleStampSignature(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		doc, err := pdfdoc.OpenFile(out)
		if err != nil {
			t.Fatalf("output is not a PDF: %v", err)
		}
		if doc.PageCount() != 2 {
			t.Errorf("PageCount = %d, want 2", doc.PageCount())
		}
	})

	t.Run("explicit position", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "signed.pdf")
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"pdf_path":    form,
			"image_path":  sig,
			"output_path": out,
			"page":        1,
			"x":           60.0,
			"y":           80.0,
			"width":       25.0,
			"height":      8.0,
		}

		result, err := srv.handleStampSignature(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"pdf_path":    form,
			"image_path":  sig,
			"output_path": filepath.Join(t.TempDir(), "signed.pdf"),
			"field":       "nobody",
		}

		result, err := srv.handleStampSignature(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("partial position", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"pdf_path":    form,
			"image_path":  sig,
			"output_path": filepath.Join(t.TempDir(), "signed.pdf"),
			"x":           10.0,
		}

		result, err := srv.handleStampSignature(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for a position without a size")
		}
	})
}
