package ui

import (
	"io/fs"
	"strings"
	"testing"
)

// TestDistFSEmbedded verifies that the UI dist directory is properly embedded
func TestDistFSEmbedded(t *testing.T) {
	distFS, err := fs.Sub(DistFS(), "dist")
	if err != nil {
		t.Fatalf("Failed to access dist subdirectory: %v", err)
	}

	indexData, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		t.Fatalf("Failed to read index.html from embedded filesystem: %v", err)
	}

	if len(indexData) == 0 {
		t.Fatal("index.html is empty")
	}

	content := string(indexData)
	if len(content) < 100 {
		t.Errorf("index.html seems too short (%d bytes), might be invalid", len(content))
	}

	if !strings.Contains(content, "<!DOCTYPE") && !strings.Contains(content, "<html") {
		t.Error("index.html does not appear to be valid HTML (missing DOCTYPE or <html>)")
	}
}
