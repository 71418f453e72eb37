package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatchReportPath_NextToSource(t *testing.T) {
	got := watchReportPath(filepath.Join("in", "OS-2024-0117.pdf"))
	assert.Equal(t, filepath.Join("in", "analise_nf_OS-2024-0117.xlsx"), got)
}

func TestWatchReportPath_OutputDir(t *testing.T) {
	watchOutputDir = "reports"
	defer func() { watchOutputDir = "" }()

	got := watchReportPath(filepath.Join("in", "OS-2024-0117.pdf"))
	assert.Equal(t, filepath.Join("reports", "analise_nf_OS-2024-0117.xlsx"), got)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("a.pdf"))
	assert.True(t, isPDF("a.PDF"))
	assert.False(t, isPDF("a.txt"))
	assert.False(t, isPDF("pdf"))
}
